// Package runner implements the polymorphic Model Runner (§4.6): one
// forward() capability shared by every family in this project's catalog,
// built directly on internal/tensor rather than dispatching through a
// family-specific struct per candle_transformers::models::{gemma,
// gemma2,gemma3,llama} the way inference-engine/src/model.rs's `Model`
// enum does. Per-family differences (embedding scale, activation, extra
// norms, logit softcapping) are captured as construction-time data, not
// runtime type switches, per §9's "avoid any runtime reflection" note.
package runner

import (
	"fmt"
	"math"

	"github.com/otronforge/gateway/internal/models"
	"github.com/otronforge/gateway/internal/tensor"
	"github.com/otronforge/gateway/internal/weights"
)

// Runner is the capability every generation loop iteration calls:
// forward one step and, at the start of a request, reset cached state.
type Runner interface {
	Forward(ids []int32, startPos int) ([]float32, error)
	Reset()
}

type layerWeights struct {
	preAttnNorm  []float32
	postAttnNorm []float32 // gemma2/3 only
	preMLPNorm   []float32
	postMLPNorm  []float32 // gemma2/3 only

	qProj, kProj, vProj, oProj  tensor.Matrix
	gateProj, upProj, downProj tensor.Matrix
}

// Transformer is a decoder-only transformer forward pass shared by every
// family this project serves; GemmaV1/V2/V3, Llama, SmolLM and TinyLlama
// all reduce to RMSNorm + rotary attention + gated MLP with a few
// per-family knobs.
type Transformer struct {
	family models.Family
	cfg    weights.Config

	embedTokens tensor.Matrix
	layers      []layerWeights
	finalNorm   []float32
	lmHead      tensor.Matrix

	embedScale   float32
	activation   func(float32) float32
	logitSoftcap float32 // 0 disables softcapping (Llama, SmolLM, TinyLlama, GemmaV1)

	kCache, vCache []tensor.Matrix
}

// Load constructs a Transformer for family from already-decoded
// safetensors and a parsed config.json.
func Load(family models.Family, cfg weights.Config, w map[string]tensor.Matrix) (*Transformer, error) {
	embed, ok := w["model.embed_tokens.weight"]
	if !ok {
		return nil, fmt.Errorf("runner: missing model.embed_tokens.weight")
	}
	finalNorm, ok := w["model.norm.weight"]
	if !ok {
		return nil, fmt.Errorf("runner: missing model.norm.weight")
	}
	lmHead, ok := w["lm_head.weight"]
	if !ok {
		lmHead = embed // tied embeddings, the common case for small instruct checkpoints
	}

	t := &Transformer{
		family:      family,
		cfg:         cfg,
		embedTokens: embed,
		finalNorm:   finalNorm.Data,
		lmHead:      lmHead,
		activation:  tensor.SiLU,
	}

	isGemma := family == models.FamilyGemmaV1 || family == models.FamilyGemmaV2 || family == models.FamilyGemmaV3
	if isGemma {
		t.embedScale = sqrtf(float32(cfg.HiddenSize))
	} else {
		t.embedScale = 1.0
	}
	if family == models.FamilyGemmaV1 {
		t.activation = tensor.GeLU
	}
	if family == models.FamilyGemmaV2 || family == models.FamilyGemmaV3 {
		t.logitSoftcap = 30.0
	}

	hasExtraNorms := family == models.FamilyGemmaV2 || family == models.FamilyGemmaV3

	layers := make([]layerWeights, cfg.NumHiddenLayers)
	for i := range layers {
		lw := layerWeights{}
		var err error
		prefix := fmt.Sprintf("model.layers.%d.", i)

		if lw.preAttnNorm, err = vec(w, prefix+"input_layernorm.weight"); err != nil {
			return nil, err
		}
		if lw.qProj, err = mat(w, prefix+"self_attn.q_proj.weight"); err != nil {
			return nil, err
		}
		if lw.kProj, err = mat(w, prefix+"self_attn.k_proj.weight"); err != nil {
			return nil, err
		}
		if lw.vProj, err = mat(w, prefix+"self_attn.v_proj.weight"); err != nil {
			return nil, err
		}
		if lw.oProj, err = mat(w, prefix+"self_attn.o_proj.weight"); err != nil {
			return nil, err
		}
		if lw.gateProj, err = mat(w, prefix+"mlp.gate_proj.weight"); err != nil {
			return nil, err
		}
		if lw.upProj, err = mat(w, prefix+"mlp.up_proj.weight"); err != nil {
			return nil, err
		}
		if lw.downProj, err = mat(w, prefix+"mlp.down_proj.weight"); err != nil {
			return nil, err
		}

		if hasExtraNorms {
			if lw.postAttnNorm, err = vec(w, prefix+"post_attention_layernorm.weight"); err != nil {
				return nil, err
			}
			if lw.preMLPNorm, err = vec(w, prefix+"pre_feedforward_layernorm.weight"); err != nil {
				return nil, err
			}
			if lw.postMLPNorm, err = vec(w, prefix+"post_feedforward_layernorm.weight"); err != nil {
				return nil, err
			}
		} else {
			// Llama/GemmaV1 naming: the one extra norm in the layer is
			// conventionally called "post_attention_layernorm" despite
			// being applied before the MLP, not after attention.
			if lw.preMLPNorm, err = vec(w, prefix+"post_attention_layernorm.weight"); err != nil {
				return nil, err
			}
		}
		layers[i] = lw
	}
	t.layers = layers
	t.Reset()
	return t, nil
}

func vec(w map[string]tensor.Matrix, key string) ([]float32, error) {
	m, ok := w[key]
	if !ok {
		return nil, fmt.Errorf("runner: missing weight %q", key)
	}
	return m.Data, nil
}

func mat(w map[string]tensor.Matrix, key string) (tensor.Matrix, error) {
	m, ok := w[key]
	if !ok {
		return tensor.Matrix{}, fmt.Errorf("runner: missing weight %q", key)
	}
	return m, nil
}

func sqrtf(v float32) float32 {
	x := v
	if x <= 0 {
		return 0
	}
	// Newton's method; avoids pulling in math.Sqrt just for a float32 cast.
	guess := x
	for i := 0; i < 20; i++ {
		guess = 0.5 * (guess + x/guess)
	}
	return guess
}

// Reset clears the per-layer KV cache, called once per request per §4.6
// and §9's "recreate runtime state per request" guidance.
func (t *Transformer) Reset() {
	t.kCache = make([]tensor.Matrix, len(t.layers))
	t.vCache = make([]tensor.Matrix, len(t.layers))
	for i, lw := range t.layers {
		kvCols := lw.kProj.Rows // out_features of k_proj == nKVHeads*headDim
		t.kCache[i] = tensor.Matrix{Cols: kvCols}
		t.vCache[i] = tensor.Matrix{Cols: kvCols}
	}
}

// Forward runs one step (or one full-context pass) and returns the
// logits for the last position only, per §4.6.
func (t *Transformer) Forward(ids []int32, startPos int) ([]float32, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("runner: empty input")
	}
	x := tensor.EmbeddingLookup(t.embedTokens, ids)
	if t.embedScale != 1.0 {
		for i := range x.Data {
			x.Data[i] *= t.embedScale
		}
	}

	nHeads := t.cfg.NumAttentionHeads
	nKVHeads := t.cfg.NumKeyValueHeads
	headDim := t.cfg.HeadDim
	eps := float32(t.cfg.RMSNormEps)

	for i, lw := range t.layers {
		normed := tensor.RMSNorm(x, lw.preAttnNorm, eps)

		q := tensor.MatMul(normed, lw.qProj)
		k := tensor.MatMul(normed, lw.kProj)
		v := tensor.MatMul(normed, lw.vProj)

		applyRopePerHead(q, nHeads, headDim, startPos, t.cfg.RopeTheta)
		applyRopePerHead(k, nKVHeads, headDim, startPos, t.cfg.RopeTheta)

		t.kCache[i] = appendRows(t.kCache[i], k)
		t.vCache[i] = appendRows(t.vCache[i], v)

		attnOut := tensor.CausalSelfAttention(q, t.kCache[i], t.vCache[i], nHeads, nKVHeads, headDim, startPos)
		attnProj := tensor.MatMul(attnOut, lw.oProj)
		if lw.postAttnNorm != nil {
			attnProj = tensor.RMSNorm(attnProj, lw.postAttnNorm, eps)
		}
		tensor.AddInPlace(x, attnProj)

		normed2 := tensor.RMSNorm(x, lw.preMLPNorm, eps)
		mlpOut := t.mlp(normed2, lw)
		if lw.postMLPNorm != nil {
			mlpOut = tensor.RMSNorm(mlpOut, lw.postMLPNorm, eps)
		}
		tensor.AddInPlace(x, mlpOut)
	}

	final := tensor.RMSNorm(x, t.finalNorm, eps)
	logits := tensor.MatMul(final, t.lmHead)
	last := append([]float32(nil), logits.Row(logits.Rows-1)...)
	if t.logitSoftcap > 0 {
		softcap(last, t.logitSoftcap)
	}
	return last, nil
}

func (t *Transformer) mlp(x tensor.Matrix, lw layerWeights) tensor.Matrix {
	return tensor.SwiGLU(x, lw.gateProj, lw.upProj, lw.downProj, t.activation)
}

// softcap implements Gemma 2/3's logit soft-capping: cap * tanh(x / cap).
func softcap(logits []float32, cap float32) {
	for i, v := range logits {
		logits[i] = cap * tanhf(v/cap)
	}
}

func tanhf(x float32) float32 {
	if x > 20 {
		return 1
	}
	if x < -20 {
		return -1
	}
	e2x := expf(2 * x)
	return (e2x - 1) / (e2x + 1)
}

func expf(x float32) float32 {
	return float32(math.Exp(float64(x)))
}

func applyRopePerHead(m tensor.Matrix, nHeads, headDim, startPos int, theta float64) {
	for h := 0; h < nHeads; h++ {
		sub := tensor.NewMatrix(m.Rows, headDim)
		for r := 0; r < m.Rows; r++ {
			copy(sub.Row(r), m.Row(r)[h*headDim:(h+1)*headDim])
		}
		tensor.RotaryEmbedding(sub, startPos, theta)
		for r := 0; r < m.Rows; r++ {
			copy(m.Row(r)[h*headDim:(h+1)*headDim], sub.Row(r))
		}
	}
}

func appendRows(cache, add tensor.Matrix) tensor.Matrix {
	out := tensor.NewMatrix(cache.Rows+add.Rows, add.Cols)
	copy(out.Data, cache.Data)
	copy(out.Data[len(cache.Data):], add.Data)
	return out
}
