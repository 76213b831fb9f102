// Package tensor is the small "tensor kernel" seam the spec says this
// project does not redesign (§1: "Tensor kernel libraries are assumed to
// provide standard transformer ops"). No pack example ships a pure-Go
// tensor/autograd library (no gonum, no gorgonia) and vendoring CGO
// bindings to a real kernel library would fabricate a dependency the
// examples never use — so this package is a deliberate, documented
// standard-library exception (see DESIGN.md): plain float32 slices and the
// handful of ops a decoder-only transformer forward pass needs, used by
// internal/runner the same opaque way inference-engine/src/model.rs treats
// candle_transformers::models::{gemma,gemma2,gemma3,llama} as a black-box
// forward() capability.
package tensor

import "math"

// Matrix is a row-major 2D float32 tensor: Rows x Cols, Data has len
// Rows*Cols. Used for both weights (loaded once, immutable) and
// activations (recomputed per forward pass).
type Matrix struct {
	Rows, Cols int
	Data       []float32
}

// NewMatrix allocates a zeroed Rows x Cols matrix.
func NewMatrix(rows, cols int) Matrix {
	return Matrix{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

// Row returns a slice view of row i (no copy).
func (m Matrix) Row(i int) []float32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// MatMul computes out = x * w^T, where x is (n, inDim) and w is
// (outDim, inDim) — the layout PyTorch/candle linear layers store weights
// in, so weight tensors can be mmap'd in as-is without a transpose pass.
func MatMul(x Matrix, w Matrix) Matrix {
	if x.Cols != w.Cols {
		panic("tensor: MatMul dimension mismatch")
	}
	out := NewMatrix(x.Rows, w.Rows)
	for i := 0; i < x.Rows; i++ {
		xi := x.Row(i)
		for j := 0; j < w.Rows; j++ {
			wj := w.Row(j)
			var sum float32
			for k := 0; k < x.Cols; k++ {
				sum += xi[k] * wj[k]
			}
			out.Data[i*out.Cols+j] = sum
		}
	}
	return out
}

// AddInPlace computes a += b element-wise.
func AddInPlace(a, b Matrix) {
	for i := range a.Data {
		a.Data[i] += b.Data[i]
	}
}

// EmbeddingLookup gathers rows of the embedding table for each token id,
// returning a (len(ids), hiddenSize) matrix.
func EmbeddingLookup(table Matrix, ids []int32) Matrix {
	out := NewMatrix(len(ids), table.Cols)
	for i, id := range ids {
		copy(out.Row(i), table.Row(int(id)))
	}
	return out
}

// RMSNorm applies root-mean-square layer normalization row-wise:
// out[i] = x[i] / rms(x[i]) * weight, matching Gemma/Llama's RMSNorm (no
// mean-centering, unlike LayerNorm).
func RMSNorm(x Matrix, weight []float32, eps float32) Matrix {
	out := NewMatrix(x.Rows, x.Cols)
	for i := 0; i < x.Rows; i++ {
		row := x.Row(i)
		var ss float32
		for _, v := range row {
			ss += v * v
		}
		scale := float32(1.0 / math.Sqrt(float64(ss)/float64(len(row))+float64(eps)))
		dst := out.Row(i)
		for j, v := range row {
			dst[j] = v * scale * weight[j]
		}
	}
	return out
}

// RotaryEmbedding applies rotary position embeddings (RoPE) in-place to a
// (seqLen, headDim) matrix, one head at a time, starting at position
// startPos. theta is the RoPE base frequency (10000 for Llama/Gemma,
// higher for some long-context variants).
func RotaryEmbedding(x Matrix, startPos int, theta float64) {
	halfDim := x.Cols / 2
	for pos := 0; pos < x.Rows; pos++ {
		row := x.Row(pos)
		absPos := float64(startPos + pos)
		for i := 0; i < halfDim; i++ {
			freq := 1.0 / math.Pow(theta, float64(2*i)/float64(x.Cols))
			angle := absPos * freq
			cos, sin := float32(math.Cos(angle)), float32(math.Sin(angle))
			a, b := row[i], row[i+halfDim]
			row[i] = a*cos - b*sin
			row[i+halfDim] = a*sin + b*cos
		}
	}
}

// Softmax applies softmax in-place over a single row, numerically
// stabilized by subtracting the row max.
func Softmax(row []float32) {
	max := row[0]
	for _, v := range row[1:] {
		if v > max {
			max = v
		}
	}
	var sum float32
	for i, v := range row {
		e := float32(math.Exp(float64(v - max)))
		row[i] = e
		sum += e
	}
	if sum == 0 {
		return
	}
	for i := range row {
		row[i] /= sum
	}
}

// CausalSelfAttention computes multi-head (or grouped-query, when
// nKVHeads < nHeads) causal self-attention for the new positions in q
// against the full running k/v cache, returning a (seqLen, nHeads*headDim)
// matrix. k and v already include all previously cached positions;
// q covers only the newly computed positions, placed at the end of k/v.
func CausalSelfAttention(q, k, v Matrix, nHeads, nKVHeads, headDim int, startPos int) Matrix {
	seqLen := q.Rows
	totalLen := k.Rows
	groupSize := nHeads / nKVHeads
	scale := float32(1.0 / math.Sqrt(float64(headDim)))

	out := NewMatrix(seqLen, nHeads*headDim)
	scores := make([]float32, totalLen)

	for h := 0; h < nHeads; h++ {
		kvHead := h / groupSize
		for i := 0; i < seqLen; i++ {
			qRow := q.Row(i)[h*headDim : (h+1)*headDim]
			queryPos := startPos + i
			for j := 0; j <= queryPos && j < totalLen; j++ {
				kRow := k.Row(j)[kvHead*headDim : (kvHead+1)*headDim]
				var dot float32
				for d := 0; d < headDim; d++ {
					dot += qRow[d] * kRow[d]
				}
				scores[j] = dot * scale
			}
			activeScores := scores[:minInt(queryPos+1, totalLen)]
			Softmax(activeScores)

			dst := out.Row(i)[h*headDim : (h+1)*headDim]
			for j, weight := range activeScores {
				vRow := v.Row(j)[kvHead*headDim : (kvHead+1)*headDim]
				for d := 0; d < headDim; d++ {
					dst[d] += weight * vRow[d]
				}
			}
		}
	}
	return out
}

// SiLU is the sigmoid linear unit activation: x * sigmoid(x).
func SiLU(x float32) float32 {
	return x / (1 + float32(math.Exp(float64(-x))))
}

// SwiGLU computes a gated MLP block: down(act(gate(x)) * up(x)), the
// gate/up/down wiring every family in this spec's catalog uses (Gemma,
// Llama, SmolLM2, TinyLlama), parameterized by act since Gemma v1 gates
// with GeLU while the rest use SiLU.
func SwiGLU(x Matrix, gateW, upW, downW Matrix, act func(float32) float32) Matrix {
	gate := MatMul(x, gateW)
	up := MatMul(x, upW)
	for i := range gate.Data {
		gate.Data[i] = act(gate.Data[i]) * up.Data[i]
	}
	return MatMul(gate, downW)
}

// GeLU is the (tanh-approximated) Gaussian error linear unit, used by
// Gemma v1's MLP activation (gemma's original config uses gelu, not
// swiglu's silu, though the gate/up/down wiring is identical in shape).
func GeLU(x float32) float32 {
	const c = 0.7978845608028654 // sqrt(2/pi)
	x64 := float64(x)
	return float32(0.5 * x64 * (1 + math.Tanh(c*(x64+0.044715*x64*x64*x64))))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
