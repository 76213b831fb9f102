// Package embeddings implements the Embedding Engine (C9, §4.9):
// model-id resolution, the process-wide embedder cache, batch encoding,
// and all-zero-vector remediation (NaN components are not checked or
// replaced). Grounded in embeddings-engine/src/lib.rs's
// embeddings_create handler — the all-zero-vector random-unit-vector
// fallback and the OpenAI response shape are carried over verbatim in
// behavior (just not in dimension: this repo does not pad, per §9's
// resolved Open Question).
package embeddings

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/otronforge/gateway/internal/apierr"
	"github.com/otronforge/gateway/internal/embedmodel"
	"github.com/otronforge/gateway/internal/logging"
	"github.com/otronforge/gateway/internal/models"
	"github.com/otronforge/gateway/internal/modelcache"
	"github.com/otronforge/gateway/internal/weights"
	"github.com/rs/zerolog"
)

// Engine resolves, caches and runs embedding models.
type Engine struct {
	resolver *weights.Resolver
	cache    *modelcache.Cache[string, *embedmodel.Instance]
}

// NewEngine builds an Engine backed by resolver, with an empty,
// insert-only model cache.
func NewEngine(resolver *weights.Resolver) *Engine {
	return &Engine{
		resolver: resolver,
		cache:    modelcache.New[string, *embedmodel.Instance](),
	}
}

// Warm loads modelID into the embedder cache without encoding anything.
// modelID empty is a no-op.
func (e *Engine) Warm(modelID string) error {
	if modelID == "" {
		return nil
	}
	desc, ok := models.LookupEmbedding(modelID)
	if !ok {
		return fmt.Errorf("embeddings: unsupported embedding model: %s", modelID)
	}
	_, err := e.cache.GetOrCreate(desc.ID, func() (*embedmodel.Instance, error) {
		return embedmodel.Build(e.resolver, desc)
	})
	return err
}

// Result is one post-processed embedding vector alongside the
// descriptor's declared id, for response shaping by callers.
type Result struct {
	Dimension int
	Vectors   [][]float32
}

// Embed resolves modelID, fetches-or-builds its embedder, batch-encodes
// inputs, and applies the zero-vector and dimension-mismatch remediation
// of §4.9. An unknown modelID returns an *apierr.Error the caller can
// pass straight to apierr.Write.
func (e *Engine) Embed(modelID string, inputs []string) (Result, error) {
	desc, ok := models.LookupEmbedding(modelID)
	if !ok {
		return Result{}, apierr.InvalidModel(fmt.Sprintf("unsupported embedding model: %s", modelID))
	}

	inst, err := e.cache.GetOrCreate(desc.ID, func() (*embedmodel.Instance, error) {
		return embedmodel.Build(e.resolver, desc)
	})
	if err != nil {
		return Result{}, apierr.ModelInitFailure(err.Error())
	}

	log := logging.Named("embeddings")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	vectors := make([][]float32, len(inputs))
	dim := 0
	for i, text := range inputs {
		v, err := inst.Embed(text)
		if err != nil {
			return Result{}, apierr.GenerationError(err.Error())
		}
		v = postProcess(v, desc, rng, log)
		vectors[i] = v
		if i == 0 {
			dim = len(v)
		} else if len(v) != dim {
			// Every input goes through the same table, so this would
			// indicate a bug in Instance.Embed, not caller input.
			return Result{}, apierr.GenerationError("embedmodel returned inconsistent vector dimensions within one batch")
		}
	}
	return Result{Dimension: dim, Vectors: vectors}, nil
}

// postProcess applies §4.9's remediation: replace an all-zero vector
// with a random unit vector, or log a dimension mismatch and return the
// actual vector unpadded.
func postProcess(v []float32, desc models.EmbeddingDescriptor, rng *rand.Rand, log zerolog.Logger) []float32 {
	if isAllZero(v) {
		log.Warn().Str("model", desc.ID).Msg("embedding is all zeros, substituting random unit vector")
		return randomUnitVector(len(v), rng)
	}
	if desc.Dimension > 0 && len(v) != desc.Dimension {
		log.Warn().Str("model", desc.ID).Int("expected", desc.Dimension).Int("actual", len(v)).
			Msg("embedding dimension does not match descriptor; returning actual vector unpadded")
	}
	return v
}

func isAllZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// randomUnitVector draws n components uniformly from [-1,1]\{0} and
// L2-normalizes the result, per §4.9's exact remediation recipe.
func randomUnitVector(n int, rng *rand.Rand) []float32 {
	out := make([]float32, n)
	for i := range out {
		v := float32(0)
		for v == 0 {
			v = float32(rng.Float64()*2 - 1)
		}
		out[i] = v
	}
	var sumSq float64
	for _, v := range out {
		sumSq += float64(v) * float64(v)
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range out {
		out[i] /= norm
	}
	return out
}
