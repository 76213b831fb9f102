// Package sampler implements a seeded logits sampler: argmax, plain
// temperature softmax, top-k, top-p, and top-k-then-top-p, mirroring
// candle_transformers::generation::LogitsProcessor's Sampling enum that
// gemma-runner and llama-runner both construct from the same
// {temperature, top_k, top_p} CLI surface.
package sampler

import (
	"math"
	"math/rand"
	"sort"
)

// Sampler draws token ids from a logits vector using a private,
// deterministically-seeded RNG sequence.
type Sampler struct {
	rng         *rand.Rand
	temperature float64
	topK        *int
	topP        *float64
}

// New builds a Sampler. temperature <= 0 means "always argmax",
// regardless of topK/topP.
func New(seed uint64, temperature float64, topK *int, topP *float64) *Sampler {
	return &Sampler{
		rng:         rand.New(rand.NewSource(int64(seed))),
		temperature: temperature,
		topK:        topK,
		topP:        topP,
	}
}

// Sample returns the next token id for logits, which is not mutated.
func (s *Sampler) Sample(logits []float32) int32 {
	if s.temperature <= 0 {
		return argmax(logits)
	}

	probs := softmaxWithTemperature(logits, s.temperature)
	indices := make([]int, len(probs))
	for i := range indices {
		indices[i] = i
	}

	switch {
	case s.topK != nil && s.topP != nil:
		indices, probs = restrictTopK(indices, probs, *s.topK)
		indices, probs = restrictTopP(indices, probs, *s.topP)
	case s.topK != nil:
		indices, probs = restrictTopK(indices, probs, *s.topK)
	case s.topP != nil:
		indices, probs = restrictTopP(indices, probs, *s.topP)
	}

	return int32(s.drawFrom(indices, probs))
}

func argmax(logits []float32) int32 {
	best := 0
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}
	return int32(best)
}

func softmaxWithTemperature(logits []float32, temperature float64) []float64 {
	probs := make([]float64, len(logits))
	max := float64(logits[0])
	for _, v := range logits[1:] {
		if float64(v) > max {
			max = float64(v)
		}
	}
	var sum float64
	for i, v := range logits {
		e := math.Exp((float64(v) - max) / temperature)
		probs[i] = e
		sum += e
	}
	if sum > 0 {
		for i := range probs {
			probs[i] /= sum
		}
	}
	return probs
}

// restrictTopK keeps only the k highest-probability indices,
// renormalizing the remainder.
func restrictTopK(indices []int, probs []float64, k int) ([]int, []float64) {
	if k <= 0 || k >= len(indices) {
		return indices, probs
	}
	order := append([]int(nil), indices...)
	sort.Slice(order, func(i, j int) bool { return probs[order[i]] > probs[order[j]] })
	kept := order[:k]
	return renormalize(kept, probs)
}

// restrictTopP keeps the smallest prefix (by descending probability)
// whose cumulative mass reaches p, renormalizing the remainder — nucleus
// sampling.
func restrictTopP(indices []int, probs []float64, p float64) ([]int, []float64) {
	order := append([]int(nil), indices...)
	sort.Slice(order, func(i, j int) bool { return probs[order[i]] > probs[order[j]] })

	var cumulative float64
	cut := len(order)
	for i, idx := range order {
		cumulative += probs[idx]
		if cumulative >= p {
			cut = i + 1
			break
		}
	}
	return renormalize(order[:cut], probs)
}

func renormalize(indices []int, probs []float64) ([]int, []float64) {
	out := make([]float64, len(indices))
	var sum float64
	for i, idx := range indices {
		out[i] = probs[idx]
		sum += probs[idx]
	}
	if sum > 0 {
		for i := range out {
			out[i] /= sum
		}
	}
	return indices, out
}

// drawFrom picks one of indices according to the parallel probs
// distribution using the sampler's own RNG draw.
func (s *Sampler) drawFrom(indices []int, probs []float64) int {
	r := s.rng.Float64()
	var cumulative float64
	for i, p := range probs {
		cumulative += p
		if r <= cumulative {
			return indices[i]
		}
	}
	return indices[len(indices)-1]
}
