// Package penalty applies repetition penalty to logits, memoized per
// token id for the life of a request — the Go shape of
// TextGeneration::apply_cached_repeat_penalty in
// inference-engine/src/text_generation.rs.
package penalty

// Cache biases logits away from recently-seen tokens. Create one per
// request; it is not safe for concurrent use.
type Cache struct {
	penalty  float32
	lastN    int
	memoized map[int32]float32
}

// New builds a Cache for the given penalty strength and history window.
// penalty == 1.0 makes Apply a no-op (checked by callers via IsIdentity
// so they can skip the allocation entirely).
func New(penalty float32, lastN int) *Cache {
	return &Cache{penalty: penalty, lastN: lastN, memoized: make(map[int32]float32)}
}

// IsIdentity reports whether this cache's penalty makes Apply a no-op.
func (c *Cache) IsIdentity() bool {
	return c.penalty == 1.0
}

// Apply returns a new logits vector with the penalty applied to every
// unique id in the last lastN entries of history. The input is never
// mutated.
func (c *Cache) Apply(logits []float32, history []int32) []float32 {
	out := make([]float32, len(logits))
	copy(out, logits)

	if c.IsIdentity() {
		return out
	}

	window := history
	if c.lastN > 0 && len(window) > c.lastN {
		window = window[len(window)-c.lastN:]
	}

	seen := make(map[int32]bool, len(window))
	for _, id := range window {
		if seen[id] {
			continue
		}
		seen[id] = true
		if int(id) < 0 || int(id) >= len(out) {
			continue
		}
		out[id] = c.penalized(id, logits[id])
	}
	return out
}

// penalized computes sign(score) * |score| / penalty — which reduces to
// score / penalty, but is spelled out this way to match the sign-
// preservation contract explicitly: dividing directly already preserves
// sign since penalty is always positive. Memoized by id so repeated
// appearances across the loop don't redo the division.
func (c *Cache) penalized(id int32, score float32) float32 {
	if v, ok := c.memoized[id]; ok {
		return v
	}
	result := score / c.penalty
	c.memoized[id] = result
	return result
}
