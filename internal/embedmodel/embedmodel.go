// Package embedmodel builds the immutable part of an embedding Model
// instance: resolved weights, tokenizer and config. Mirrors
// internal/chatmodel's split between shared immutable state and
// per-request work, but an embedding forward pass has no KV-cache or
// autoregressive loop to make fresh per request — Embed is stateless
// given the shared weights, so a single Instance is safe for concurrent
// callers without any decorator.
//
// embeddings-engine/src/lib.rs wires fastembed's NomicEmbedTextV15 behind
// a once_cell::Lazy singleton and calls its opaque .embed(); per spec §2,
// no pack example ships a pure-Go embedding-model runtime, so this
// package treats the embedding forward pass at the same abstraction level
// internal/runner treats the chat forward pass: token embedding lookup +
// mean pooling over internal/tensor, standing in for the bidirectional
// encoder a real embedding-model kernel would run.
package embedmodel

import (
	"fmt"
	"os"

	"github.com/otronforge/gateway/internal/models"
	"github.com/otronforge/gateway/internal/tensor"
	"github.com/otronforge/gateway/internal/tokenizer"
	"github.com/otronforge/gateway/internal/weights"
)

// Instance holds everything needed to embed text for one embedding
// model, safe to share read-only across concurrent requests.
type Instance struct {
	Descriptor models.EmbeddingDescriptor
	Tokenizer  *tokenizer.Tokenizer
	EmbedTable tensor.Matrix
}

// Build resolves repoID's tokenizer and weight files and keeps only the
// token embedding table — the one tensor this package's pooled-embedding
// forward pass needs.
func Build(resolver *weights.Resolver, desc models.EmbeddingDescriptor) (*Instance, error) {
	paths, err := resolver.Resolve(desc.RepoID, "")
	if err != nil {
		return nil, fmt.Errorf("embedmodel: resolving %s: %w", desc.RepoID, err)
	}

	tok, err := tokenizer.Load(paths.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("embedmodel: loading tokenizer for %s: %w", desc.ID, err)
	}

	w, err := weights.LoadSafetensors(paths.WeightPaths)
	if err != nil {
		return nil, fmt.Errorf("embedmodel: loading weights for %s: %w", desc.ID, err)
	}

	table, err := embeddingTableFrom(w)
	if err != nil {
		return nil, fmt.Errorf("embedmodel: %s: %w", desc.ID, err)
	}

	if _, err := os.Stat(paths.ConfigPath); err != nil {
		return nil, fmt.Errorf("embedmodel: missing config for %s: %w", desc.ID, err)
	}

	return &Instance{Descriptor: desc, Tokenizer: tok, EmbedTable: table}, nil
}

// embeddingTableFrom locates the token embedding matrix under either of
// the two naming conventions seen across encoder checkpoints: BERT-style
// ("embeddings.word_embeddings.weight", used by nomic/bge/minilm) or the
// decoder-style name this repo's chat models use, in case a caller points
// an embedding descriptor at a decoder checkpoint.
func embeddingTableFrom(w map[string]tensor.Matrix) (tensor.Matrix, error) {
	for _, key := range []string{
		"embeddings.word_embeddings.weight",
		"bert.embeddings.word_embeddings.weight",
		"model.embed_tokens.weight",
	} {
		if m, ok := w[key]; ok {
			return m, nil
		}
	}
	return tensor.Matrix{}, fmt.Errorf("no recognized token embedding tensor found")
}

// Embed runs the pooled-embedding forward pass for one input string:
// tokenize, look up each token's embedding row, mean-pool across the
// sequence. The returned vector's length is the table's native hidden
// size, which the caller compares against the descriptor's declared
// dimensionality per §4.9 (no silent padding).
func (inst *Instance) Embed(text string) ([]float32, error) {
	ids, err := inst.Tokenizer.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("embedmodel: encoding input: %w", err)
	}
	dim := inst.EmbedTable.Cols
	out := make([]float32, dim)
	if len(ids) == 0 {
		return out, nil
	}
	for _, id := range ids {
		if int(id) < 0 || int(id) >= inst.EmbedTable.Rows {
			continue
		}
		row := inst.EmbedTable.Row(int(id))
		for i, v := range row {
			out[i] += v
		}
	}
	inv := 1.0 / float32(len(ids))
	for i := range out {
		out[i] *= inv
	}
	return out, nil
}
