// Package models is the descriptor table mapping external model id strings
// to runtime behavior: the family a chat model decodes with, whether it's
// instruction-tuned, and (for embedding models) output dimensionality.
//
// Per the data model invariant, the table is the sole source of truth for
// id → behavior; every externally supplied id is normalized before lookup.
// Grounded in inference-engine/src/model.rs's Which/ModelMeta enum (chat)
// and embeddings-engine's NomicEmbedTextV15 singleton (embeddings), unified
// into one table the way the teacher's /api/info model listing is unified.
package models

import (
	"sort"
	"strings"
)

// Family identifies which Model Runner implementation decodes a chat model.
type Family string

const (
	FamilyGemmaV1   Family = "gemma-v1"
	FamilyGemmaV2   Family = "gemma-v2"
	FamilyGemmaV3   Family = "gemma-v3"
	FamilyLlama     Family = "llama"
	FamilySmolLM    Family = "smollm"
	FamilyTinyLlama Family = "tinyllama"
)

// ChatDescriptor is the canonical record for one chat-completion model.
type ChatDescriptor struct {
	ID       string // external, normalized id (e.g. "gemma-3-1b-it")
	RepoID   string // canonical HF repo id (e.g. "google/gemma-3-1b-it")
	Family   Family
	Instruct bool
	OwnedBy  string
}

// EmbeddingDescriptor is the canonical record for one embedding model.
type EmbeddingDescriptor struct {
	ID        string
	RepoID    string
	Dimension int
	OwnedBy   string
}

// chatTable is keyed by normalized id. Built from inference-engine's Which
// enum: Gemma 1.x/2/3 variants, Llama 3.2, plus SmolLM2 and TinyLlama which
// the original project's gemma-runner/llama-runner crates also ship
// (gemma_api.rs / llama_api.rs WhichModel enums) but model.rs's server-facing
// catalog omits — folded in here for /v1/models completeness.
var chatTable = buildChatTable()

func buildChatTable() map[string]ChatDescriptor {
	entries := []ChatDescriptor{
		// Gemma 1.x
		{ID: "gemma-2b", RepoID: "google/gemma-2b", Family: FamilyGemmaV1, Instruct: false, OwnedBy: "google"},
		{ID: "gemma-7b", RepoID: "google/gemma-7b", Family: FamilyGemmaV1, Instruct: false, OwnedBy: "google"},
		{ID: "gemma-2b-it", RepoID: "google/gemma-2b-it", Family: FamilyGemmaV1, Instruct: true, OwnedBy: "google"},
		{ID: "gemma-7b-it", RepoID: "google/gemma-7b-it", Family: FamilyGemmaV1, Instruct: true, OwnedBy: "google"},
		{ID: "gemma-1.1-2b-it", RepoID: "google/gemma-1.1-2b-it", Family: FamilyGemmaV1, Instruct: true, OwnedBy: "google"},
		{ID: "gemma-1.1-7b-it", RepoID: "google/gemma-1.1-7b-it", Family: FamilyGemmaV1, Instruct: true, OwnedBy: "google"},
		// CodeGemma
		{ID: "codegemma-2b", RepoID: "google/codegemma-2b", Family: FamilyGemmaV1, Instruct: false, OwnedBy: "google"},
		{ID: "codegemma-7b", RepoID: "google/codegemma-7b", Family: FamilyGemmaV1, Instruct: false, OwnedBy: "google"},
		{ID: "codegemma-2b-it", RepoID: "google/codegemma-2b-it", Family: FamilyGemmaV1, Instruct: true, OwnedBy: "google"},
		{ID: "codegemma-7b-it", RepoID: "google/codegemma-7b-it", Family: FamilyGemmaV1, Instruct: true, OwnedBy: "google"},
		// Gemma 2
		{ID: "gemma-2-2b", RepoID: "google/gemma-2-2b", Family: FamilyGemmaV2, Instruct: false, OwnedBy: "google"},
		{ID: "gemma-2-2b-it", RepoID: "google/gemma-2-2b-it", Family: FamilyGemmaV2, Instruct: true, OwnedBy: "google"},
		{ID: "gemma-2-9b", RepoID: "google/gemma-2-9b", Family: FamilyGemmaV2, Instruct: false, OwnedBy: "google"},
		{ID: "gemma-2-9b-it", RepoID: "google/gemma-2-9b-it", Family: FamilyGemmaV2, Instruct: true, OwnedBy: "google"},
		// Gemma 3
		{ID: "gemma-3-1b", RepoID: "google/gemma-3-1b-pt", Family: FamilyGemmaV3, Instruct: false, OwnedBy: "google"},
		{ID: "gemma-3-1b-it", RepoID: "google/gemma-3-1b-it", Family: FamilyGemmaV3, Instruct: true, OwnedBy: "google"},
		// Llama 3.2
		{ID: "llama-3.2-1b", RepoID: "meta-llama/Llama-3.2-1B", Family: FamilyLlama, Instruct: false, OwnedBy: "meta"},
		{ID: "llama-3.2-1b-instruct", RepoID: "meta-llama/Llama-3.2-1B-Instruct", Family: FamilyLlama, Instruct: true, OwnedBy: "meta"},
		{ID: "llama-3.2-3b", RepoID: "meta-llama/Llama-3.2-3B", Family: FamilyLlama, Instruct: false, OwnedBy: "meta"},
		{ID: "llama-3.2-3b-instruct", RepoID: "meta-llama/Llama-3.2-3B-Instruct", Family: FamilyLlama, Instruct: true, OwnedBy: "meta"},
		// SmolLM2
		{ID: "smollm2-135m", RepoID: "HuggingFaceTB/SmolLM2-135M", Family: FamilySmolLM, Instruct: false, OwnedBy: "huggingface"},
		{ID: "smollm2-135m-instruct", RepoID: "HuggingFaceTB/SmolLM2-135M-Instruct", Family: FamilySmolLM, Instruct: true, OwnedBy: "huggingface"},
		{ID: "smollm2-360m", RepoID: "HuggingFaceTB/SmolLM2-360M", Family: FamilySmolLM, Instruct: false, OwnedBy: "huggingface"},
		{ID: "smollm2-360m-instruct", RepoID: "HuggingFaceTB/SmolLM2-360M-Instruct", Family: FamilySmolLM, Instruct: true, OwnedBy: "huggingface"},
		{ID: "smollm2-1.7b", RepoID: "HuggingFaceTB/SmolLM2-1.7B", Family: FamilySmolLM, Instruct: false, OwnedBy: "huggingface"},
		{ID: "smollm2-1.7b-instruct", RepoID: "HuggingFaceTB/SmolLM2-1.7B-Instruct", Family: FamilySmolLM, Instruct: true, OwnedBy: "huggingface"},
		// TinyLlama
		{ID: "tinyllama-1.1b-chat", RepoID: "TinyLlama/TinyLlama-1.1B-Chat-v1.0", Family: FamilyTinyLlama, Instruct: true, OwnedBy: "tinyllama"},
	}
	t := make(map[string]ChatDescriptor, len(entries))
	for _, e := range entries {
		t[e.ID] = e
	}
	return t
}

// embeddingTable holds the curated embedding models. nomic-embed-text-v1.5 is
// the one embeddings-engine/src/lib.rs actually wires up (fastembed's
// NomicEmbedTextV15); the others round out the catalog the way /v1/models
// is expected to union chat + embedding ids.
var embeddingTable = map[string]EmbeddingDescriptor{
	"nomic-embed-text-v1.5": {ID: "nomic-embed-text-v1.5", RepoID: "nomic-ai/nomic-embed-text-v1.5", Dimension: 768, OwnedBy: "nomic-ai"},
	"nomic-embed-text":      {ID: "nomic-embed-text", RepoID: "nomic-ai/nomic-embed-text-v1.5", Dimension: 768, OwnedBy: "nomic-ai"},
	"bge-small-en-v1.5":     {ID: "bge-small-en-v1.5", RepoID: "BAAI/bge-small-en-v1.5", Dimension: 384, OwnedBy: "baai"},
	"bge-base-en-v1.5":      {ID: "bge-base-en-v1.5", RepoID: "BAAI/bge-base-en-v1.5", Dimension: 768, OwnedBy: "baai"},
	"all-minilm-l6-v2":      {ID: "all-minilm-l6-v2", RepoID: "sentence-transformers/all-MiniLM-L6-v2", Dimension: 384, OwnedBy: "sentence-transformers"},
}

// Normalize canonicalizes an externally supplied model id: lowercase,
// underscores to dashes, and an "owner/" prefix stripped, per the data
// model's id-normalization invariant.
func Normalize(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	id = strings.ReplaceAll(id, "_", "-")
	if slash := strings.LastIndex(id, "/"); slash >= 0 {
		id = id[slash+1:]
	}
	return id
}

// LookupChat resolves a (possibly unnormalized) model id to its chat
// descriptor. ok is false for any id not in the table.
func LookupChat(id string) (ChatDescriptor, bool) {
	d, ok := chatTable[Normalize(id)]
	return d, ok
}

// LookupEmbedding resolves a (possibly unnormalized) model id to its
// embedding descriptor.
func LookupEmbedding(id string) (EmbeddingDescriptor, bool) {
	d, ok := embeddingTable[Normalize(id)]
	return d, ok
}

// AllChat returns every chat descriptor, sorted by id.
func AllChat() []ChatDescriptor {
	out := make([]ChatDescriptor, 0, len(chatTable))
	for _, id := range chatOrder() {
		out = append(out, chatTable[id])
	}
	return out
}

// AllEmbeddings returns every embedding descriptor, sorted by id.
func AllEmbeddings() []EmbeddingDescriptor {
	out := make([]EmbeddingDescriptor, 0, len(embeddingTable))
	for _, id := range embeddingOrder() {
		out = append(out, embeddingTable[id])
	}
	return out
}

func chatOrder() []string {
	ids := make([]string, 0, len(chatTable))
	for id := range chatTable {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func embeddingOrder() []string {
	ids := make([]string, 0, len(embeddingTable))
	for id := range embeddingTable {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
