package tokenizer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// loadBPEModel parses the "vocab" (token -> id) and "merges" (ranked
// pair list) sections of a BPE tokenizer.json, as produced by Llama 3,
// SmolLM2 and TinyLlama's tokenizer exports.
func (t *Tokenizer) loadBPEModel(rawVocab, rawMerges json.RawMessage) error {
	var vocab map[string]int32
	if err := json.Unmarshal(rawVocab, &vocab); err != nil {
		return fmt.Errorf("tokenizer: malformed BPE vocab: %w", err)
	}
	t.vocab = vocab
	for token, id := range vocab {
		t.setToken(id, token)
	}

	var merges []string
	if err := json.Unmarshal(rawMerges, &merges); err != nil {
		return fmt.Errorf("tokenizer: malformed BPE merges: %w", err)
	}
	t.merges = make(map[mergePair]int, len(merges))
	for rank, line := range merges {
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}
		t.merges[mergePair{parts[0], parts[1]}] = rank
	}
	return nil
}

// pretokenizeRE approximates GPT2/tiktoken's pretokenizer: optional
// leading whitespace followed by a run of non-whitespace characters, or a
// trailing run of whitespace. Punctuation is not split from adjacent
// letters or digits ("hello," is one chunk), so boundaries differ from the
// upstream regex wherever punctuation touches a word.
var pretokenizeRE = regexp.MustCompile(`\s*[^\s]+|\s+`)

func (t *Tokenizer) encodeBPE(text string) []int32 {
	var ids []int32
	for _, chunk := range pretokenizeRE.FindAllString(text, -1) {
		mapped := bytesToUnicode([]byte(chunk))
		symbols := bpeMerge(mapped, t.merges)
		for _, sym := range symbols {
			if id, ok := t.vocab[sym]; ok {
				ids = append(ids, id)
			} else {
				ids = append(ids, t.encodeUnknownBytes(sym)...)
			}
		}
	}
	return ids
}

// encodeUnknownBytes falls back to single byte-mapped symbols when a
// merged symbol isn't itself in the vocabulary (should not happen for a
// well-formed byte-level vocab, but keeps Encode total).
func (t *Tokenizer) encodeUnknownBytes(sym string) []int32 {
	var ids []int32
	for _, r := range sym {
		if id, ok := t.vocab[string(r)]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (t *Tokenizer) decodeBPE(ids []int32) string {
	var b strings.Builder
	for _, id := range ids {
		tok, ok := t.IDToToken(id)
		if !ok {
			continue
		}
		if _, special := t.specialByID(id); special {
			continue
		}
		b.WriteString(tok)
	}
	return unicodeToBytes(b.String())
}

func (t *Tokenizer) specialByID(id int32) (string, bool) {
	for content, tid := range t.addedTokens {
		if tid == id {
			return content, true
		}
	}
	return "", false
}

// bpeMerge repeatedly merges the adjacent symbol pair with the lowest
// rank until no known merge applies, the standard BPE encode loop.
func bpeMerge(symbols []string, merges map[mergePair]int) []string {
	if len(symbols) < 2 {
		return symbols
	}
	for {
		bestRank := -1
		bestIdx := -1
		for i := 0; i < len(symbols)-1; i++ {
			if rank, ok := merges[mergePair{symbols[i], symbols[i+1]}]; ok {
				if bestRank == -1 || rank < bestRank {
					bestRank = rank
					bestIdx = i
				}
			}
		}
		if bestIdx == -1 {
			return symbols
		}
		merged := symbols[bestIdx] + symbols[bestIdx+1]
		next := make([]string, 0, len(symbols)-1)
		next = append(next, symbols[:bestIdx]...)
		next = append(next, merged)
		next = append(next, symbols[bestIdx+2:]...)
		symbols = next
	}
}

// byteToUnicodeTable is GPT2's reversible byte<->unicode mapping: every
// printable Latin-1 byte maps to itself, and every other byte is shifted
// into the private-use-adjacent range starting at 256, so every byte
// string round-trips through a valid, whitespace-free unicode string BPE
// merges can operate on.
var byteToUnicodeTable, unicodeToByteTable = buildByteUnicodeTables()

func buildByteUnicodeTables() (map[byte]rune, map[rune]byte) {
	bs := []int{}
	for i := '!'; i <= '~'; i++ {
		bs = append(bs, int(i))
	}
	for i := '¡'; i <= '¬'; i++ {
		bs = append(bs, int(i))
	}
	for i := '®'; i <= 'ÿ'; i++ {
		bs = append(bs, int(i))
	}
	present := make(map[int]bool, len(bs))
	for _, b := range bs {
		present[b] = true
	}
	cs := append([]int{}, bs...)
	n := 0
	for b := 0; b < 256; b++ {
		if !present[b] {
			bs = append(bs, b)
			cs = append(cs, 256+n)
			n++
		}
	}
	b2u := make(map[byte]rune, 256)
	u2b := make(map[rune]byte, 256)
	for i, b := range bs {
		b2u[byte(b)] = rune(cs[i])
		u2b[rune(cs[i])] = byte(b)
	}
	return b2u, u2b
}

// bytesToUnicode maps raw UTF-8 bytes to the byte-level unicode alphabet,
// returning one single-rune string per input byte (the BPE merge loop's
// starting symbols).
func bytesToUnicode(data []byte) []string {
	out := make([]string, len(data))
	for i, b := range data {
		out[i] = string(byteToUnicodeTable[b])
	}
	return out
}

// unicodeToBytes reverses bytesToUnicode over a full decoded token
// string, reconstructing the original UTF-8 bytes.
func unicodeToBytes(s string) string {
	var raw []byte
	for _, r := range s {
		if b, ok := unicodeToByteTable[r]; ok {
			raw = append(raw, b)
		}
	}
	return string(raw)
}
