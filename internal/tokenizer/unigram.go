package tokenizer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// sentencePieceSpace is SentencePiece's meta symbol standing in for a
// literal space, the convention Gemma's tokenizer.json vocab uses.
const sentencePieceSpace = "▁"

// loadUnigramModel parses the "vocab" section of a Unigram tokenizer.json:
// an ordered array of [piece, logProbScore] pairs, where the array index
// is the token id.
func (t *Tokenizer) loadUnigramModel(rawVocab json.RawMessage) error {
	var entries [][2]interface{}
	if err := json.Unmarshal(rawVocab, &entries); err != nil {
		return fmt.Errorf("tokenizer: malformed Unigram vocab: %w", err)
	}
	t.vocab = make(map[string]int32, len(entries))
	t.scores = make([]float64, len(entries))
	for id, entry := range entries {
		piece, _ := entry[0].(string)
		score, _ := entry[1].(float64)
		t.setToken(int32(id), piece)
		t.scores[id] = score
		if len(piece) > t.maxPiece {
			t.maxPiece = len(piece)
		}
	}
	return nil
}

// encodeUnigram runs a Viterbi best-path segmentation: for each end
// position, keep the highest-scoring split among every vocabulary piece
// ending there. This is SentencePiece's unigram decode algorithm in its
// simplest (non-sampling, non-lattice-pruned) form.
func (t *Tokenizer) encodeUnigram(text string) []int32 {
	normalized := sentencePieceSpace + strings.ReplaceAll(text, " ", sentencePieceSpace)
	n := len(normalized)
	if n == 0 {
		return nil
	}

	const negInf = -1e18
	bestScore := make([]float64, n+1)
	bestLen := make([]int, n+1)
	for i := 1; i <= n; i++ {
		bestScore[i] = negInf
	}

	maxPiece := t.maxPiece
	if maxPiece == 0 || maxPiece > n {
		maxPiece = n
	}

	for end := 1; end <= n; end++ {
		for length := 1; length <= maxPiece && length <= end; length++ {
			start := end - length
			if bestScore[start] == negInf && start != 0 {
				continue
			}
			piece := normalized[start:end]
			id, ok := t.vocab[piece]
			if !ok {
				continue
			}
			candidate := bestScore[start] + t.scores[id]
			if candidate > bestScore[end] {
				bestScore[end] = candidate
				bestLen[end] = length
			}
		}
		// Guarantee progress even when a single byte isn't in the
		// vocabulary, by falling back to an unknown-byte unit score.
		if bestScore[end] == negInf {
			prev := end - 1
			if bestScore[prev] != negInf || prev == 0 {
				bestScore[end] = bestScore[prev] + negInf/2
				bestLen[end] = 1
			}
		}
	}

	var pieces []string
	for pos := n; pos > 0; {
		l := bestLen[pos]
		if l == 0 {
			l = 1
		}
		pieces = append(pieces, normalized[pos-l:pos])
		pos -= l
	}
	for i, j := 0, len(pieces)-1; i < j; i, j = i+1, j-1 {
		pieces[i], pieces[j] = pieces[j], pieces[i]
	}

	ids := make([]int32, 0, len(pieces))
	for _, p := range pieces {
		if id, ok := t.vocab[p]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (t *Tokenizer) decodeUnigram(ids []int32) string {
	var b strings.Builder
	for _, id := range ids {
		if _, special := t.specialByID(id); special {
			continue
		}
		tok, ok := t.IDToToken(id)
		if !ok {
			continue
		}
		b.WriteString(tok)
	}
	return strings.ReplaceAll(b.String(), sentencePieceSpace, " ")
}
