package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bpeFixture(t *testing.T) *Tokenizer {
	t.Helper()
	raw := []byte(`{
		"model": {
			"type": "BPE",
			"vocab": {"h":0, "e":1, "l":2, "o":3, "he":4, "ll":5, "llo":6, "hello":7, "Ġ":8, "Ġworld":9, "w":10, "o2":11},
			"merges": ["h e", "l l", "ll o", "he llo"]
		},
		"added_tokens": [{"id": 100, "content": "<eos>"}]
	}`)
	tok, err := Parse(raw)
	require.NoError(t, err)
	return tok
}

func TestBPEEncodeMergesGreedily(t *testing.T) {
	tok := bpeFixture(t)
	ids, err := tok.Encode("hello")
	require.NoError(t, err)
	assert.Equal(t, []int32{7}, ids)
}

func TestBPESpecialTokenLookup(t *testing.T) {
	tok := bpeFixture(t)
	id, ok := tok.TokenToID("<eos>")
	require.True(t, ok)
	assert.Equal(t, int32(100), id)
}

func TestBPEDecodeSkipsSpecialTokens(t *testing.T) {
	tok := bpeFixture(t)
	out := tok.Decode([]int32{7, 100})
	assert.Equal(t, "hello", out)
}

func unigramFixture(t *testing.T) *Tokenizer {
	t.Helper()
	raw := []byte(`{
		"model": {
			"type": "Unigram",
			"vocab": [
				["<unk>", 0.0],
				["▁", -1.0],
				["▁the", -2.0],
				["t", -3.0],
				["h", -3.0],
				["e", -3.0],
				["▁t", -4.0]
			]
		},
		"added_tokens": [{"id": 50, "content": "<end_of_turn>"}]
	}`)
	tok, err := Parse(raw)
	require.NoError(t, err)
	return tok
}

func TestUnigramEncodePrefersHigherScoringPiece(t *testing.T) {
	tok := unigramFixture(t)
	ids, err := tok.Encode("the")
	require.NoError(t, err)
	assert.Equal(t, []int32{2}, ids) // "▁the" scores higher than "▁"+"t"+"h"+"e"
}

func TestUnigramDecodeReplacesMetaSpace(t *testing.T) {
	tok := unigramFixture(t)
	out := tok.Decode([]int32{2})
	assert.Equal(t, " the", out)
}

func TestByteUnicodeRoundTrip(t *testing.T) {
	original := []byte("hello, 世界!")
	mapped := bytesToUnicode(original)
	var joined string
	for _, m := range mapped {
		joined += m
	}
	assert.Equal(t, string(original), unicodeToBytes(joined))
}
