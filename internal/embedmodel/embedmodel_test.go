package embedmodel

import (
	"testing"

	"github.com/otronforge/gateway/internal/tensor"
	"github.com/otronforge/gateway/internal/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingTableFromPrefersBertStyleNaming(t *testing.T) {
	table := tensor.Matrix{Rows: 4, Cols: 2, Data: []float32{1, 1, 2, 2, 3, 3, 4, 4}}
	w := map[string]tensor.Matrix{"embeddings.word_embeddings.weight": table}

	got, err := embeddingTableFrom(w)
	require.NoError(t, err)
	assert.Equal(t, table, got)
}

func TestEmbeddingTableFromFallsBackToDecoderStyleNaming(t *testing.T) {
	table := tensor.Matrix{Rows: 2, Cols: 2, Data: []float32{1, 1, 2, 2}}
	w := map[string]tensor.Matrix{"model.embed_tokens.weight": table}

	got, err := embeddingTableFrom(w)
	require.NoError(t, err)
	assert.Equal(t, table, got)
}

func TestEmbeddingTableFromErrorsWhenNoneRecognized(t *testing.T) {
	_, err := embeddingTableFrom(map[string]tensor.Matrix{"some.other.weight": {}})
	assert.Error(t, err)
}

func twoTokenTokenizer(t *testing.T) *tokenizer.Tokenizer {
	t.Helper()
	raw := []byte(`{
		"model": {
			"type": "BPE",
			"vocab": {"h":0, "i":1, "hi":2},
			"merges": ["h i"]
		},
		"added_tokens": []
	}`)
	tok, err := tokenizer.Parse(raw)
	require.NoError(t, err)
	return tok
}

func TestInstanceEmbedMeanPoolsTokenRows(t *testing.T) {
	// Row 0 ("h") -> [2,0], row 1 ("i") -> [0,4]; "hi" greedily merges to
	// a single token (id 2), so the pooled vector is just that row.
	table := tensor.Matrix{Rows: 3, Cols: 2, Data: []float32{2, 0, 0, 4, 5, 6}}
	inst := &Instance{EmbedTable: table, Tokenizer: twoTokenTokenizer(t)}

	out, err := inst.Embed("hi")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{5, 6}, out, 1e-6)
}

func TestInstanceEmbedEmptyInputReturnsZeroVector(t *testing.T) {
	table := tensor.Matrix{Rows: 2, Cols: 3}
	inst := &Instance{EmbedTable: table, Tokenizer: twoTokenTokenizer(t)}

	out, err := inst.Embed("")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0}, out)
}
