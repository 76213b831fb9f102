package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "gemma-3-1b-it", Normalize("Gemma_3_1B_IT"))
	assert.Equal(t, "gemma-3-1b-it", Normalize("google/gemma-3-1b-it"))
	assert.Equal(t, "llama-3.2-1b", Normalize("  Llama-3.2-1B  "))
}

func TestLookupChatKnown(t *testing.T) {
	d, ok := LookupChat("gemma-3-1b-it")
	require.True(t, ok)
	assert.Equal(t, FamilyGemmaV3, d.Family)
	assert.True(t, d.Instruct)
}

func TestLookupChatUnknown(t *testing.T) {
	_, ok := LookupChat("gpt-5-ultra")
	assert.False(t, ok)
}

func TestLookupEmbeddingKnown(t *testing.T) {
	d, ok := LookupEmbedding("nomic-embed-text-v1.5")
	require.True(t, ok)
	assert.Equal(t, 768, d.Dimension)
}

func TestLookupEmbeddingUnknown(t *testing.T) {
	_, ok := LookupEmbedding("text-embedding-ada-002")
	assert.False(t, ok)
}

func TestAllChatNonEmptyAndSorted(t *testing.T) {
	all := AllChat()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].ID, all[i].ID)
	}
}
