package chat

import (
	"testing"

	"github.com/otronforge/gateway/internal/apierr"
	"github.com/otronforge/gateway/internal/chatmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsFromRequestAppliesDefaults(t *testing.T) {
	p := paramsFromRequest(0, nil, nil, nil, nil, nil, nil)
	assert.Equal(t, DefaultMaxTokens, p.maxTokens)
	assert.Equal(t, defaultTemperature, p.temperature)
	assert.Equal(t, uint64(defaultSeed), p.seed)
	assert.Equal(t, float32(defaultRepeatPenalty), p.repeatPenalty)
	assert.Equal(t, defaultRepeatLastN, p.repeatLastN)
	assert.Nil(t, p.topP)
	assert.Nil(t, p.topK)
}

func TestParamsFromRequestHonorsOverrides(t *testing.T) {
	temp := 0.2
	topP := 0.9
	topK := 40
	seed := uint64(7)
	penalty := float32(1.2)
	lastN := 128

	p := paramsFromRequest(50, &temp, &topP, &topK, &seed, &penalty, &lastN)
	assert.Equal(t, 50, p.maxTokens)
	assert.Equal(t, temp, p.temperature)
	assert.Equal(t, &topP, p.topP)
	assert.Equal(t, &topK, p.topK)
	assert.Equal(t, seed, p.seed)
	assert.Equal(t, penalty, p.repeatPenalty)
	assert.Equal(t, lastN, p.repeatLastN)
}

func TestResolveModelUnknownIDReturnsModelNotSupported(t *testing.T) {
	s := NewService(nil, nil, "", chatmodel.Options{})
	_, err := s.resolveModel("totally-unknown-model")
	var ae *apierr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "model_not_supported", ae.Type)
}

func TestResolveModelEmptyIDWithoutDefaultFails(t *testing.T) {
	s := NewService(nil, nil, "", chatmodel.Options{})
	_, err := s.resolveModel("")
	assert.Error(t, err)
}

func TestUsageForApproximatesByteOverFour(t *testing.T) {
	u := usageFor("abcdefgh", "abcd")
	assert.Equal(t, 2, u["prompt_tokens"])
	assert.Equal(t, 1, u["completion_tokens"])
	assert.Equal(t, 3, u["total_tokens"])
}
