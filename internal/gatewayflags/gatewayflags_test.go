package gatewayflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStoreAllFlagsDisabled(t *testing.T) {
	s := NewStore()
	for _, info := range s.All() {
		assert.False(t, info.Enabled)
	}
}

func TestSetUnknownFlagReturnsFalse(t *testing.T) {
	s := NewStore()
	assert.False(t, s.Set("not_a_real_flag", true))
}

func TestSetKnownFlagTogglesState(t *testing.T) {
	s := NewStore()
	require := assert.New(t)

	require.True(s.Set(ForceCPU, true))
	require.True(s.IsEnabled(ForceCPU))

	require.True(s.Set(ForceCPU, false))
	require.False(s.IsEnabled(ForceCPU))
}

func TestIsEnabledUnknownFlagIsFalse(t *testing.T) {
	s := NewStore()
	assert.False(t, s.IsEnabled("nope"))
}
