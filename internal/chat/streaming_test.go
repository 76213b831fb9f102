package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepetitionWatchdogTriggersAtFiveConsecutiveRepeats(t *testing.T) {
	w := newRepetitionWatchdog()
	for i := 0; i < 4; i++ {
		assert.False(t, w.observe("the"))
	}
	assert.True(t, w.observe("the"))
}

func TestRepetitionWatchdogResetsOnChange(t *testing.T) {
	w := newRepetitionWatchdog()
	for i := 0; i < 4; i++ {
		assert.False(t, w.observe("the"))
	}
	assert.False(t, w.observe("quick"))
	for i := 0; i < 3; i++ {
		assert.False(t, w.observe("quick"))
	}
	assert.True(t, w.observe("quick"))
}

func TestRepetitionWatchdogNeverTriggersOnVariedFragments(t *testing.T) {
	w := newRepetitionWatchdog()
	words := []string{"the", "quick", "brown", "fox", "jumps", "over", "the", "lazy", "dog"}
	for _, word := range words {
		assert.False(t, w.observe(word))
	}
}
