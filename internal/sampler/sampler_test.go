package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgmaxWhenTemperatureZero(t *testing.T) {
	s := New(1, 0, nil, nil)
	logits := []float32{0.1, 5.0, 0.2}
	assert.Equal(t, int32(1), s.Sample(logits))
}

func TestArgmaxIsDeterministicAcrossCalls(t *testing.T) {
	s := New(1, 0, nil, nil)
	logits := []float32{0.1, 5.0, 0.2}
	first := s.Sample(logits)
	second := s.Sample(logits)
	assert.Equal(t, first, second)
}

func TestSameSeedProducesSameSequence(t *testing.T) {
	logits := []float32{1, 2, 3, 0.5}
	a := New(42, 1.0, nil, nil)
	b := New(42, 1.0, nil, nil)

	var seqA, seqB []int32
	for i := 0; i < 10; i++ {
		seqA = append(seqA, a.Sample(logits))
		seqB = append(seqB, b.Sample(logits))
	}
	assert.Equal(t, seqA, seqB)
}

func TestTopKOneIsEquivalentToArgmax(t *testing.T) {
	k := 1
	s := New(7, 1.0, &k, nil)
	logits := []float32{0.1, 9.0, 0.2, -3.0}
	for i := 0; i < 5; i++ {
		assert.Equal(t, int32(1), s.Sample(logits))
	}
}

func TestTopPNearZeroConcentratesOnArgmax(t *testing.T) {
	p := 0.001
	s := New(3, 1.0, nil, &p)
	logits := []float32{0.1, 9.0, 0.2, -3.0}
	for i := 0; i < 5; i++ {
		assert.Equal(t, int32(1), s.Sample(logits))
	}
}

func TestSampleAlwaysReturnsValidIndex(t *testing.T) {
	s := New(5, 2.0, nil, nil)
	logits := []float32{1, 1, 1, 1, 1}
	for i := 0; i < 50; i++ {
		id := s.Sample(logits)
		assert.True(t, id >= 0 && int(id) < len(logits))
	}
}
