package runner

import (
	"errors"
	"testing"

	"github.com/otronforge/gateway/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	forwardErr  error
	resetCalled int
	calls       int
}

func (s *stubRunner) Forward(ids []int32, startPos int) ([]float32, error) {
	s.calls++
	if s.forwardErr != nil {
		return nil, s.forwardErr
	}
	return []float32{1, 2, 3}, nil
}

func (s *stubRunner) Reset() { s.resetCalled++ }

func TestFallbackPassesThroughOnSuccess(t *testing.T) {
	primary := &stubRunner{}
	cpu := &stubRunner{}
	f := NewFallbackRunner(primary, device.CUDA, cpu)

	logits, err := f.Forward([]int32{1}, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, logits)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, cpu.calls)
}

func TestFallbackRetriesOnMatchingDeviceError(t *testing.T) {
	primary := &stubRunner{forwardErr: errors.New("no cuda implementation for broadcast_add")}
	cpu := &stubRunner{}
	f := NewFallbackRunner(primary, device.CUDA, cpu)

	_, err := f.Forward([]int32{1}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, cpu.calls)
}

func TestFallbackLatchesCPUAfterFirstFailure(t *testing.T) {
	primary := &stubRunner{forwardErr: errors.New("shape mismatch")}
	cpu := &stubRunner{}
	f := NewFallbackRunner(primary, device.CUDA, cpu)

	_, _ = f.Forward([]int32{1}, 0)
	_, _ = f.Forward([]int32{2}, 1)

	assert.Equal(t, 1, primary.calls) // second call never touches primary again
	assert.Equal(t, 2, cpu.calls)
}

func TestFallbackPropagatesUnmatchedErrors(t *testing.T) {
	primary := &stubRunner{forwardErr: errors.New("tokenizer exploded")}
	cpu := &stubRunner{}
	f := NewFallbackRunner(primary, device.CUDA, cpu)

	_, err := f.Forward([]int32{1}, 0)
	assert.Error(t, err)
	assert.Equal(t, 0, cpu.calls)
}

func TestResetRearmsPrimaryForNonCPUDevice(t *testing.T) {
	primary := &stubRunner{forwardErr: errors.New("shape mismatch")}
	cpu := &stubRunner{}
	f := NewFallbackRunner(primary, device.CUDA, cpu)

	_, _ = f.Forward([]int32{1}, 0)
	assert.False(t, f.tryPrimary)

	f.Reset()
	assert.True(t, f.tryPrimary)
	assert.Equal(t, 1, primary.resetCalled)
	assert.Equal(t, 1, cpu.resetCalled)
}

func TestResetNeverArmsPrimaryWhenItIsAlreadyCPU(t *testing.T) {
	primary := &stubRunner{}
	f := NewFallbackRunner(primary, device.CPU, nil)
	f.Reset()
	assert.False(t, f.tryPrimary)
}
