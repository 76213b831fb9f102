package runner

import (
	"regexp"

	"github.com/otronforge/gateway/internal/device"
	"github.com/otronforge/gateway/internal/logging"
)

// deviceErrorPattern matches the backend error strings this project has
// observed requiring a CPU retry, grounded in
// TextGeneration::execute_with_fallback's match arm in
// inference-engine/src/text_generation.rs.
var deviceErrorPattern = regexp.MustCompile(`(?i)no (metal|cuda) implementation for|shape mismatch`)

// FallbackRunner decorates a Runner with the device-fallback policy of
// §4.6: retry on CPU when the primary device rejects an op, then stay on
// CPU until the next Reset. chatmodel builds a new FallbackRunner for
// every request, so a CPU latch never carries over to a later request.
type FallbackRunner struct {
	primary     Runner
	cpu         Runner
	primaryKind device.Kind
	tryPrimary  bool
}

// NewFallbackRunner wraps primary with a CPU retry path. cpu may be nil
// when the primary device already is CPU, in which case the decorator is
// a transparent pass-through.
func NewFallbackRunner(primary Runner, primaryKind device.Kind, cpu Runner) *FallbackRunner {
	return &FallbackRunner{
		primary:     primary,
		cpu:         cpu,
		primaryKind: primaryKind,
		tryPrimary:  primaryKind != device.CPU,
	}
}

// Reset re-arms the primary device attempt at the start of a new request,
// clearing any CPU latch set by an earlier Forward failure.
func (f *FallbackRunner) Reset() {
	if f.primaryKind != device.CPU {
		f.tryPrimary = true
	}
	f.primary.Reset()
	if f.cpu != nil {
		f.cpu.Reset()
	}
}

// Forward tries the primary device first (unless an earlier Forward since
// the last Reset already latched CPU), falling back to CPU on a matching
// device error and staying on CPU until the next Reset.
func (f *FallbackRunner) Forward(ids []int32, startPos int) ([]float32, error) {
	if f.cpu == nil {
		return f.primary.Forward(ids, startPos)
	}
	if !f.tryPrimary {
		return f.cpu.Forward(ids, startPos)
	}

	logits, err := f.primary.Forward(ids, startPos)
	if err == nil {
		return logits, nil
	}
	if !deviceErrorPattern.MatchString(err.Error()) {
		return nil, err
	}

	logging.Named("runner").Warn().Err(err).Msg("primary device forward failed, falling back to CPU")
	f.tryPrimary = false
	return f.cpu.Forward(ids, startPos)
}
