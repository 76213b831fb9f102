// Package device implements the Device Selector (C1): choosing CUDA / Metal
// / CPU and a default numeric precision. Select's CPU dtype default
// consults internal/cpu's RAM heuristic (AvailableRAMGB) instead of being
// a fixed constant, the one place this package actually feeds a decision;
// the rest of internal/cpu's topology detail (core counts, SIMD features)
// stays on the capability/banner surface the teacher's dashboard exposed it
// on (GET /api/device, the startup banner), not a Select input.
//
// Grounded in gemma_api.rs/llama_api.rs's device selection (`device(cpu)`
// helper in the original candle-based runners) and text_generation.rs's
// dtype handling; CUDA/Metal probing itself is a tensor-kernel concern this
// spec explicitly treats as a given capability (see SPEC_FULL.md §2), so
// Available() below is the seam a real CUDA/Metal build tag would fill in.
package device

import (
	"fmt"

	"github.com/otronforge/gateway/internal/cpu"
	"github.com/otronforge/gateway/internal/logging"
	"github.com/otronforge/gateway/internal/models"
)

// Kind identifies the selected compute device.
type Kind string

const (
	CPU   Kind = "cpu"
	CUDA  Kind = "cuda"
	Metal Kind = "metal"
)

// DType identifies the numeric precision used for weights and activations.
type DType string

const (
	F16  DType = "f16"
	BF16 DType = "bf16"
	F32  DType = "f32"
)

// Selection is the resolved device + dtype pair for one model instance.
type Selection struct {
	Device Kind
	DType  DType
}

// Availability reports which accelerators this build/host can use. Real
// CUDA/Metal detection lives behind a tensor-kernel library per spec §1;
// this repo's pure-Go reference ops (internal/tensor) only ever run on CPU,
// so both flags are hooks for a future accelerated build rather than a
// currently reachable code path.
type Availability struct {
	CUDAAvailable  bool
	MetalAvailable bool
}

// Detect probes for accelerators. In this pure-Go build neither is ever
// available; kept as a named seam so a CUDA/Metal-enabled build can swap
// the implementation without touching callers.
func Detect() Availability {
	return Availability{}
}

// cpuFullPrecisionRAMGB is the AvailableRAMGB threshold above which a CPU
// selection defaults to f32 instead of f16: f16 buys lower memory
// footprint, not speed, on a pure-Go CPU kernel, so it's only the right
// default on memory-constrained hosts.
const cpuFullPrecisionRAMGB = 16.0

// Select implements §4.1's selection order and dtype defaults, plus the
// Gemma-v3-on-Metal downgrade the spec calls out explicitly.
func Select(forceCPU bool, family models.Family, dtypeOverride string, avail Availability) (Selection, error) {
	log := logging.Named("device")

	kind := CPU
	switch {
	case forceCPU:
		kind = CPU
	case avail.CUDAAvailable:
		kind = CUDA
	case avail.MetalAvailable:
		kind = Metal
	}

	if family == models.FamilyGemmaV3 && kind == Metal {
		log.Warn().Msg("gemma-v3 rotary-embed kernel unavailable on Metal, downgrading to CPU")
		kind = CPU
	}

	dtype := F16
	switch kind {
	case CUDA:
		dtype = BF16
	case CPU:
		if AvailableRAMGB() >= cpuFullPrecisionRAMGB {
			dtype = F32
		}
	}
	if dtypeOverride != "" {
		switch DType(dtypeOverride) {
		case F16, BF16, F32:
			dtype = DType(dtypeOverride)
		default:
			return Selection{}, fmt.Errorf("unknown dtype override %q: must be f16, bf16, or f32", dtypeOverride)
		}
	}

	log.Debug().Str("device", string(kind)).Str("dtype", string(dtype)).Str("family", string(family)).Msg("selected device")
	return Selection{Device: kind, DType: dtype}, nil
}

// AvailableRAMGB reports the RAM available to the current process, used to
// pick a conservative default when no explicit dtype override is set (e.g.
// favoring f16 over f32 on memory-constrained hosts). Detection mirrors the
// teacher's cpu topology package: cgroup-aware on Linux, runtime stats
// elsewhere.
func AvailableRAMGB() float64 {
	return cpu.AvailableRAMGB()
}
