// Package chatmodel builds and caches the immutable part of a chat Model
// instance (§3): resolved weights, parsed config, tokenizer and the
// chosen device/dtype. Per §9's "recreate runtime state per request"
// guidance, the mutable parts — the KV-cache-bearing Runner, the
// tokenizer stream, the sampler's RNG — are never stored on the Instance;
// NewRunner/NewTokenizerStream build fresh ones over the same shared,
// read-only weights for every request, which is how this repo satisfies
// §5's "concurrent requests produce independent, correct outputs"
// contract without a per-instance request lock.
package chatmodel

import (
	"fmt"
	"os"

	"github.com/otronforge/gateway/internal/device"
	"github.com/otronforge/gateway/internal/models"
	"github.com/otronforge/gateway/internal/runner"
	"github.com/otronforge/gateway/internal/tensor"
	"github.com/otronforge/gateway/internal/tokenizer"
	"github.com/otronforge/gateway/internal/tokenstream"
	"github.com/otronforge/gateway/internal/weights"
)

// Instance holds everything about one loaded chat model that is safe to
// share read-only across concurrent requests.
type Instance struct {
	Descriptor models.ChatDescriptor
	Config     weights.Config
	Weights    map[string]tensor.Matrix
	Tokenizer  *tokenizer.Tokenizer
	Device     device.Selection
}

// Options configures model construction; ForceCPU and DTypeOverride are
// operator-level overrides threaded down from gateway config/CLI flags.
type Options struct {
	ForceCPU      bool
	DTypeOverride string
}

// Build resolves repoID's files (downloading into the resolver's cache on
// first use), decodes its weights, and selects a device — everything a
// ready-to-serve Instance needs, but none of it per-request.
func Build(resolver *weights.Resolver, desc models.ChatDescriptor, opts Options) (*Instance, error) {
	paths, err := resolver.Resolve(desc.RepoID, "")
	if err != nil {
		return nil, fmt.Errorf("chatmodel: resolving %s: %w", desc.RepoID, err)
	}

	tok, err := tokenizer.Load(paths.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("chatmodel: loading tokenizer for %s: %w", desc.ID, err)
	}

	rawCfg, err := os.ReadFile(paths.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("chatmodel: reading config for %s: %w", desc.ID, err)
	}
	cfg, err := weights.ParseConfig(rawCfg)
	if err != nil {
		return nil, fmt.Errorf("chatmodel: parsing config for %s: %w", desc.ID, err)
	}

	w, err := weights.LoadSafetensors(paths.WeightPaths)
	if err != nil {
		return nil, fmt.Errorf("chatmodel: loading weights for %s: %w", desc.ID, err)
	}

	sel, err := device.Select(opts.ForceCPU, desc.Family, opts.DTypeOverride, device.Detect())
	if err != nil {
		return nil, fmt.Errorf("chatmodel: selecting device for %s: %w", desc.ID, err)
	}

	return &Instance{
		Descriptor: desc,
		Config:     cfg,
		Weights:    w,
		Tokenizer:  tok,
		Device:     sel,
	}, nil
}

// NewRunner builds a fresh Runner over the instance's shared weights: its
// own empty KV-cache, wrapped in the device-fallback decorator whenever
// the primary device isn't already CPU.
func (inst *Instance) NewRunner() (runner.Runner, error) {
	primary, err := runner.Load(inst.Descriptor.Family, inst.Config, inst.Weights)
	if err != nil {
		return nil, fmt.Errorf("chatmodel: building runner for %s: %w", inst.Descriptor.ID, err)
	}
	if inst.Device.Device == device.CPU {
		return primary, nil
	}

	cpuRunner, err := runner.Load(inst.Descriptor.Family, inst.Config, inst.Weights)
	if err != nil {
		return nil, fmt.Errorf("chatmodel: building CPU fallback runner for %s: %w", inst.Descriptor.ID, err)
	}
	return runner.NewFallbackRunner(primary, inst.Device.Device, cpuRunner), nil
}

// NewTokenizerStream builds a fresh incremental detokenizer over the
// instance's shared tokenizer, one per request per §4.3/§4.7.
func (inst *Instance) NewTokenizerStream() *tokenstream.Stream {
	return tokenstream.New(inst.Tokenizer)
}

// Encode tokenizes text through the instance's shared tokenizer; it
// satisfies internal/generate.Encoder.
func (inst *Instance) Encode(text string) ([]int32, error) {
	return inst.Tokenizer.Encode(text)
}
