// Package chat implements the Chat Service (C10, §4.10): the
// /v1/chat/completions endpoint with non-streaming aggregation and SSE
// streaming, plus (§SPEC_FULL.md supplemented feature 1) the legacy
// /v1/completions text-completion endpoint over the same pipeline.
// Grounded in inference-engine/src/server.rs's chat_completions handler
// and the teacher's handleChat/streamChat/collectChat trio in
// internal/api/server.go, whose streaming-vs-buffered split this package
// mirrors almost exactly — only the upstream changes from an Ollama HTTP
// call to the in-process Generation Loop.
package chat

import (
	"fmt"

	"github.com/otronforge/gateway/internal/apierr"
	"github.com/otronforge/gateway/internal/chatmodel"
	"github.com/otronforge/gateway/internal/generate"
	"github.com/otronforge/gateway/internal/metrics"
	"github.com/otronforge/gateway/internal/modelcache"
	"github.com/otronforge/gateway/internal/models"
	"github.com/otronforge/gateway/internal/prompt"
	"github.com/otronforge/gateway/internal/sampler"
	"github.com/otronforge/gateway/internal/weights"
)

// Defaults for sampler/penalty parameters not supplied by a request,
// carried over from gemma-runner/src/gemma_cli.rs and llama-runner's CLI
// defaults (temperature 0.8, seed 299792458, repeat_penalty 1.1,
// repeat_last_n 64) — the same values this project's original CLI tools
// shipped.
const (
	DefaultMaxTokens     = 1000
	defaultTemperature   = 0.8
	defaultSeed          = 299792458
	defaultRepeatPenalty = 1.1
	defaultRepeatLastN   = 64
)

// Service serves chat and legacy text completions over the generation
// pipeline (C1-C8), backed by a process-wide, never-evicted model cache.
type Service struct {
	resolver     *weights.Resolver
	cache        *modelcache.Cache[string, *chatmodel.Instance]
	metrics      *metrics.Collector
	defaultModel string
	modelOpts    chatmodel.Options
}

// NewService builds a Service. defaultModel substitutes for a request
// that omits "model" entirely (not the literal string "default" — see
// DESIGN.md's Open Question resolution); it may be empty.
func NewService(resolver *weights.Resolver, mc *metrics.Collector, defaultModel string, modelOpts chatmodel.Options) *Service {
	return &Service{
		resolver:     resolver,
		cache:        modelcache.New[string, *chatmodel.Instance](),
		metrics:      mc,
		defaultModel: defaultModel,
		modelOpts:    modelOpts,
	}
}

// resolveModel normalizes and looks up id (falling back to the
// configured default model when id is empty), returning a
// model_not_supported apierr.Error for anything not in the descriptor
// table and a model_init_failure for a load error.
func (s *Service) resolveModel(id string) (*chatmodel.Instance, error) {
	if id == "" {
		id = s.defaultModel
	}
	if id == "" {
		return nil, apierr.ModelNotSupported("missing required field: model")
	}
	desc, ok := models.LookupChat(id)
	if !ok {
		return nil, apierr.ModelNotSupported(fmt.Sprintf("Unsupported model: %s", id))
	}
	inst, err := s.cache.GetOrCreate(desc.ID, func() (*chatmodel.Instance, error) {
		return chatmodel.Build(s.resolver, desc, s.modelOpts)
	})
	if err != nil {
		return nil, apierr.ModelInitFailure(err.Error())
	}
	return inst, nil
}

// Warm loads id into the model cache without generating, so the first
// real request doesn't pay the weight-resolve/decode cost. id empty is a
// no-op (no configured default to warm).
func (s *Service) Warm(id string) error {
	if id == "" {
		return nil
	}
	_, err := s.resolveModel(id)
	return err
}

// requestParams is the subset of an incoming request that drives the
// sampler/penalty/loop, with defaults already applied.
type requestParams struct {
	maxTokens     int
	temperature   float64
	topP          *float64
	topK          *int
	seed          uint64
	repeatPenalty float32
	repeatLastN   int
}

// startGeneration assembles the prompt for inst's family and launches
// the generation loop, returning its fragment channel plus the assembled
// prompt text (callers need it for the coarse byte/4 usage estimate).
func (s *Service) startGeneration(inst *chatmodel.Instance, msgs []prompt.Message, p requestParams) (<-chan generate.Fragment, string, error) {
	promptText := prompt.Assemble(inst.Descriptor.Family, msgs)

	r, err := inst.NewRunner()
	if err != nil {
		return nil, "", apierr.ModelInitFailure(err.Error())
	}
	ts := inst.NewTokenizerStream()
	samp := sampler.New(p.seed, p.temperature, p.topK, p.topP)

	ch := generate.Stream(r, inst, ts, promptText, generate.Options{
		MaxTokens:     p.maxTokens,
		Sampler:       samp,
		RepeatPenalty: p.repeatPenalty,
		RepeatLastN:   p.repeatLastN,
		Metrics:       s.metrics,
	})
	return ch, promptText, nil
}

func paramsFromRequest(maxTokens int, temperature, topP *float64, topK *int, seed *uint64, repeatPenalty *float32, repeatLastN *int) requestParams {
	p := requestParams{
		maxTokens:     DefaultMaxTokens,
		temperature:   defaultTemperature,
		seed:          defaultSeed,
		repeatPenalty: defaultRepeatPenalty,
		repeatLastN:   defaultRepeatLastN,
	}
	if maxTokens > 0 {
		p.maxTokens = maxTokens
	}
	if temperature != nil {
		p.temperature = *temperature
	}
	p.topP = topP
	p.topK = topK
	if seed != nil {
		p.seed = *seed
	}
	if repeatPenalty != nil {
		p.repeatPenalty = *repeatPenalty
	}
	if repeatLastN != nil {
		p.repeatLastN = *repeatLastN
	}
	return p
}
