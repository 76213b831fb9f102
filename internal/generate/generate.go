// Package generate implements the generation loop (§4.7): drive a
// Model Runner token by token through a tokenizer stream, repetition
// penalty and sampler, emitting text fragments on a channel the way
// TextGeneration::run_with_output's tokio::spawn loop in
// inference-engine/src/text_generation.rs feeds its mpsc Sender.
package generate

import (
	"fmt"
	"time"

	"github.com/otronforge/gateway/internal/logging"
	"github.com/otronforge/gateway/internal/metrics"
	"github.com/otronforge/gateway/internal/penalty"
	"github.com/otronforge/gateway/internal/runner"
	"github.com/otronforge/gateway/internal/sampler"
	"github.com/otronforge/gateway/internal/tokenstream"
)

// Fragment is one item delivered on a generation channel: either a
// decoded text slice, or a terminal error after which the channel
// closes.
type Fragment struct {
	Text string
	Err  error
}

// Encoder is the subset of *tokenizer.Tokenizer the loop needs to turn a
// prompt string into ids.
type Encoder interface {
	Encode(text string) ([]int32, error)
}

// Options configures one generation request.
type Options struct {
	MaxTokens     int
	Sampler       *sampler.Sampler
	RepeatPenalty float32
	RepeatLastN   int
	Metrics       *metrics.Collector
}

// Stream runs the generation loop for prompt against r, returning a
// channel of fragments. The channel closes when generation finishes,
// stops early (EOS/end-of-turn/max_tokens), or errors; closing the
// channel is the only "done" signal consumers should rely on.
func Stream(r runner.Runner, enc Encoder, ts *tokenstream.Stream, prompt string, opts Options) <-chan Fragment {
	out := make(chan Fragment, opts.MaxTokens+2)
	go run(out, r, enc, ts, prompt, opts)
	return out
}

func run(out chan<- Fragment, r runner.Runner, enc Encoder, ts *tokenstream.Stream, prompt string, opts Options) {
	defer close(out)
	log := logging.Named("generate")

	ts.Clear()
	r.Reset()
	cache := penalty.New(opts.RepeatPenalty, opts.RepeatLastN)

	promptIDs, err := enc.Encode(prompt)
	if err != nil {
		out <- Fragment{Err: fmt.Errorf("generate: encoding prompt: %w", err)}
		return
	}
	for _, id := range promptIDs {
		ts.Push(id) // warm tokenizer state; prompt fragments are not emitted
	}

	eos, ok := ts.Lookup("<eos>")
	if !ok {
		out <- Fragment{Err: fmt.Errorf("generate: tokenizer has no <eos> token")}
		return
	}
	endOfTurn, hasEndOfTurn := ts.Lookup("<end_of_turn>")
	if !hasEndOfTurn {
		log.Warn().Msg("tokenizer has no <end_of_turn>; falling back to <eos> for turn termination")
		endOfTurn = eos
	}

	var stopCollector func(tokens int)
	var firstTokenAt time.Time
	if opts.Metrics != nil {
		done := opts.Metrics.RequestStart()
		start := time.Now()
		stopCollector = func(tokens int) {
			if tokens > 0 {
				ttft := 0.0
				if !firstTokenAt.IsZero() {
					ttft = float64(firstTokenAt.Sub(start).Milliseconds())
				}
				tpot := 0.0
				if tokens > 1 && !firstTokenAt.IsZero() {
					tpot = float64(time.Since(firstTokenAt).Milliseconds()) / float64(tokens-1)
				}
				opts.Metrics.RecordTokens(int64(tokens), ttft, tpot)
			}
			done()
		}
	}

	history := append([]int32(nil), promptIDs...)
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	tokensEmitted := 0
	defer func() {
		if stopCollector != nil {
			stopCollector(tokensEmitted)
		}
	}()

	for step := 0; step < maxTokens; step++ {
		var ids []int32
		startPos := 0
		if step == 0 {
			ids = promptIDs
			startPos = 0
		} else {
			ids = history[len(history)-1:]
			startPos = len(history) - 1
		}

		logits, err := r.Forward(ids, startPos)
		if err != nil {
			out <- Fragment{Err: fmt.Errorf("generate: forward: %w", err)}
			return
		}

		if !cache.IsIdentity() {
			logits = cache.Apply(logits, history)
		}

		next := opts.Sampler.Sample(logits)
		history = append(history, next)

		if next == eos || next == endOfTurn {
			break
		}

		if fragment, ok := ts.Push(next); ok && fragment != "" {
			if firstTokenAt.IsZero() {
				firstTokenAt = time.Now()
			}
			tokensEmitted++
			out <- Fragment{Text: fragment}
		}
	}

	if fragment, ok := ts.Flush(); ok && fragment != "" {
		out <- Fragment{Text: fragment}
	}
}
