package chat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/otronforge/gateway/internal/generate"
	"github.com/otronforge/gateway/internal/logging"
)

// watchdogWindow is how many trailing fragments the repetition watchdog
// inspects, and watchdogTrigger is the consecutive-repeat count at which
// it stops generation early, per §4.10.
const (
	watchdogWindow  = 8
	watchdogTrigger = 5
)

type delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type chunkChoice struct {
	Index        int     `json:"index"`
	Delta        delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

type chunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
}

func stopReason() *string {
	s := "stop"
	return &s
}

// streamSSE drains ch, emitting the OpenAI SSE event sequence of §4.10:
// one role chunk, one content chunk per non-empty fragment (subject to
// the repetition watchdog), one stop chunk, then the literal [DONE]
// event.
func streamSSE(w http.ResponseWriter, model string, ch <-chan generate.Fragment) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id := newChatCompletionID()
	created := time.Now().Unix()
	log := logging.Named("chat")

	writeChunk := func(d delta, finish *string) {
		c := chunk{
			ID: id, Object: "chat.completion.chunk", Created: created, Model: model,
			Choices: []chunkChoice{{Index: 0, Delta: d, FinishReason: finish}},
		}
		data, _ := json.Marshal(c)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	// 1. role chunk, always first.
	writeChunk(delta{Role: "assistant"}, nil)

	watchdog := newRepetitionWatchdog()
	for frag := range ch {
		if frag.Err != nil {
			log.Warn().Err(frag.Err).Msg("generation error mid-stream")
			break
		}
		if frag.Text == "" {
			continue
		}
		writeChunk(delta{Content: frag.Text}, nil)
		if watchdog.observe(frag.Text) {
			log.Warn().Str("fragment", frag.Text).Msg("repetition watchdog triggered, stopping early")
			break
		}
	}

	// 3. final stop chunk, then 4. [DONE] — emitted whether generation
	// ran to completion, hit EOS, errored, or was cut short by the
	// watchdog (§4.10/§8: "the stream still ends with one stop chunk
	// followed by [DONE]").
	writeChunk(delta{}, stopReason())
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// repetitionWatchdog implements §4.10's belt-and-braces guard: a sliding
// window of the last watchdogWindow emitted fragments, counting
// consecutive repeats of the same fragment and signaling once the count
// reaches watchdogTrigger.
type repetitionWatchdog struct {
	window []string
	last   string
	streak int
}

func newRepetitionWatchdog() *repetitionWatchdog {
	return &repetitionWatchdog{window: make([]string, 0, watchdogWindow)}
}

// observe records fragment and returns true once it has repeated
// consecutively watchdogTrigger times.
func (r *repetitionWatchdog) observe(fragment string) bool {
	if fragment == r.last {
		r.streak++
	} else {
		r.last = fragment
		r.streak = 1
	}

	r.window = append(r.window, fragment)
	if len(r.window) > watchdogWindow {
		r.window = r.window[len(r.window)-watchdogWindow:]
	}

	return r.streak >= watchdogTrigger
}
