package chat

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/otronforge/gateway/internal/apierr"
	"github.com/otronforge/gateway/internal/generate"
	"github.com/otronforge/gateway/internal/prompt"
)

// legacyCompletionRequest mirrors the deprecated OpenAI /v1/completions
// shape, carried over per SPEC_FULL.md's supplemented-feature list: the
// original project still exposed this route for older clients.
type legacyCompletionRequest struct {
	Model         string   `json:"model"`
	Prompt        string   `json:"prompt"`
	MaxTokens     int      `json:"max_tokens"`
	Stream        bool     `json:"stream"`
	Temperature   *float64 `json:"temperature"`
	TopP          *float64 `json:"top_p"`
	TopK          *int     `json:"top_k"`
	Seed          *uint64  `json:"seed"`
	RepeatPenalty *float32 `json:"repeat_penalty"`
	RepeatLastN   *int     `json:"repeat_last_n"`
}

// LegacyCompletionsHandler returns the POST /v1/completions
// http.HandlerFunc. It reuses the chat generation pipeline by
// synthesizing a single user turn from Prompt; that turn goes through the
// model family's prompt template like any chat request, so Gemma models
// see it wrapped in user/model turn markers and other families get the
// raw prompt text.
func (s *Service) LegacyCompletionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			apierr.Write(w, &apierr.Error{Status: http.StatusMethodNotAllowed, Type: "invalid_request_error", Message: "method not allowed"})
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

		var req legacyCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierr.Write(w, apierr.InvalidRequest("malformed JSON body: "+err.Error()))
			return
		}
		if req.Prompt == "" {
			apierr.Write(w, apierr.InvalidRequest("missing required field: prompt"))
			return
		}

		inst, err := s.resolveModel(req.Model)
		if err != nil {
			apierr.Write(w, err)
			return
		}

		params := paramsFromRequest(req.MaxTokens, req.Temperature, req.TopP, req.TopK, req.Seed, req.RepeatPenalty, req.RepeatLastN)
		msgs := []prompt.Message{{Role: "user", Content: req.Prompt}}
		ch, promptText, err := s.startGeneration(inst, msgs, params)
		if err != nil {
			apierr.Write(w, err)
			return
		}

		model := inst.Descriptor.ID
		if req.Stream {
			streamLegacySSE(w, model, ch)
		} else {
			collectLegacyJSON(w, model, promptText, ch)
		}
	}
}

type legacyChoice struct {
	Text         string `json:"text"`
	Index        int    `json:"index"`
	FinishReason string `json:"finish_reason"`
}

// collectLegacyJSON drains ch into a single non-streaming text_completion
// response.
func collectLegacyJSON(w http.ResponseWriter, model, promptText string, ch <-chan generate.Fragment) {
	var sb strings.Builder
	var genErr error
	for frag := range ch {
		if frag.Err != nil {
			genErr = frag.Err
			continue
		}
		sb.WriteString(frag.Text)
	}
	if genErr != nil {
		apierr.Write(w, apierr.GenerationError(genErr.Error()))
		return
	}

	completion := sb.String()
	resp := map[string]interface{}{
		"id":      "cmpl-" + strings.ReplaceAll(newChatCompletionID(), "chatcmpl-", ""),
		"object":  "text_completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []legacyChoice{{Text: completion, Index: 0, FinishReason: "stop"}},
		"usage":   usageFor(promptText, completion),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type legacyStreamChoice struct {
	Text         string  `json:"text"`
	Index        int     `json:"index"`
	FinishReason *string `json:"finish_reason"`
}

type legacyChunk struct {
	ID      string               `json:"id"`
	Object  string               `json:"object"`
	Created int64                `json:"created"`
	Model   string               `json:"model"`
	Choices []legacyStreamChoice `json:"choices"`
}

// streamLegacySSE mirrors streamSSE's framing and repetition watchdog for
// the text_completion.chunk shape (no role field, no delta wrapper).
func streamLegacySSE(w http.ResponseWriter, model string, ch <-chan generate.Fragment) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id := "cmpl-" + strings.ReplaceAll(newChatCompletionID(), "chatcmpl-", "")
	created := time.Now().Unix()

	write := func(text string, finish *string) {
		c := legacyChunk{
			ID: id, Object: "text_completion.chunk", Created: created, Model: model,
			Choices: []legacyStreamChoice{{Text: text, Index: 0, FinishReason: finish}},
		}
		data, _ := json.Marshal(c)
		w.Write([]byte("data: "))
		w.Write(data)
		w.Write([]byte("\n\n"))
		flusher.Flush()
	}

	watchdog := newRepetitionWatchdog()
	for frag := range ch {
		if frag.Err != nil {
			break
		}
		if frag.Text == "" {
			continue
		}
		write(frag.Text, nil)
		if watchdog.observe(frag.Text) {
			break
		}
	}
	write("", stopReason())
	w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
}
