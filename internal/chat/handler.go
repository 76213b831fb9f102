package chat

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otronforge/gateway/internal/apierr"
	"github.com/otronforge/gateway/internal/generate"
	"github.com/otronforge/gateway/internal/prompt"
)

const maxRequestBodyBytes = 10 * 1024 * 1024

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model         string    `json:"model"`
	Messages      []message `json:"messages"`
	MaxTokens     int       `json:"max_tokens"`
	Stream        bool      `json:"stream"`
	Temperature   *float64  `json:"temperature"`
	TopP          *float64  `json:"top_p"`
	TopK          *int      `json:"top_k"`
	Seed          *uint64   `json:"seed"`
	RepeatPenalty *float32  `json:"repeat_penalty"`
	RepeatLastN   *int      `json:"repeat_last_n"`
}

func toPromptMessages(msgs []message) []prompt.Message {
	out := make([]prompt.Message, len(msgs))
	for i, m := range msgs {
		out[i] = prompt.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

// CompletionsHandler returns the POST /v1/chat/completions http.HandlerFunc.
func (s *Service) CompletionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			apierr.Write(w, &apierr.Error{Status: http.StatusMethodNotAllowed, Type: "invalid_request_error", Message: "method not allowed"})
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierr.Write(w, apierr.InvalidRequest("malformed JSON body: "+err.Error()))
			return
		}

		inst, err := s.resolveModel(req.Model)
		if err != nil {
			apierr.Write(w, err)
			return
		}

		params := paramsFromRequest(req.MaxTokens, req.Temperature, req.TopP, req.TopK, req.Seed, req.RepeatPenalty, req.RepeatLastN)
		ch, promptText, err := s.startGeneration(inst, toPromptMessages(req.Messages), params)
		if err != nil {
			apierr.Write(w, err)
			return
		}

		model := inst.Descriptor.ID
		if req.Stream {
			streamSSE(w, model, ch)
		} else {
			collectJSON(w, model, promptText, ch)
		}
	}
}

func newChatCompletionID() string {
	return "chatcmpl-" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// collectJSON drains ch into a single non-streaming chat.completion
// response (§4.10).
func collectJSON(w http.ResponseWriter, model, promptText string, ch <-chan generate.Fragment) {
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
		"id":      newChatCompletionID(),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": completion},
				"finish_reason": "stop",
			},
		},
		"usage": usageFor(promptText, completion),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// usageFor computes the byte/4 token estimate §4.10 admits is coarse:
// "usage counts are byte/4 approximations; real token accounting would
// require re-tokenizing the output."
func usageFor(promptText, completion string) map[string]int {
	promptTokens := len(promptText) / 4
	completionTokens := len(completion) / 4
	return map[string]int{
		"prompt_tokens":     promptTokens,
		"completion_tokens": completionTokens,
		"total_tokens":      promptTokens + completionTokens,
	}
}
