package embeddings

import (
	"encoding/json"
	"net/http"

	"github.com/otronforge/gateway/internal/apierr"
)

const maxRequestBodyBytes = 10 * 1024 * 1024

// request mirrors OpenAI's CreateEmbeddingRequest; Input is decoded
// manually because it's one of several shapes (string, array of string,
// or — rejected — array of ints).
type request struct {
	Model string          `json:"model"`
	Input json.RawMessage `json:"input"`
}

// Handler returns the POST /v1/embeddings http.HandlerFunc backed by e.
func (e *Engine) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			apierr.Write(w, &apierr.Error{Status: http.StatusMethodNotAllowed, Type: "invalid_request_error", Message: "method not allowed"})
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierr.Write(w, apierr.InvalidRequest("malformed JSON body: "+err.Error()))
			return
		}
		if req.Model == "" {
			apierr.Write(w, apierr.InvalidRequest("missing required field: model"))
			return
		}

		inputs, err := decodeInput(req.Input)
		if err != nil {
			apierr.Write(w, err)
			return
		}

		result, err := e.Embed(req.Model, inputs)
		if err != nil {
			apierr.Write(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toResponse(req.Model, result))
	}
}

// decodeInput accepts a JSON string or array-of-strings, and rejects
// array-of-ints with unsupported_input per §4.9.
func decodeInput(raw json.RawMessage) ([]string, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return []string{asString}, nil
	}

	var asStrings []string
	if err := json.Unmarshal(raw, &asStrings); err == nil {
		if len(asStrings) == 0 {
			return nil, apierr.InvalidRequest("input must not be empty")
		}
		return asStrings, nil
	}

	var asInts []int
	if err := json.Unmarshal(raw, &asInts); err == nil {
		return nil, apierr.UnsupportedInput("integer-array input is not supported for text embeddings")
	}

	return nil, apierr.InvalidRequest("input must be a string or array of strings")
}

type responseItem struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type usage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type response struct {
	Object string         `json:"object"`
	Data   []responseItem `json:"data"`
	Model  string         `json:"model"`
	Usage  usage          `json:"usage"`
}

// toResponse shapes Result into the OpenAI embeddings schema; usage is
// always zero per §4.9 ("token accounting is not required").
func toResponse(model string, result Result) response {
	data := make([]responseItem, len(result.Vectors))
	for i, v := range result.Vectors {
		data[i] = responseItem{Object: "embedding", Index: i, Embedding: v}
	}
	return response{Object: "list", Data: data, Model: model, Usage: usage{}}
}
