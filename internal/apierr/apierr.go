// Package apierr is the last stop before the HTTP boundary: every error
// kind in §7 (InvalidRequest, ModelNotSupported, ModelInitFailure,
// GenerationError, UpstreamFailure, Timeout) converts to the OpenAI error
// envelope here, so inner packages (chat, embeddings, runner, generate)
// stay ignorant of HTTP status codes — they just return plain errors.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Error is an HTTP-boundary error: a status code, an OpenAI-style error
// "type" string, and a human message.
type Error struct {
	Status  int
	Type    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// InvalidRequest builds a 400 invalid_request_error.
func InvalidRequest(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Type: "invalid_request_error", Message: msg}
}

// ModelNotSupported builds a 400 model_not_supported.
func ModelNotSupported(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Type: "model_not_supported", Message: msg}
}

// InvalidModel builds a 400 invalid_model (embeddings' unknown-id case).
func InvalidModel(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Type: "invalid_model", Message: msg}
}

// UnsupportedInput builds a 400 unsupported_input (embeddings' integer-
// array rejection).
func UnsupportedInput(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Type: "unsupported_input", Message: msg}
}

// ModelInitFailure builds a 500 for weight download/mmap/tokenizer load
// failures.
func ModelInitFailure(msg string) *Error {
	return &Error{Status: http.StatusInternalServerError, Type: "model_init_failure", Message: msg}
}

// GenerationError builds the non-streaming 400 for a runner/sampler/tensor
// failure (§7: "Non-stream: HTTP 400").
func GenerationError(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Type: "generation_error", Message: msg}
}

// UpstreamFailure builds a 502 for an HA proxy transport error.
func UpstreamFailure(msg string) *Error {
	return &Error{Status: http.StatusBadGateway, Type: "upstream_failure", Message: msg}
}

// Timeout builds a 504 for an HA proxy request exceeding its deadline.
func Timeout(msg string) *Error {
	return &Error{Status: http.StatusGatewayTimeout, Type: "timeout", Message: msg}
}

type envelope struct {
	Error envelopeBody `json:"error"`
}

type envelopeBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Write serializes err as the OpenAI error envelope and sets the matching
// HTTP status. Any error that isn't an *Error is reported as an
// internal failure (500, type "internal_error") with err.Error() as the
// envelope's message.
func Write(w http.ResponseWriter, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		ae = &Error{Status: http.StatusInternalServerError, Type: "internal_error", Message: err.Error()}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.Status)
	json.NewEncoder(w).Encode(envelope{Error: envelopeBody{Message: ae.Message, Type: ae.Type}})
}
