package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/otronforge/gateway/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardRequestHeaderAllowList(t *testing.T) {
	assert.False(t, forwardRequestHeader("Host"))
	assert.False(t, forwardRequestHeader("Connection"))
	assert.False(t, forwardRequestHeader("Upgrade"))
	assert.True(t, forwardRequestHeader("Authorization"))
	assert.True(t, forwardRequestHeader("Content-Type"))
	assert.True(t, forwardRequestHeader("X-Custom-Header"))
}

func TestForwardResponseHeaderAllowList(t *testing.T) {
	assert.False(t, forwardResponseHeader("Server"))
	assert.False(t, forwardResponseHeader("Date"))
	assert.True(t, forwardResponseHeader("Content-Type"))
	assert.True(t, forwardResponseHeader("Cache-Control"))
}

func TestCopyForwardableHeaders(t *testing.T) {
	src := http.Header{}
	src.Set("Authorization", "Bearer xyz")
	src.Set("Host", "should-not-forward")

	dst := http.Header{}
	copyForwardableHeaders(dst, src)

	assert.Equal(t, "Bearer xyz", dst.Get("Authorization"))
	assert.Empty(t, dst.Get("Host"))
}

func TestChatHandlerForwardsToInferenceURL(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"model"`)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-test"}`))
	}))
	defer upstream.Close()

	cfg := config.Config{
		ServerMode: config.HighAvailability,
		Services:   &config.Services{InferenceURL: upstream.URL, EmbeddingsURL: upstream.URL},
	}
	p := New(cfg)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{"model":"gemma-3-1b-it"}`))
	w := httptest.NewRecorder()
	p.ChatHandler()(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "chatcmpl-test")
}

func TestChatHandlerMapsUpstreamDeadlineTo504(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.Write([]byte(`{"id":"chatcmpl-test"}`))
	}))
	defer upstream.Close()

	cfg := config.Config{
		ServerMode: config.HighAvailability,
		Services:   &config.Services{InferenceURL: upstream.URL, EmbeddingsURL: upstream.URL},
	}
	p := New(cfg)
	p.client.Timeout = time.Millisecond

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{"model":"gemma-3-1b-it"}`))
	w := httptest.NewRecorder()
	p.ChatHandler()(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "timeout")
}
