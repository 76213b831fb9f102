// Package proxy implements the HighAvailability Proxy (C13): reverse
// proxying /v1/chat/completions, /v1/models and /v1/embeddings to
// configured upstream services instead of serving them in-process.
// Grounded in predict-otron-9000/src/proxy.rs's ProxyClient — the same
// 300-second client timeout, the same request/response header exclusion
// lists, and the same streaming-vs-buffered passthrough split.
package proxy

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/otronforge/gateway/internal/apierr"
	"github.com/otronforge/gateway/internal/config"
	"github.com/otronforge/gateway/internal/logging"
	"github.com/tidwall/gjson"
)

// clientTimeout matches proxy.rs's 300-second inference timeout.
const clientTimeout = 300 * time.Second

// Proxy forwards gateway routes to the configured inference/embeddings
// services in HighAvailability mode.
type Proxy struct {
	client        *http.Client
	inferenceURL  string
	embeddingsURL string
}

// New builds a Proxy from cfg.Services. Callers must call
// config.Config.Validate first to guarantee both URLs are non-empty.
func New(cfg config.Config) *Proxy {
	return &Proxy{
		client:        &http.Client{Timeout: clientTimeout},
		inferenceURL:  strings.TrimRight(cfg.Services.InferenceURL, "/"),
		embeddingsURL: strings.TrimRight(cfg.Services.EmbeddingsURL, "/"),
	}
}

// ChatHandler proxies POST /v1/chat/completions to the inference service.
func (p *Proxy) ChatHandler() http.HandlerFunc {
	return p.forward(func() string { return p.inferenceURL + "/v1/chat/completions" })
}

// ModelsHandler proxies GET /v1/models to the inference service.
func (p *Proxy) ModelsHandler() http.HandlerFunc {
	return p.forward(func() string { return p.inferenceURL + "/v1/models" })
}

// EmbeddingsHandler proxies POST /v1/embeddings to the embeddings service.
func (p *Proxy) EmbeddingsHandler() http.HandlerFunc {
	return p.forward(func() string { return p.embeddingsURL + "/v1/embeddings" })
}

func (p *Proxy) forward(target func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logging.Named("proxy")

		var bodyBytes []byte
		if r.Body != nil {
			var err error
			bodyBytes, err = io.ReadAll(r.Body)
			if err != nil {
				apierr.Write(w, apierr.InvalidRequest("failed to read request body: "+err.Error()))
				return
			}
		}

		// gjson peek avoids a full unmarshal/remarshal of the body just
		// to learn one boolean, keeping the forwarded bytes byte-for-byte
		// identical to what the client sent.
		isStreaming := gjson.GetBytes(bodyBytes, "stream").Bool()

		url := target()
		log.Info().Str("url", url).Bool("stream", isStreaming).Msg("proxying request")

		req, err := http.NewRequestWithContext(r.Context(), r.Method, url, bytes.NewReader(bodyBytes))
		if err != nil {
			apierr.Write(w, apierr.UpstreamFailure("building proxy request: "+err.Error()))
			return
		}
		copyForwardableHeaders(req.Header, r.Header)

		resp, err := p.client.Do(req)
		if err != nil {
			log.Error().Err(err).Str("url", url).Msg("upstream request failed")
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				apierr.Write(w, apierr.Timeout("upstream request exceeded the 300s deadline: "+err.Error()))
				return
			}
			apierr.Write(w, apierr.UpstreamFailure("upstream request failed: "+err.Error()))
			return
		}
		defer resp.Body.Close()

		if isStreaming {
			copyResponseHeaders(w.Header(), resp.Header)
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(resp.StatusCode)
			rc := http.NewResponseController(w)
			for buf := make([]byte, 4096); ; rc.Flush() {
				n, readErr := resp.Body.Read(buf)
				w.Write(buf[:n])
				if readErr != nil {
					return
				}
			}
		}

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			apierr.Write(w, apierr.UpstreamFailure("reading upstream response: "+err.Error()))
			return
		}

		copyResponseHeaders(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)
		w.Write(respBody)
	}
}

// copyForwardableHeaders applies should_forward_header's exclusion list:
// every request header except host, connection and upgrade is copied.
func copyForwardableHeaders(dst, src http.Header) {
	for name, values := range src {
		if !forwardRequestHeader(name) {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

func copyResponseHeaders(dst, src http.Header) {
	for name, values := range src {
		if !forwardResponseHeader(name) {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

func forwardRequestHeader(name string) bool {
	switch strings.ToLower(name) {
	case "host", "connection", "upgrade":
		return false
	default:
		return true
	}
}

func forwardResponseHeader(name string) bool {
	switch strings.ToLower(name) {
	case "server", "date":
		return false
	default:
		return true
	}
}
