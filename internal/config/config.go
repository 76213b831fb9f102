// Package config loads the gateway's runtime configuration: which host/port
// to bind, and whether to run Standalone (in-process model runtimes) or
// HighAvailability (reverse-proxy to separate inference/embeddings
// services). The shape and env-var names mirror predict-otron-9000's
// src/config.rs exactly, including the camelCase JSON field names.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/otronforge/gateway/internal/logging"
)

// Mode selects how the gateway serves inference requests.
type Mode string

const (
	// Standalone runs the chat/embeddings pipelines in-process.
	Standalone Mode = "Standalone"
	// HighAvailability reverse-proxies to separate inference/embeddings services.
	HighAvailability Mode = "HighAvailability"
)

// Services holds the upstream URLs consulted only in HighAvailability mode.
type Services struct {
	InferenceURL  string `json:"inference_url,omitempty"`
	EmbeddingsURL string `json:"embeddings_url,omitempty"`
}

// Config is the gateway's resolved runtime configuration.
type Config struct {
	ServerHost string    `json:"serverHost"`
	ServerPort uint16    `json:"serverPort"`
	ServerMode Mode      `json:"serverMode"`
	Services   *Services `json:"services,omitempty"`

	// DefaultModel is the chat model id substituted when a request omits
	// "model" entirely. The literal string "default" is never
	// special-cased and fails lookup like any other unrecognized id.
	DefaultModel string `json:"-"`
}

// Default returns the Standalone configuration used when SERVER_CONFIG is
// absent or unparsable.
func Default() Config {
	return Config{
		ServerHost: "127.0.0.1",
		ServerPort: 8080,
		ServerMode: Standalone,
		Services:   &Services{},
	}
}

// FromEnv loads configuration the way predict-otron-9000 does: parse the
// SERVER_CONFIG JSON blob if present, then let SERVER_HOST/SERVER_PORT/
// DEFAULT_MODEL override individual fields.
func FromEnv() Config {
	log := logging.Named("config")
	cfg := Default()

	if raw, ok := os.LookupEnv("SERVER_CONFIG"); ok {
		var parsed Config
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			log.Warn().Err(err).Msg("failed to parse SERVER_CONFIG, using Standalone defaults")
		} else {
			if parsed.ServerHost == "" {
				parsed.ServerHost = cfg.ServerHost
			}
			if parsed.ServerPort == 0 {
				parsed.ServerPort = cfg.ServerPort
			}
			if parsed.ServerMode == "" {
				parsed.ServerMode = Standalone
			}
			cfg = parsed
			log.Info().Interface("config", cfg).Msg("loaded SERVER_CONFIG")
		}
	} else {
		log.Info().Msg("SERVER_CONFIG not set, Standalone mode active")
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.ServerHost = host
	}
	if portStr := os.Getenv("SERVER_PORT"); portStr != "" {
		if port, err := strconv.ParseUint(portStr, 10, 16); err == nil {
			cfg.ServerPort = uint16(port)
		} else {
			log.Warn().Str("SERVER_PORT", portStr).Msg("ignoring unparseable SERVER_PORT")
		}
	}
	cfg.DefaultModel = os.Getenv("DEFAULT_MODEL")

	return cfg
}

// Validate enforces the HA invariant: HighAvailability mode requires both
// service URLs to be set. Returns a descriptive error (never panics) so the
// caller can pretty-print the config and exit non-zero, per §4.12 step 2.
func (c Config) Validate() error {
	if c.ServerMode != HighAvailability {
		return nil
	}
	if c.Services == nil || c.Services.InferenceURL == "" || c.Services.EmbeddingsURL == "" {
		pretty, _ := json.MarshalIndent(c, "", "  ")
		return fmt.Errorf("HighAvailability mode configured but services not well defined:\n%s", pretty)
	}
	return nil
}

// Addr returns the host:port string to bind the HTTP listener to.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}
