package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, Standalone, cfg.ServerMode)
	require.NoError(t, cfg.Validate())
}

func TestHighAvailabilityValid(t *testing.T) {
	cfg := Config{
		ServerMode: HighAvailability,
		Services: &Services{
			InferenceURL:  "http://inference-service:8080",
			EmbeddingsURL: "http://embeddings-service:8080",
		},
	}
	require.NoError(t, cfg.Validate())
}

func TestHighAvailabilityMissingServices(t *testing.T) {
	cfg := Config{ServerMode: HighAvailability}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestHighAvailabilityPartialServices(t *testing.T) {
	cfg := Config{
		ServerMode: HighAvailability,
		Services:   &Services{InferenceURL: "http://inference-service:8080"},
	}
	require.Error(t, cfg.Validate())
}

func TestStandaloneNeverConsultsServices(t *testing.T) {
	cfg := Config{ServerMode: Standalone, Services: nil}
	assert.NoError(t, cfg.Validate())
}

func TestAddr(t *testing.T) {
	cfg := Config{ServerHost: "0.0.0.0", ServerPort: 9000}
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
}
