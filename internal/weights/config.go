package weights

import "encoding/json"

// Config is a decoder-only transformer's architecture config, parsed
// straight out of a Hugging Face config.json — the same file
// candle_transformers' per-family Config structs (gemma::Config,
// gemma2::Config, gemma3::Config, llama::Config) deserialize via serde.
// Field names match the upstream JSON exactly so the same config.json
// that ships with a model repo works unmodified.
type Config struct {
	HiddenSize            int     `json:"hidden_size"`
	NumHiddenLayers       int     `json:"num_hidden_layers"`
	NumAttentionHeads     int     `json:"num_attention_heads"`
	NumKeyValueHeads      int     `json:"num_key_value_heads"`
	IntermediateSize      int     `json:"intermediate_size"`
	VocabSize             int     `json:"vocab_size"`
	RMSNormEps            float64 `json:"rms_norm_eps"`
	RopeTheta             float64 `json:"rope_theta"`
	HeadDim               int     `json:"head_dim"`
	MaxPositionEmbeddings int     `json:"max_position_embeddings"`
	// Gemma-specific; zero-valued for Llama-family configs. Parsed only:
	// internal/runner does not read either field for any family.
	QueryPreAttnScalar float64 `json:"query_pre_attn_scalar"`
	SlidingWindow      int     `json:"sliding_window"`
}

// ParseConfig decodes a config.json payload, filling in the handful of
// defaults candle's loaders apply when a field is absent from older
// model repos.
func ParseConfig(data []byte) (Config, error) {
	cfg := Config{RMSNormEps: 1e-6, RopeTheta: 10000.0}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.NumKeyValueHeads == 0 {
		cfg.NumKeyValueHeads = cfg.NumAttentionHeads
	}
	if cfg.HeadDim == 0 && cfg.NumAttentionHeads > 0 {
		cfg.HeadDim = cfg.HiddenSize / cfg.NumAttentionHeads
	}
	return cfg, nil
}
