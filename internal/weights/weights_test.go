package weights

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"hidden_size":64,"num_attention_heads":4,"num_hidden_layers":2,"intermediate_size":128,"vocab_size":1000}`))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.NumKeyValueHeads)
	assert.Equal(t, 16, cfg.HeadDim)
	assert.Equal(t, 1e-6, cfg.RMSNormEps)
	assert.Equal(t, 10000.0, cfg.RopeTheta)
}

func TestParseConfigExplicitGQA(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"hidden_size":64,"num_attention_heads":8,"num_key_value_heads":2,"head_dim":8}`))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.NumKeyValueHeads)
	assert.Equal(t, 8, cfg.HeadDim)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "models--google--gemma-2b", cacheKey("google/gemma-2b"))
}

func writeSafetensorsFixture(t *testing.T, path string) {
	t.Helper()
	payload := []byte{0, 0, 128, 63, 0, 0, 0, 64} // 1.0, 2.0 as little-endian F32
	header := map[string]any{
		"weight": map[string]any{
			"dtype":        "F32",
			"shape":        []int{1, 2},
			"data_offsets": []int64{0, 8},
		},
	}
	headerBytes, err := json.Marshal(header)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(headerBytes))))
	buf.Write(headerBytes)
	buf.Write(payload)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestLoadSafetensorsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.safetensors")
	writeSafetensorsFixture(t, path)

	tensors, err := LoadSafetensors([]string{path})
	require.NoError(t, err)
	require.Contains(t, tensors, "weight")

	w := tensors["weight"]
	assert.Equal(t, 1, w.Rows)
	assert.Equal(t, 2, w.Cols)
	assert.InDelta(t, 1.0, w.Data[0], 1e-6)
	assert.InDelta(t, 2.0, w.Data[1], 1e-6)
}

func TestFloat16ToFloat32(t *testing.T) {
	assert.InDelta(t, 1.0, float16ToFloat32(0x3c00), 1e-4)
	assert.InDelta(t, -2.0, float16ToFloat32(0xc000), 1e-4)
	assert.InDelta(t, 0.0, float16ToFloat32(0x0000), 1e-6)
}

func TestResolveFetchesFromCache(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir)

	snapshotDir := filepath.Join(dir, "models--test--repo", "snapshots", "main")
	require.NoError(t, os.MkdirAll(snapshotDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(snapshotDir, "config.json"), []byte(`{}`), 0o644))

	path, err := r.fetch("test/repo", "main", "config.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(snapshotDir, "config.json"), path)
}
