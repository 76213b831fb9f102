// Package weights resolves a model repo id to local config, tokenizer and
// weight files, downloading them into a Hugging Face Hub-style cache
// directory on first use, and decodes the safetensors weight format into
// tensor.Matrix values for internal/runner to consume. Grounded in
// hf_hub::api::sync::Api's repo().get() used throughout
// gemma-runner/src/gemma_api.rs and llama-runner/src/llama_api.rs: the same
// cache-or-fetch behavior, the same three well-known filenames
// (tokenizer.json, config.json, model.safetensors[.index.json]).
package weights

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/otronforge/gateway/internal/logging"
)

// ErrRepoNotFound is returned when the hub reports the repo or revision
// does not exist (HTTP 404), distinguished from transient network errors
// so callers can give a clear "unknown model" response instead of a
// generic 500.
var ErrRepoNotFound = errors.New("weights: repository not found")

// Paths is the set of local files a Model Runner needs to construct a
// model: its architecture config, its tokenizer definition, and one or
// more safetensors shards.
type Paths struct {
	ConfigPath    string
	TokenizerPath string
	WeightPaths   []string
}

// Resolver fetches and caches Hugging Face model repo files.
type Resolver struct {
	cacheDir string
	baseURL  string
	client   *http.Client

	mu        sync.Mutex
	perTarget map[string]*sync.Mutex
}

// NewResolver builds a Resolver rooted at cacheDir. An empty cacheDir
// falls back to $HF_HOME/hub, then ~/.cache/huggingface/hub, matching
// hf_hub's own default resolution order.
func NewResolver(cacheDir string) *Resolver {
	if cacheDir == "" {
		cacheDir = defaultCacheDir()
	}
	return &Resolver{
		cacheDir:  cacheDir,
		baseURL:   "https://huggingface.co",
		client:    &http.Client{Timeout: 10 * time.Minute},
		perTarget: make(map[string]*sync.Mutex),
	}
}

func defaultCacheDir() string {
	if v := os.Getenv("HF_HOME"); v != "" {
		return filepath.Join(v, "hub")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cache/huggingface/hub"
	}
	return filepath.Join(home, ".cache", "huggingface", "hub")
}

// Resolve fetches (or reuses from cache) config.json, tokenizer.json, and
// the model's safetensors weights for repoID at revision (empty means
// "main"), returning their local paths.
func (r *Resolver) Resolve(repoID, revision string) (Paths, error) {
	if revision == "" {
		revision = "main"
	}
	log := logging.Named("weights")

	configPath, err := r.fetch(repoID, revision, "config.json")
	if err != nil {
		return Paths{}, err
	}
	tokenizerPath, err := r.fetch(repoID, revision, "tokenizer.json")
	if err != nil {
		return Paths{}, err
	}
	weightPaths, err := r.resolveWeightShards(repoID, revision)
	if err != nil {
		return Paths{}, err
	}
	log.Info().Str("repo", repoID).Str("revision", revision).Int("shards", len(weightPaths)).Msg("resolved model files")
	return Paths{ConfigPath: configPath, TokenizerPath: tokenizerPath, WeightPaths: weightPaths}, nil
}

// resolveWeightShards tries the common single-file name first (true for
// every small instruct model in this project's catalog) and falls back
// to the sharded index for larger repos.
func (r *Resolver) resolveWeightShards(repoID, revision string) ([]string, error) {
	if path, err := r.fetch(repoID, revision, "model.safetensors"); err == nil {
		return []string{path}, nil
	} else if !errors.Is(err, ErrRepoNotFound) {
		return nil, err
	}

	indexPath, err := r.fetch(repoID, revision, "model.safetensors.index.json")
	if err != nil {
		return nil, fmt.Errorf("weights: no model.safetensors or index for %s: %w", repoID, err)
	}
	raw, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, err
	}
	var index struct {
		WeightMap map[string]string `json:"weight_map"`
	}
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("weights: malformed safetensors index: %w", err)
	}

	seen := make(map[string]bool)
	for _, shard := range index.WeightMap {
		seen[shard] = true
	}
	shards := make([]string, 0, len(seen))
	for shard := range seen {
		shards = append(shards, shard)
	}
	sort.Strings(shards)

	paths := make([]string, 0, len(shards))
	for _, shard := range shards {
		p, err := r.fetch(repoID, revision, shard)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// fetch returns the local path to filename within repoID@revision,
// downloading it on first use. Concurrent callers resolving the same
// target serialize on a per-target lock rather than a single global one,
// so unrelated models load in parallel.
func (r *Resolver) fetch(repoID, revision, filename string) (string, error) {
	dir := filepath.Join(r.cacheDir, cacheKey(repoID), "snapshots", revision)
	dest := filepath.Join(dir, filename)

	lock := r.lockFor(dest)
	lock.Lock()
	defer lock.Unlock()

	if info, err := os.Stat(dest); err == nil && !info.IsDir() {
		return dest, nil
	}

	url := fmt.Sprintf("%s/%s/resolve/%s/%s", r.baseURL, repoID, revision, filename)
	resp, err := r.client.Get(url)
	if err != nil {
		return "", fmt.Errorf("weights: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s@%s", ErrRepoNotFound, repoID, revision)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("weights: fetching %s: unexpected status %s", url, resp.Status)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func (r *Resolver) lockFor(target string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.perTarget[target]
	if !ok {
		l = &sync.Mutex{}
		r.perTarget[target] = l
	}
	return l
}

// cacheKey mirrors hf_hub's "models--org--repo" cache directory naming.
func cacheKey(repoID string) string {
	return "models--" + strings.ReplaceAll(repoID, "/", "--")
}
