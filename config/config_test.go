package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 23, cfg.Embeddings.BatchSize)
	assert.Equal(t, 2000, cfg.Embeddings.BatchDelayMS)
	assert.Equal(t, 20, cfg.VectorStore.UpsertBatchSize)
	assert.Equal(t, 20, cfg.Chunker.SessionGapMinutes)
	assert.Equal(t, "http", cfg.Rerank.Service)
	assert.Equal(t, "http://localhost:8080", cfg.Rerank.URL)
	assert.Equal(t, "cross-encoder/ms-marco-MiniLM-L-6-v2", cfg.Rerank.Model)
	assert.Equal(t, "best_per_probe", cfg.Rerank.Fusion)
	assert.Equal(t, "\n-----------------------------------------------\n", cfg.Rerank.Delimiter)
	assert.Equal(t, 5, cfg.Retrieval.SearchLimit)
	assert.Equal(t, 3, cfg.Retrieval.RAGLimit)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte(`
vector_store:
  type: bolt
  bolt:
    path: /tmp/x.db
chunker:
  strategy: recursive
  chunk_size: 500
  chunk_overlap: 50
`), 0o600)
	require.NoError(t, err)

	t.Setenv("CHATRAG_RERANK_FUSION", "all_candidates")
	t.Setenv("CHATRAG_LLM_API_KEY", "llm-key")
	t.Setenv("MISTRAL_API_KEY", "mistral-key")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "bolt", cfg.VectorStore.Type)
	assert.Equal(t, "/tmp/x.db", cfg.VectorStore.Bolt.Path)
	assert.Equal(t, 500, cfg.Chunker.ChunkSize)
	assert.Equal(t, "all_candidates", cfg.Rerank.Fusion)
	assert.Equal(t, "llm-key", cfg.LLM.APIKey)
	assert.Equal(t, "mistral-key", cfg.Embeddings.APIKey)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := LoadConfig("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"overlap not smaller than size", func(c *Config) { c.Chunker.ChunkOverlap = c.Chunker.ChunkSize }},
		{"unknown fusion", func(c *Config) { c.Rerank.Fusion = "vote" }},
		{"zero batch size", func(c *Config) { c.Embeddings.BatchSize = 0 }},
		{"postgres without dsn", func(c *Config) { c.VectorStore.Type = "postgres" }},
		{"local embeddings without url", func(c *Config) { c.Embeddings.Service = "local" }},
		{"rag limit too high", func(c *Config) { c.Retrieval.RAGLimit = 11 }},
		{"http rerank without url", func(c *Config) { c.Rerank.URL = "" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := *base
			tc.mutate(&c)
			assert.Error(t, Validate(&c))
		})
	}

	assert.NoError(t, Validate(base))
}

func TestLoadConfig_RerankOptOut(t *testing.T) {
	t.Setenv("CHATRAG_RERANK_SERVICE", "none")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Rerank.Service)
	assert.NoError(t, Validate(cfg))
}
