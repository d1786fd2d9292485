package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smallnest/faqgraph/graph"
	"github.com/smallnest/faqgraph/log"
	"github.com/smallnest/faqgraph/rag/retriever"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"OPENAI_API_KEY", "GEMINI_API_KEY", "NEO4J_URI", "NEO4J_USER", "NEO4J_PASSWORD",
	"NEO4J_DATABASE", "REDIS_ADDR", "POSTGRES_DSN", "SQLITE_PATH", "LLM_PROVIDER",
	"LLM_MODEL", "EMBEDDING_MODEL", "LOG_LEVEL", "HTTP_ADDR", "FAQ_DATA_PATH", "RAG_MODE",
}

// clearEnv blanks the configuration variables for the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

// unsetEnv removes key for the test so a .env file may set it.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ModeGraphRAG, cfg.Mode)
	assert.Equal(t, "memory://", cfg.Neo4j.URI)
	assert.Equal(t, 0.6, cfg.Retrieval.Graph.GraphWeight)
	assert.Equal(t, 0.35, cfg.Retrieval.Graph.MinConfidence)
	assert.Equal(t, 24*time.Hour, cfg.Redis.CacheTTL)
	assert.Equal(t, log.LogLevelInfo, cfg.LogLevel())
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
mode: traditional
llm:
  provider: gemini
  model: gemini-1.5-flash
redis:
  addr: localhost:6379
  cache_ttl: 1h
retrieval:
  graph:
    min_confidence: 0.5
    entity_weights:
      Bank: 3
  traditional:
    top_k: 5
    fusion: weighted
    normalize: true
  retry:
    max_retries: 3
    backoff: linear
    base_delay: 50ms
    retryable_errors: ["connection reset"]
conversation:
  window_size: 3
`)

	cfg, err := Load(path, filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ModeTraditional, cfg.Mode)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Redis.CacheTTL)
	assert.Equal(t, 0.5, cfg.Retrieval.Graph.MinConfidence)
	assert.Equal(t, 3.0, cfg.Retrieval.Graph.EntityWeights["Bank"])
	assert.Equal(t, 0.6, cfg.Retrieval.Graph.GraphWeight)
	assert.Equal(t, 5, cfg.Retrieval.Traditional.TopK)
	assert.Equal(t, retriever.FusionWeighted, cfg.Retrieval.Traditional.Fusion)
	assert.True(t, cfg.Retrieval.Traditional.Normalize)
	assert.Equal(t, 0.5, cfg.Retrieval.Traditional.VectorMinScore)
	assert.Equal(t, 3, cfg.Conversation.WindowSize)

	policy, err := cfg.Retrieval.Retry.Policy()
	require.NoError(t, err)
	assert.Equal(t, graph.RetryPolicy{
		MaxRetries:      3,
		BackoffStrategy: graph.LinearBackoff,
		BaseDelay:       50 * time.Millisecond,
		RetryableErrors: []string{"connection reset"},
	}, policy)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", "mode: [unterminated")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RAG_MODE", "Traditional")
	t.Setenv("NEO4J_URI", "neo4j://db:7687")
	t.Setenv("NEO4J_PASSWORD", "secret")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := Load("", filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)

	assert.Equal(t, ModeTraditional, cfg.Mode)
	assert.Equal(t, "neo4j://db:7687", cfg.Neo4j.URI)
	assert.Equal(t, "secret", cfg.Neo4j.Password)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, log.LogLevelDebug, cfg.LogLevel())
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoad_GeminiKeyFollowsProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("", filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	unsetEnv(t, "FAQ_DATA_PATH")
	t.Setenv("SQLITE_PATH", "/from/env.db")

	envFile := writeFile(t, ".env", "FAQ_DATA_PATH=/from/dotenv.json\nSQLITE_PATH=/from/dotenv.db\n")
	cfg, err := Load("", envFile)
	require.NoError(t, err)

	assert.Equal(t, "/from/dotenv.json", cfg.DataPath)
	assert.Equal(t, "/from/env.db", cfg.SQLite.Path)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Mode = "hybrid"
	cfg.LLM.Provider = "ernie"
	cfg.Log.Level = "loud"
	cfg.Retrieval.Graph.SemanticWeight = -1
	cfg.Retrieval.Graph.MinConfidence = 1.5
	cfg.Retrieval.Graph.EntityWeights["Bank"] = -2
	cfg.Retrieval.Traditional.Fusion = "max"
	cfg.Retrieval.Traditional.VectorMinScore = 2
	cfg.Retrieval.Retry.Backoff = "random"
	cfg.Retrieval.Retry.MaxRetries = -1

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`unknown mode "hybrid"`,
		`unknown llm provider "ernie"`,
		`unknown log level "loud"`,
		"retrieval.graph.semantic_weight must not be negative",
		"retrieval.graph.min_confidence must be within [0,1]",
		"retrieval.graph.entity_weights.Bank must not be negative",
		`retrieval.traditional.fusion: unknown fusion mode "max"`,
		"retrieval.traditional.vector_min_score must be within [0,1]",
		`retrieval.retry.backoff: unknown backoff strategy "random"`,
		"retrieval.retry.max_retries must not be negative",
	} {
		assert.Contains(t, err.Error(), want)
	}
}
