// Package config loads the supportbot configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then a
// .env file, then environment variables. Variables already set in the
// environment win over the .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/smallnest/faqgraph/graph"
	"github.com/smallnest/faqgraph/log"
	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/rag/engine"
	"github.com/smallnest/faqgraph/rag/extract"
	"github.com/smallnest/faqgraph/rag/retriever"
	"github.com/smallnest/faqgraph/rag/store"
	"gopkg.in/yaml.v3"
)

// RAG modes
const (
	ModeGraphRAG    = "graphrag"
	ModeTraditional = "traditional"
)

// Config is the complete service configuration.
type Config struct {
	Mode     string `yaml:"mode"`
	DataPath string `yaml:"data_path"`

	Neo4j        store.GraphConfig  `yaml:"neo4j"`
	LLM          LLMConfig          `yaml:"llm"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Redis        RedisConfig        `yaml:"redis"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	SQLite       SQLiteConfig       `yaml:"sqlite"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	Extraction   extract.Config     `yaml:"extraction"`
	Conversation ConversationConfig `yaml:"conversation"`
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
}

// LLMConfig selects the chat model.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
}

// EmbeddingConfig selects the embedding model. Embeddings are disabled
// without an API key.
type EmbeddingConfig struct {
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// RedisConfig enables the Redis session store and answer cache when Addr is
// set.
type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	Prefix     string        `yaml:"prefix"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// PostgresConfig enables the Postgres transcript store when DSN is set.
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// SQLiteConfig enables the SQLite session and transcript store when Path is
// set.
type SQLiteConfig struct {
	Path  string `yaml:"path"`
	Table string `yaml:"table"`
}

// RetrievalConfig groups the tuning of both engines.
type RetrievalConfig struct {
	Graph       engine.Config            `yaml:"graph"`
	Traditional engine.TraditionalConfig `yaml:"traditional"`
	Retry       RetryConfig              `yaml:"retry"`
}

// RetryConfig retries failed engine queries. MaxRetries 0 disables it.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	Backoff    string        `yaml:"backoff"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	// RetryableErrors holds substrings of retryable error messages; empty
	// retries every error.
	RetryableErrors []string `yaml:"retryable_errors"`
}

// Policy converts the settings to a graph retry policy.
func (r RetryConfig) Policy() (graph.RetryPolicy, error) {
	backoff, err := graph.ParseBackoffStrategy(r.Backoff)
	if err != nil {
		return graph.RetryPolicy{}, err
	}
	return graph.RetryPolicy{
		MaxRetries:      r.MaxRetries,
		BackoffStrategy: backoff,
		BaseDelay:       r.BaseDelay,
		RetryableErrors: r.RetryableErrors,
	}, nil
}

// ConversationConfig tunes the chatbot façade.
type ConversationConfig struct {
	WindowSize   int  `yaml:"window_size"`
	CacheAnswers bool `yaml:"cache_answers"`
	RenderHTML   bool `yaml:"render_html"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures the service logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Prefix string `yaml:"prefix"`
}

// Default returns the built-in configuration: an in-memory graph, in-process
// stores and the OpenAI provider.
func Default() *Config {
	return &Config{
		Mode:     ModeGraphRAG,
		DataPath: "data/faqs.json",
		Neo4j: store.GraphConfig{
			URI:      "memory://",
			User:     "neo4j",
			Database: "neo4j",
		},
		LLM: LLMConfig{
			Provider:    rag.ProviderOpenAI,
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
		},
		Embedding: EmbeddingConfig{
			Model: "text-embedding-3-small",
		},
		Redis: RedisConfig{
			Prefix:     "faqgraph:",
			SessionTTL: 24 * time.Hour,
			CacheTTL:   24 * time.Hour,
		},
		Postgres: PostgresConfig{Table: "transcripts"},
		SQLite:   SQLiteConfig{Table: "transcripts"},
		Retrieval: RetrievalConfig{
			Graph:       engine.DefaultConfig(),
			Traditional: engine.DefaultTraditionalConfig(),
			Retry: RetryConfig{
				MaxRetries: 2,
				Backoff:    "exponential",
				BaseDelay:  200 * time.Millisecond,
			},
		},
		Extraction: extract.DefaultConfig(),
		Conversation: ConversationConfig{
			WindowSize:   5,
			CacheAnswers: true,
			RenderHTML:   true,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Prefix: "supportbot",
		},
	}
}

// Load builds the configuration. path is an optional YAML file; a missing
// file is not an error. envFiles default to ".env"; missing ones are
// skipped.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.LLM.Provider == rag.ProviderOpenAI {
			c.LLM.APIKey = key
		}
		if c.Embedding.APIKey == "" {
			c.Embedding.APIKey = key
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.LLM.Provider == rag.ProviderGemini {
		c.LLM.APIKey = key
	}
	setString(&c.Embedding.Model, "EMBEDDING_MODEL")

	setString(&c.Neo4j.URI, "NEO4J_URI")
	setString(&c.Neo4j.User, "NEO4J_USER")
	setString(&c.Neo4j.Password, "NEO4J_PASSWORD")
	setString(&c.Neo4j.Database, "NEO4J_DATABASE")

	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Postgres.DSN, "POSTGRES_DSN")
	setString(&c.SQLite.Path, "SQLITE_PATH")

	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Server.Addr, "HTTP_ADDR")
	setString(&c.DataPath, "FAQ_DATA_PATH")
	setString(&c.Mode, "RAG_MODE")
	c.Mode = strings.ToLower(c.Mode)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModeGraphRAG, ModeTraditional:
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q (want %s or %s)", c.Mode, ModeGraphRAG, ModeTraditional))
	}
	switch c.LLM.Provider {
	case rag.ProviderOpenAI, rag.ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}
	if _, err := log.ParseLogLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := extract.ParseStrategy(string(c.Extraction.Strategy)); err != nil {
		errs = append(errs, err)
	}

	g := c.Retrieval.Graph
	t := c.Retrieval.Traditional
	if _, err := retriever.ParseFusionMode(string(t.Fusion)); err != nil {
		errs = append(errs, fmt.Errorf("retrieval.traditional.fusion: %w", err))
	}
	if _, err := c.Retrieval.Retry.Policy(); err != nil {
		errs = append(errs, fmt.Errorf("retrieval.retry.backoff: %w", err))
	}
	if c.Retrieval.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("retrieval.retry.max_retries must not be negative, got %d", c.Retrieval.Retry.MaxRetries))
	}
	for name, w := range map[string]float64{
		"retrieval.graph.graph_weight":          g.GraphWeight,
		"retrieval.graph.semantic_weight":       g.SemanticWeight,
		"retrieval.traditional.dense_weight":    t.DenseWeight,
		"retrieval.traditional.sparse_weight":   t.SparseWeight,
		"retrieval.graph.topic_match_factor":    g.TopicMatchFactor,
		"retrieval.graph.topic_mismatch_factor": g.TopicMismatchFactor,
	} {
		if w < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", name, w))
		}
	}
	for typ, w := range g.EntityWeights {
		if w < 0 {
			errs = append(errs, fmt.Errorf("retrieval.graph.entity_weights.%s must not be negative, got %v", typ, w))
		}
	}
	for name, v := range map[string]float64{
		"retrieval.graph.min_confidence":         g.MinConfidence,
		"retrieval.graph.semantic_floor":         g.SemanticFloor,
		"retrieval.graph.near_exact_jaccard":     g.NearExactJaccard,
		"retrieval.traditional.min_confidence":   t.MinConfidence,
		"retrieval.traditional.vector_min_score": t.VectorMinScore,
		"extraction.min_confidence":              c.Extraction.MinConfidence,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", name, v))
		}
	}
	if c.Conversation.WindowSize < 0 {
		errs = append(errs, fmt.Errorf("conversation.window_size must not be negative, got %d", c.Conversation.WindowSize))
	}

	return errors.Join(errs...)
}

// LogLevel returns the parsed log level, Info when invalid.
func (c *Config) LogLevel() log.LogLevel {
	level, err := log.ParseLogLevel(c.Log.Level)
	if err != nil {
		return log.LogLevelInfo
	}
	return level
}
