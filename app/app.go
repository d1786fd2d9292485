// Package app assembles the supportbot from a config.Config: the FAQ
// corpus, the retrieval engine, the optional LLM and embedder, and the
// session, cache and transcript stores.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/faqgraph/chatbot"
	"github.com/smallnest/faqgraph/config"
	"github.com/smallnest/faqgraph/log"
	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/rag/engine"
	"github.com/smallnest/faqgraph/rag/extract"
	"github.com/smallnest/faqgraph/rag/loader"
	ragstore "github.com/smallnest/faqgraph/rag/store"
	"github.com/smallnest/faqgraph/store"
	"github.com/smallnest/faqgraph/store/memory"
	"github.com/smallnest/faqgraph/store/postgres"
	redisstore "github.com/smallnest/faqgraph/store/redis"
	"github.com/smallnest/faqgraph/store/sqlite"
	"github.com/tmc/langchaingo/llms"
)

// App is a wired chatbot and the resources it holds.
type App struct {
	Config  *config.Config
	Bot     *chatbot.Chatbot
	Engine  rag.Engine
	Metrics *rag.Metrics
	// FAQs is the loaded corpus; empty when the graph lives in Neo4j.
	FAQs []rag.FAQ

	logger  log.Logger
	closers []func(context.Context) error
}

// New validates cfg and builds the App. Resources opened before a failure
// are released.
func New(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a := &App{Config: cfg, logger: log.OrDefault(logger)}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	llm, err := a.newLLM(ctx)
	if err != nil {
		return nil, err
	}
	var embedder rag.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder = rag.NewOpenAIEmbedder(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL)
	} else {
		a.logger.Info("no embedding api key, semantic scoring disabled")
	}

	xopts := []extract.Option{extract.WithConfig(cfg.Extraction), extract.WithLogger(a.logger)}
	if llm != nil {
		xopts = append(xopts, extract.WithLLM(llm))
	}
	extractor := extract.New(xopts...)

	switch cfg.Mode {
	case config.ModeTraditional:
		err = a.buildTraditional(ctx, embedder, extractor)
	default:
		err = a.buildGraph(ctx, embedder, extractor)
	}
	if err != nil {
		return nil, err
	}

	opts, err := a.storeOptions(ctx)
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		chatbot.WithMode(cfg.Mode),
		chatbot.WithWindowSize(cfg.Conversation.WindowSize),
		chatbot.WithLogger(a.logger),
	)
	if llm != nil {
		opts = append(opts, chatbot.WithLLM(llm))
	}
	if !cfg.Conversation.RenderHTML {
		opts = append(opts, chatbot.WithRenderer(nil))
	}
	retry, err := cfg.Retrieval.Retry.Policy()
	if err != nil {
		return nil, err
	}
	opts = append(opts, chatbot.WithRetrievalRetry(retry))
	if a.Bot, err = chatbot.New(a.Engine, opts...); err != nil {
		return nil, err
	}
	a.logger.Info("supportbot ready: mode=%s, faqs=%d, llm=%t, embeddings=%t",
		cfg.Mode, len(a.FAQs), llm != nil, embedder != nil)
	return a, nil
}

// Close releases stores and connections in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// newLLM returns nil without an api key; the bot then answers from the
// corpus alone.
func (a *App) newLLM(ctx context.Context) (rag.LLMInterface, error) {
	c := a.Config.LLM
	if c.APIKey == "" {
		a.logger.Info("no %s api key, answers are returned from the FAQ corpus", c.Provider)
		return nil, nil
	}
	llm, err := rag.NewLLM(ctx, c.Provider, c.Model, c.APIKey, c.BaseURL, llms.WithTemperature(c.Temperature))
	if err != nil {
		return nil, err
	}
	return llm, nil
}

func (a *App) buildGraph(ctx context.Context, embedder rag.Embedder, extractor *extract.Extractor) error {
	g, err := ragstore.NewGraphStore(ctx, a.Config.Neo4j)
	if err != nil {
		return fmt.Errorf("failed to open graph store: %w", err)
	}
	a.onClose(g.Close)

	if mg, ok := g.(*ragstore.MemoryGraph); ok {
		faqs, err := LoadFAQs(ctx, a.Config.DataPath, extractor)
		if err != nil {
			return err
		}
		for _, f := range faqs {
			if err := mg.AddFAQ(ctx, f); err != nil {
				return fmt.Errorf("failed to add faq %s: %w", f.ID, err)
			}
		}
		a.FAQs = faqs
	}

	opts := []engine.GraphOption{
		engine.WithConfig(a.Config.Retrieval.Graph),
		engine.WithExtractor(extractor),
		engine.WithLogger(a.logger),
	}
	if embedder != nil {
		opts = append(opts, engine.WithEmbedder(embedder))
	}
	e, err := engine.NewGraphEngine(g, opts...)
	if err != nil {
		return err
	}
	a.Engine, a.Metrics = e, e.Metrics()
	return nil
}

func (a *App) buildTraditional(ctx context.Context, embedder rag.Embedder, extractor *extract.Extractor) error {
	faqs, err := LoadFAQs(ctx, a.Config.DataPath, extractor)
	if err != nil {
		return err
	}
	e := engine.NewTraditionalEngine(embedder, a.Config.Retrieval.Traditional, a.logger)
	if err := e.AddFAQs(ctx, faqs); err != nil {
		return err
	}
	a.FAQs = faqs
	a.Engine, a.Metrics = e, e.Metrics()
	return nil
}

// storeOptions picks the stores: Redis for sessions and the answer cache,
// Postgres for transcripts, SQLite for whichever of the two is still
// unset, in-process stores otherwise.
func (a *App) storeOptions(ctx context.Context) ([]chatbot.Option, error) {
	cfg := a.Config
	var (
		sessions    store.SessionStore
		transcripts store.TranscriptStore
		cache       store.AnswerCache
	)

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.onClose(func(context.Context) error { return client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis %s: %w", cfg.Redis.Addr, err)
		}
		opts := redisstore.RedisOptions{
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.SessionTTL,
			CacheTTL: cfg.Redis.CacheTTL,
		}
		sessions = redisstore.NewRedisSessionStoreWithClient(client, opts)
		if cfg.Conversation.CacheAnswers {
			cache = redisstore.NewRedisAnswerCacheWithClient(client, opts)
		}
		a.logger.Info("sessions stored in redis %s", cfg.Redis.Addr)
	}

	if cfg.Postgres.DSN != "" {
		pg, err := postgres.NewPostgresTranscriptStore(ctx, postgres.PostgresOptions{
			ConnString: cfg.Postgres.DSN,
			TableName:  cfg.Postgres.Table,
		})
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { pg.Close(); return nil })
		if err := pg.InitSchema(ctx); err != nil {
			return nil, err
		}
		transcripts = pg
		a.logger.Info("transcripts stored in postgres")
	}

	if cfg.SQLite.Path != "" && (sessions == nil || transcripts == nil) {
		db, err := sqlite.NewSqliteStore(sqlite.SqliteOptions{Path: cfg.SQLite.Path, TableName: cfg.SQLite.Table})
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return db.Close() })
		if sessions == nil {
			sessions = db
		}
		if transcripts == nil {
			transcripts = db
		}
		a.logger.Info("sqlite store at %s", cfg.SQLite.Path)
	}

	if cache == nil && cfg.Conversation.CacheAnswers {
		cache = memory.NewAnswerCache()
	}

	var opts []chatbot.Option
	if sessions != nil {
		opts = append(opts, chatbot.WithSessionStore(sessions))
	}
	if transcripts != nil {
		opts = append(opts, chatbot.WithTranscriptStore(transcripts))
	}
	if cache != nil {
		opts = append(opts, chatbot.WithAnswerCache(cache))
	}
	return opts, nil
}

// LoadFAQs reads the corpus at path (.html/.htm help-centre pages, .yaml,
// .yml or JSON) and fills missing entities from the questions.
func LoadFAQs(ctx context.Context, path string, extractor *extract.Extractor) ([]rag.FAQ, error) {
	if path == "" {
		return nil, errors.New("no faq data path configured")
	}
	var l loader.FAQLoader
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		l = loader.NewHTMLLoader(path)
	default:
		l = loader.NewJSONLoader(path)
	}
	faqs, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(faqs) == 0 {
		return nil, fmt.Errorf("no faqs in %s", path)
	}
	return loader.EnrichEntities(faqs, extractor), nil
}
