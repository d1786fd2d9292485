package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/faqgraph/store"
)

// RedisOptions configuration for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "faqgraph:"
	TTL      time.Duration // Session expiration, default 0 (no expiration)
	// CacheTTL is the answer cache expiration, default 24h.
	CacheTTL time.Duration
}

func newClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

func prefixOf(opts RedisOptions) string {
	if opts.Prefix == "" {
		return "faqgraph:"
	}
	return opts.Prefix
}

// RedisSessionStore implements store.SessionStore using Redis. Every Save
// refreshes the TTL.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore creates a new Redis session store
func NewRedisSessionStore(opts RedisOptions) *RedisSessionStore {
	return NewRedisSessionStoreWithClient(newClient(opts), opts)
}

// NewRedisSessionStoreWithClient creates a session store over an existing
// client.
func NewRedisSessionStoreWithClient(client *redis.Client, opts RedisOptions) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		prefix: prefixOf(opts),
		ttl:    opts.TTL,
	}
}

func (s *RedisSessionStore) sessionKey(id string) string {
	return fmt.Sprintf("%ssession:%s", s.prefix, id)
}

// Save stores a session
func (s *RedisSessionStore) Save(ctx context.Context, state *store.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.sessionKey(state.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}

// Load retrieves a session by ID
func (s *RedisSessionStore) Load(ctx context.Context, sessionID string) (*store.ConversationState, error) {
	data, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to load session from redis: %w", err)
	}

	var state store.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &state, nil
}

// Delete removes a session
func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

// RedisAnswerCache implements store.AnswerCache using Redis strings with a
// TTL.
type RedisAnswerCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisAnswerCache creates a new Redis answer cache
func NewRedisAnswerCache(opts RedisOptions) *RedisAnswerCache {
	return NewRedisAnswerCacheWithClient(newClient(opts), opts)
}

// NewRedisAnswerCacheWithClient creates an answer cache over an existing
// client.
func NewRedisAnswerCacheWithClient(client *redis.Client, opts RedisOptions) *RedisAnswerCache {
	ttl := opts.CacheTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &RedisAnswerCache{client: client, prefix: prefixOf(opts), ttl: ttl}
}

func (c *RedisAnswerCache) answerKey(key string) string {
	return fmt.Sprintf("%sanswer:%s", c.prefix, key)
}

// Get implements store.AnswerCache.
func (c *RedisAnswerCache) Get(ctx context.Context, key string) (*store.CachedAnswer, bool, error) {
	data, err := c.client.Get(ctx, c.answerKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read answer cache: %w", err)
	}
	var a store.CachedAnswer
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached answer: %w", err)
	}
	return &a, true, nil
}

// Set implements store.AnswerCache.
func (c *RedisAnswerCache) Set(ctx context.Context, key string, answer *store.CachedAnswer) error {
	data, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("failed to marshal cached answer: %w", err)
	}
	if err := c.client.Set(ctx, c.answerKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write answer cache: %w", err)
	}
	return nil
}
