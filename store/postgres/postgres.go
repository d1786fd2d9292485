package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/store"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresTranscriptStore implements store.TranscriptStore using PostgreSQL
type PostgresTranscriptStore struct {
	pool      DBPool
	tableName string
}

// PostgresOptions configuration for Postgres connection
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "transcripts"
}

// NewPostgresTranscriptStore creates a new Postgres transcript store
func NewPostgresTranscriptStore(ctx context.Context, opts PostgresOptions) (*PostgresTranscriptStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return NewPostgresTranscriptStoreWithPool(pool, opts.TableName), nil
}

// NewPostgresTranscriptStoreWithPool creates a new Postgres transcript store with an existing pool
// Useful for testing with mocks
func NewPostgresTranscriptStoreWithPool(pool DBPool, tableName string) *PostgresTranscriptStore {
	if tableName == "" {
		tableName = "transcripts"
	}
	return &PostgresTranscriptStore{
		pool:      pool,
		tableName: tableName,
	}
}

// InitSchema creates the necessary table if it doesn't exist
func (s *PostgresTranscriptStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			faq_id TEXT NOT NULL DEFAULT '',
			intent TEXT NOT NULL DEFAULT '',
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			mode TEXT NOT NULL DEFAULT '',
			latency_ms BIGINT NOT NULL DEFAULT 0,
			feedback TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_session_id ON %s (session_id, created_at);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresTranscriptStore) Close() {
	s.pool.Close()
}

// Append stores a turn
func (s *PostgresTranscriptStore) Append(ctx context.Context, turn store.Turn) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, question, answer, faq_id, intent, confidence, mode, latency_ms, feedback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, s.tableName)

	_, err := s.pool.Exec(ctx, query,
		turn.ID,
		turn.SessionID,
		turn.Question,
		turn.Answer,
		turn.FAQID,
		string(turn.Intent),
		turn.Confidence,
		turn.Mode,
		turn.Latency.Milliseconds(),
		turn.Feedback,
		turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

// List returns the turns of a session, oldest first
func (s *PostgresTranscriptStore) List(ctx context.Context, sessionID string) ([]store.Turn, error) {
	query := fmt.Sprintf(`
		SELECT id, session_id, question, answer, faq_id, intent, confidence, mode, latency_ms, feedback, created_at
		FROM %s
		WHERE session_id = $1
		ORDER BY created_at ASC
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	var turns []store.Turn
	for rows.Next() {
		var (
			turn      store.Turn
			intent    string
			latencyMS int64
		)
		err := rows.Scan(
			&turn.ID,
			&turn.SessionID,
			&turn.Question,
			&turn.Answer,
			&turn.FAQID,
			&intent,
			&turn.Confidence,
			&turn.Mode,
			&latencyMS,
			&turn.Feedback,
			&turn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn row: %w", err)
		}
		turn.Intent = rag.Intent(intent)
		turn.Latency = time.Duration(latencyMS) * time.Millisecond
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turn rows: %w", err)
	}
	return turns, nil
}

// UpdateFeedback records user feedback on a turn
func (s *PostgresTranscriptStore) UpdateFeedback(ctx context.Context, turnID, feedback string) error {
	query := fmt.Sprintf("UPDATE %s SET feedback = $1 WHERE id = $2", s.tableName)
	tag, err := s.pool.Exec(ctx, query, feedback, turnID)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", store.ErrTurnNotFound, turnID)
	}
	return nil
}

// Count returns the number of turns of a session.
func (s *PostgresTranscriptStore) Count(ctx context.Context, sessionID string) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE session_id = $1", s.tableName)
	var n int
	if err := s.pool.QueryRow(ctx, query, sessionID).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}
	return n, nil
}
