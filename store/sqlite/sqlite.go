package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/store"
)

// SqliteStore implements store.TranscriptStore and store.SessionStore on a
// single SQLite file.
type SqliteStore struct {
	db           *sql.DB
	tableName    string
	sessionTable string
}

// SqliteOptions configuration for SQLite connection
type SqliteOptions struct {
	Path      string
	TableName string // Default "transcripts"
}

// NewSqliteStore opens the database and creates the schema.
func NewSqliteStore(opts SqliteOptions) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "transcripts"
	}

	s := &SqliteStore{
		db:           db,
		tableName:    tableName,
		sessionTable: tableName + "_sessions",
	}

	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// InitSchema creates the necessary tables if they don't exist
func (s *SqliteStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			faq_id TEXT NOT NULL DEFAULT '',
			intent TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 0,
			mode TEXT NOT NULL DEFAULT '',
			latency_ms INTEGER NOT NULL DEFAULT 0,
			feedback TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_session_id ON %s (session_id, created_at);
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`, s.tableName, s.tableName, s.tableName, s.sessionTable)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// Append stores a turn
func (s *SqliteStore) Append(ctx context.Context, turn store.Turn) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, question, answer, faq_id, intent, confidence, mode, latency_ms, feedback, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.tableName)

	_, err := s.db.ExecContext(ctx, query,
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
		turn.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

// List returns the turns of a session, oldest first
func (s *SqliteStore) List(ctx context.Context, sessionID string) ([]store.Turn, error) {
	query := fmt.Sprintf(`
		SELECT id, session_id, question, answer, faq_id, intent, confidence, mode, latency_ms, feedback, created_at
		FROM %s
		WHERE session_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, sessionID)
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
func (s *SqliteStore) UpdateFeedback(ctx context.Context, turnID, feedback string) error {
	query := fmt.Sprintf("UPDATE %s SET feedback = ? WHERE id = ?", s.tableName)
	res, err := s.db.ExecContext(ctx, query, feedback, turnID)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrTurnNotFound, turnID)
	}
	return nil
}

// Save upserts a conversation state
func (s *SqliteStore) Save(ctx context.Context, state *store.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, state, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at
	`, s.sessionTable)

	if _, err := s.db.ExecContext(ctx, query, state.SessionID, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load retrieves a conversation state by session id
func (s *SqliteStore) Load(ctx context.Context, sessionID string) (*store.ConversationState, error) {
	query := fmt.Sprintf("SELECT state FROM %s WHERE id = ?", s.sessionTable)

	var data string
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var state store.ConversationState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &state, nil
}

// Delete removes a conversation state
func (s *SqliteStore) Delete(ctx context.Context, sessionID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.sessionTable)
	if _, err := s.db.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
