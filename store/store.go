package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/smallnest/faqgraph/rag"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// ErrTurnNotFound is returned when a transcript message id is unknown.
var ErrTurnNotFound = errors.New("turn not found")

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message kept in the session history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationState is everything the chatbot remembers about a session.
type ConversationState struct {
	SessionID string    `json:"session_id"`
	History   []Message `json:"history"`
	// Summary condenses turns that fell out of the history window.
	Summary string `json:"summary,omitempty"`

	LastQuestion string     `json:"last_question,omitempty"`
	LastFAQID    string     `json:"last_faq_id,omitempty"`
	LastTopic    string     `json:"last_topic,omitempty"`
	LastIntent   rag.Intent `json:"last_intent,omitempty"`

	// Steps of the procedure being followed, CurrentStep is 1-based.
	Steps       []string `json:"steps,omitempty"`
	CurrentStep int      `json:"current_step,omitempty"`
	Active      bool     `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversationState creates an empty state; an empty id gets a new UUID.
func NewConversationState(sessionID string) *ConversationState {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := time.Now()
	return &ConversationState{SessionID: sessionID, CreatedAt: now, UpdatedAt: now}
}

// AddMessage appends a message to the history.
func (s *ConversationState) AddMessage(role, content string) {
	now := time.Now()
	s.History = append(s.History, Message{Role: role, Content: content, Timestamp: now})
	s.UpdatedAt = now
}

// ClearSteps stops step tracking.
func (s *ConversationState) ClearSteps() {
	s.Steps = nil
	s.CurrentStep = 0
	s.Active = false
}

// Turn is one question/answer exchange in the transcript log.
type Turn struct {
	ID         string        `json:"id"`
	SessionID  string        `json:"session_id"`
	Question   string        `json:"question"`
	Answer     string        `json:"answer"`
	FAQID      string        `json:"faq_id,omitempty"`
	Intent     rag.Intent    `json:"intent,omitempty"`
	Confidence float64       `json:"confidence"`
	Mode       string        `json:"mode,omitempty"`
	Latency    time.Duration `json:"latency"`
	Feedback   string        `json:"feedback,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// NewTurn creates a transcript turn with a new id.
func NewTurn(sessionID, question, answer string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now(),
	}
}

// SessionStore persists conversation state.
type SessionStore interface {
	// Load returns ErrSessionNotFound for unknown sessions.
	Load(ctx context.Context, sessionID string) (*ConversationState, error)
	Save(ctx context.Context, state *ConversationState) error
	Delete(ctx context.Context, sessionID string) error
}

// CachedAnswer is a stored engine answer for a context-free question.
type CachedAnswer struct {
	Answer     string     `json:"answer"`
	FAQID      string     `json:"faq_id,omitempty"`
	Topic      string     `json:"topic,omitempty"`
	Intent     rag.Intent `json:"intent,omitempty"`
	Confidence float64    `json:"confidence"`
	Context    string     `json:"context,omitempty"`
}

// AnswerCache caches answers by normalised question.
type AnswerCache interface {
	// Get reports false on a miss.
	Get(ctx context.Context, key string) (*CachedAnswer, bool, error)
	Set(ctx context.Context, key string, answer *CachedAnswer) error
}

// TranscriptStore is the append-only conversation log.
type TranscriptStore interface {
	Append(ctx context.Context, turn Turn) error
	// List returns the session's turns, oldest first.
	List(ctx context.Context, sessionID string) ([]Turn, error)
	// UpdateFeedback returns ErrTurnNotFound for unknown ids.
	UpdateFeedback(ctx context.Context, turnID, feedback string) error
}
