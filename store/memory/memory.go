// Package memory provides in-process implementations of the store
// interfaces.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/smallnest/faqgraph/store"
)

// SessionStore keeps sessions in a map. States are copied on Save and
// Load so callers never share them.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string][]byte)}
}

// Load implements store.SessionStore.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (*store.ConversationState, error) {
	s.mu.RLock()
	data, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, sessionID)
	}
	var state store.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &state, nil
}

// Save implements store.SessionStore.
func (s *SessionStore) Save(ctx context.Context, state *store.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[state.SessionID] = data
	return nil
}

// Delete implements store.SessionStore.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// AnswerCache is an unbounded map cache.
type AnswerCache struct {
	mu      sync.RWMutex
	answers map[string]store.CachedAnswer
}

// NewAnswerCache creates an empty AnswerCache.
func NewAnswerCache() *AnswerCache {
	return &AnswerCache{answers: make(map[string]store.CachedAnswer)}
}

// Get implements store.AnswerCache.
func (c *AnswerCache) Get(ctx context.Context, key string) (*store.CachedAnswer, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.answers[key]
	if !ok {
		return nil, false, nil
	}
	return &a, true, nil
}

// Set implements store.AnswerCache.
func (c *AnswerCache) Set(ctx context.Context, key string, answer *store.CachedAnswer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answers[key] = *answer
	return nil
}

// TranscriptStore keeps turns in insertion order.
type TranscriptStore struct {
	mu    sync.RWMutex
	turns []store.Turn
}

// NewTranscriptStore creates an empty TranscriptStore.
func NewTranscriptStore() *TranscriptStore {
	return &TranscriptStore{}
}

// Append implements store.TranscriptStore.
func (t *TranscriptStore) Append(ctx context.Context, turn store.Turn) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns, turn)
	return nil
}

// List implements store.TranscriptStore.
func (t *TranscriptStore) List(ctx context.Context, sessionID string) ([]store.Turn, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []store.Turn
	for _, turn := range t.turns {
		if turn.SessionID == sessionID {
			out = append(out, turn)
		}
	}
	return out, nil
}

// UpdateFeedback implements store.TranscriptStore.
func (t *TranscriptStore) UpdateFeedback(ctx context.Context, turnID, feedback string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.turns {
		if t.turns[i].ID == turnID {
			t.turns[i].Feedback = feedback
			return nil
		}
	}
	return fmt.Errorf("%w: %s", store.ErrTurnNotFound, turnID)
}
