// Package chatbot answers support questions for one session at a time.
//
// Chat runs every message through a small state graph:
//
//	continuation ──handled──▶ finish
//	     │
//	     ▼
//	 retrieve ──no answer──▶ fallback ──▶ finish
//	     │
//	     ▼
//	 generate ──▶ track ──▶ finish
//
// The continuation node answers "tiếp", "xong bước 2" and greetings without
// retrieval. Retrieval goes through a rag.Engine (GraphRAG or the BM25 and
// vector hybrid), generation through an optional LLM that rewrites the FAQ
// answer for the question; without an LLM, or when it fails, the formatted
// FAQ answer is returned as is.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/smallnest/faqgraph/conversation"
	"github.com/smallnest/faqgraph/graph"
	"github.com/smallnest/faqgraph/log"
	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/store"
	"github.com/smallnest/faqgraph/store/memory"
)

var (
	// ErrEmptyMessage is returned for blank messages.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrInvalidFeedback is returned for feedback values other than
	// FeedbackHelpful and FeedbackNotHelpful.
	ErrInvalidFeedback = errors.New("invalid feedback")
)

// Feedback values
const (
	FeedbackHelpful    = "helpful"
	FeedbackNotHelpful = "not_helpful"
)

// Answer sources reported in Response.Source.
const (
	SourceEngine       = "engine"
	SourceLLM          = "llm"
	SourceCache        = "cache"
	SourceContinuation = "continuation"
	SourceGreeting     = "greeting"
	SourceFallback     = "fallback"
)

const sessionLocks = 64

// Source is an FAQ that supported the answer.
type Source struct {
	FAQID    string `json:"faq_id"`
	Question string `json:"question,omitempty"`
}

// Response is the reply to one message.
type Response struct {
	SessionID  string        `json:"session_id"`
	MessageID  string        `json:"message_id"`
	Answer     string        `json:"answer"`
	HTML       string        `json:"html,omitempty"`
	Mode       string        `json:"mode"`
	Source     string        `json:"source"`
	Intent     rag.Intent    `json:"intent,omitempty"`
	Confidence float64       `json:"confidence"`
	FAQID      string        `json:"faq_id,omitempty"`
	Sources    []Source      `json:"sources,omitempty"`
	Step       int           `json:"step,omitempty"`
	TotalSteps int           `json:"total_steps,omitempty"`
	Completed  bool          `json:"completed,omitempty"`
	Cached     bool          `json:"cached,omitempty"`
	Latency    time.Duration `json:"latency"`
	// Timings holds the duration of each pipeline node that ran.
	Timings map[string]time.Duration `json:"timings,omitempty"`
}

// Chatbot is safe for concurrent use. Messages of the same session are
// processed one at a time.
type Chatbot struct {
	engine      rag.Engine
	mode        string
	llm         rag.LLMInterface
	manager     *conversation.Manager
	sessions    store.SessionStore
	cache       store.AnswerCache
	transcripts store.TranscriptStore
	renderer    *Renderer
	logger      log.Logger
	windowSize  int
	retry       *graph.RetryPolicy

	pipeline *graph.StateRunnable[*turnState]
	locks    [sessionLocks]sync.Mutex
}

// Option configures a Chatbot.
type Option func(*Chatbot)

// WithLLM enables answer generation and history summaries.
func WithLLM(llm rag.LLMInterface) Option {
	return func(c *Chatbot) { c.llm = llm }
}

// WithMode labels responses and cache keys with the engine mode.
func WithMode(mode string) Option {
	return func(c *Chatbot) { c.mode = mode }
}

// WithSessionStore sets where conversation state is kept.
func WithSessionStore(s store.SessionStore) Option {
	return func(c *Chatbot) { c.sessions = s }
}

// WithAnswerCache caches engine answers to context-free questions. Cached
// answers are still rewritten per session when an LLM is set.
func WithAnswerCache(a store.AnswerCache) Option {
	return func(c *Chatbot) { c.cache = a }
}

// WithTranscriptStore sets where turns are logged.
func WithTranscriptStore(t store.TranscriptStore) Option {
	return func(c *Chatbot) { c.transcripts = t }
}

// WithManager replaces the default conversation manager.
func WithManager(m *conversation.Manager) Option {
	return func(c *Chatbot) { c.manager = m }
}

// WithWindowSize sets the chat memory window of the default manager.
func WithWindowSize(n int) Option {
	return func(c *Chatbot) { c.windowSize = n }
}

// WithRenderer renders answers to HTML; nil disables rendering.
func WithRenderer(r *Renderer) Option {
	return func(c *Chatbot) { c.renderer = r }
}

// WithRetrievalRetry retries failed engine queries, e.g. when Neo4j is
// briefly unreachable. policy.Nodes is ignored.
func WithRetrievalRetry(policy graph.RetryPolicy) Option {
	return func(c *Chatbot) {
		if policy.MaxRetries > 0 {
			c.retry = &policy
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(c *Chatbot) { c.logger = l }
}

// New creates a Chatbot over engine. Sessions and transcripts default to
// in-process stores; answers are not cached unless WithAnswerCache is given.
func New(engine rag.Engine, opts ...Option) (*Chatbot, error) {
	if engine == nil {
		return nil, errors.New("chatbot: engine is required")
	}
	c := &Chatbot{
		engine:   engine,
		mode:     "graphrag",
		renderer: NewRenderer(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = log.OrDefault(c.logger)
	if c.sessions == nil {
		c.sessions = memory.NewSessionStore()
	}
	if c.transcripts == nil {
		c.transcripts = memory.NewTranscriptStore()
	}
	if c.manager == nil {
		mopts := []conversation.Option{
			conversation.WithLogger(c.logger),
			conversation.WithWindowSize(c.windowSize),
		}
		if c.llm != nil {
			mopts = append(mopts, conversation.WithLLM(c.llm))
		}
		c.manager = conversation.NewManager(mopts...)
	}

	pipeline, err := c.buildPipeline()
	if err != nil {
		return nil, fmt.Errorf("chatbot: %w", err)
	}
	c.pipeline = pipeline
	return c, nil
}

// Mode returns the engine mode label.
func (c *Chatbot) Mode() string {
	return c.mode
}

// Chat answers message in the session. An empty sessionID starts a new
// session; its id is returned in the response.
func (c *Chatbot) Chat(ctx context.Context, sessionID, message string) (*Response, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	start := time.Now()

	if sessionID != "" {
		unlock := c.lock(sessionID)
		defer unlock()
	}
	session, err := c.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ts, err := c.pipeline.Invoke(ctx, &turnState{session: session, message: message})
	if err != nil {
		return nil, fmt.Errorf("chat pipeline: %w", err)
	}
	if err := c.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	resp := ts.response(c.mode)
	resp.Latency = time.Since(start)

	turn := store.NewTurn(session.SessionID, message, resp.Answer)
	turn.FAQID = resp.FAQID
	turn.Intent = resp.Intent
	turn.Confidence = resp.Confidence
	turn.Mode = c.mode + "/" + resp.Source
	turn.Latency = resp.Latency
	if err := c.transcripts.Append(ctx, turn); err != nil {
		c.logger.Warn("session %s: failed to log turn: %v", session.SessionID, err)
	}
	resp.MessageID = turn.ID

	if c.renderer != nil {
		resp.HTML = c.renderer.Render(resp.Answer)
	}
	c.logger.Info("session %s: %s answer in %v (faq=%s, confidence=%.2f)",
		session.SessionID, resp.Source, resp.Latency, resp.FAQID, resp.Confidence)
	return resp, nil
}

// Reset forgets the session's conversation state. The transcript is kept.
func (c *Chatbot) Reset(ctx context.Context, sessionID string) error {
	unlock := c.lock(sessionID)
	defer unlock()
	if err := c.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to reset session %s: %w", sessionID, err)
	}
	return nil
}

// Feedback records whether an answer helped. messageID must be a turn of
// the session.
func (c *Chatbot) Feedback(ctx context.Context, sessionID, messageID, feedback string) error {
	switch feedback {
	case FeedbackHelpful, FeedbackNotHelpful:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFeedback, feedback)
	}

	turns, err := c.transcripts.List(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to list turns: %w", err)
	}
	found := false
	for _, t := range turns {
		if t.ID == messageID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s in session %s", store.ErrTurnNotFound, messageID, sessionID)
	}
	return c.transcripts.UpdateFeedback(ctx, messageID, feedback)
}

// History returns the logged turns of a session, oldest first.
func (c *Chatbot) History(ctx context.Context, sessionID string) ([]store.Turn, error) {
	turns, err := c.transcripts.List(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	return turns, nil
}

func (c *Chatbot) loadSession(ctx context.Context, sessionID string) (*store.ConversationState, error) {
	if sessionID == "" {
		return store.NewConversationState(""), nil
	}
	session, err := c.sessions.Load(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		return store.NewConversationState(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return session, nil
}

func (c *Chatbot) lock(sessionID string) func() {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	mu := &c.locks[h.Sum32()%sessionLocks]
	mu.Lock()
	return mu.Unlock
}
