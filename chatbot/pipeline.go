package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallnest/faqgraph/conversation"
	"github.com/smallnest/faqgraph/graph"
	"github.com/smallnest/faqgraph/log"
	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/rag/engine"
	"github.com/smallnest/faqgraph/rag/intent"
	"github.com/smallnest/faqgraph/store"
	"github.com/smallnest/faqgraph/textutil"
)

// Pipeline nodes
const (
	nodeContinuation = "continuation"
	nodeRetrieve     = "retrieve"
	nodeFallback     = "fallback"
	nodeGenerate     = "generate"
	nodeTrack        = "track"
	nodeFinish       = "finish"
)

// turnState flows through the pipeline for one message.
type turnState struct {
	session *store.ConversationState
	message string

	signal conversation.Signal
	query  string

	handled  bool
	noAnswer bool
	cached   bool
	cacheKey string

	result *rag.QueryResult
	faq    *rag.FAQ
	answer string
	source string
	reply  conversation.Reply

	nodeStart time.Time
	timings   map[string]time.Duration
}

// nodeTimer records and logs how long each node takes.
type nodeTimer struct {
	logger log.Logger
}

func (t nodeTimer) OnNodeEvent(ctx context.Context, event graph.NodeEvent, name string, s *turnState, err error) {
	switch event {
	case graph.NodeEventStart:
		s.nodeStart = time.Now()
	case graph.NodeEventComplete:
		d := time.Since(s.nodeStart)
		if s.timings == nil {
			s.timings = make(map[string]time.Duration)
		}
		s.timings[name] = d
		t.logger.Debug("session %s: node %s took %v", s.session.SessionID, name, d)
	case graph.NodeEventError:
		t.logger.Warn("session %s: node %s failed after %v: %v", s.session.SessionID, name, time.Since(s.nodeStart), err)
	}
}

func (c *Chatbot) buildPipeline() (*graph.StateRunnable[*turnState], error) {
	g := graph.NewStateGraph[*turnState]()
	g.AddNode(nodeContinuation, "answer step navigation and greetings from session state", c.continuationNode)
	g.AddNode(nodeRetrieve, "query the answer cache and the RAG engine", c.retrieveNode)
	g.AddNode(nodeFallback, "reply when no FAQ matches", c.fallbackNode)
	g.AddNode(nodeGenerate, "rewrite the FAQ answer with the LLM", c.generateNode)
	g.AddNode(nodeTrack, "start step tracking and cache the answer", c.trackNode)
	g.AddNode(nodeFinish, "update chat memory", c.finishNode)

	g.SetEntryPoint(nodeContinuation)
	g.AddConditionalEdge(nodeContinuation, func(ctx context.Context, s *turnState) string {
		if s.handled {
			return nodeFinish
		}
		return nodeRetrieve
	})
	g.AddConditionalEdge(nodeRetrieve, func(ctx context.Context, s *turnState) string {
		switch {
		case s.noAnswer:
			return nodeFallback
		default:
			return nodeGenerate
		}
	})
	g.AddEdge(nodeFallback, nodeFinish)
	g.AddEdge(nodeGenerate, nodeTrack)
	g.AddEdge(nodeTrack, nodeFinish)
	g.AddEdge(nodeFinish, graph.END)

	// every node runs at most once per message
	g.SetMaxSteps(len(g.Nodes()))
	g.AddListener(nodeTimer{logger: c.logger})
	if c.retry != nil {
		policy := *c.retry
		policy.Nodes = []string{nodeRetrieve}
		g.SetRetryPolicy(&policy)
	}
	return g.Compile()
}

func (c *Chatbot) continuationNode(ctx context.Context, s *turnState) (*turnState, error) {
	s.signal = conversation.DetectContinuation(s.message)
	if reply, ok := c.manager.Resume(s.session, s.signal); ok {
		s.handled = true
		s.reply = reply
		s.answer = reply.Text
		s.source = SourceContinuation
		return s, nil
	}
	if intent.IsGreeting(s.message) {
		s.handled = true
		s.answer = greetingReply(s.message)
		s.source = SourceGreeting
		return s, nil
	}
	s.query = c.manager.RetrievalQuery(s.session, s.message, s.signal)
	return s, nil
}

func (c *Chatbot) retrieveNode(ctx context.Context, s *turnState) (*turnState, error) {
	if c.cacheable(s) {
		s.cacheKey = c.mode + ":" + strings.Join(textutil.Words(s.message), " ")
		hit, ok, err := c.cache.Get(ctx, s.cacheKey)
		if err != nil {
			c.logger.Warn("answer cache lookup failed: %v", err)
		} else if ok {
			s.cached = true
			s.source = SourceCache
			s.result = &rag.QueryResult{
				Query:      s.query,
				Answer:     hit.Answer,
				Intent:     hit.Intent,
				Confidence: hit.Confidence,
				Context:    hit.Context,
			}
			if hit.FAQID != "" {
				s.faq = &rag.FAQ{ID: hit.FAQID, Topic: hit.Topic}
			}
			return s, nil
		}
	}

	result, err := c.engine.Query(ctx, s.query)
	switch {
	case errors.Is(err, engine.ErrNoAnswer):
		s.noAnswer = true
	case err != nil:
		return s, fmt.Errorf("retrieval failed: %w", err)
	}
	s.result = result
	if result != nil {
		s.faq = result.FAQ
	}
	return s, nil
}

// cacheable reports whether the answer depends on the message alone.
func (c *Chatbot) cacheable(s *turnState) bool {
	return c.cache != nil && s.query == s.message && s.signal.Kind != conversation.SignalStuck
}

func (c *Chatbot) fallbackNode(ctx context.Context, s *turnState) (*turnState, error) {
	s.source = SourceFallback
	s.answer = engine.FallbackAnswer
	if s.result != nil && s.result.Answer != "" {
		s.answer = s.result.Answer
	}
	if s.session.Active && s.signal.Kind == conversation.SignalStuck {
		step := s.session.CurrentStep
		s.answer += fmt.Sprintf("\n\nBạn đang ở bước %d: %s", step, s.session.Steps[step-1])
	}
	return s, nil
}

// generateNode runs for cache hits too: the cache holds engine answers and
// the rewrite depends on the session's history.
func (c *Chatbot) generateNode(ctx context.Context, s *turnState) (*turnState, error) {
	if !s.cached {
		s.source = SourceEngine
	}
	s.answer = s.result.Answer
	if c.llm == nil {
		return s, nil
	}

	history, err := c.manager.HistoryForPrompt(ctx, s.session)
	if err != nil {
		c.logger.Warn("session %s: chat memory unavailable: %v", s.session.SessionID, err)
		history = ""
	}
	prompt := buildPrompt(s.result.Intent, s.message, history, s.result.Context, s.result.Answer)
	generated, err := c.llm.GenerateWithSystem(ctx, systemPrompt, prompt)
	if err != nil {
		c.logger.Warn("session %s: generation failed, using FAQ answer: %v", s.session.SessionID, err)
		return s, nil
	}
	generated = strings.TrimSpace(generated)
	if generated == "" {
		return s, nil
	}
	// keep the FAQ answer when the rewrite lost its steps
	if len(conversation.ParseSteps(s.result.Answer)) >= 2 && len(conversation.ParseSteps(generated)) < 2 {
		c.logger.Debug("session %s: generated answer dropped the steps, using FAQ answer", s.session.SessionID)
		return s, nil
	}
	s.answer = generated
	s.source = SourceLLM
	return s, nil
}

func (c *Chatbot) trackNode(ctx context.Context, s *turnState) (*turnState, error) {
	if s.result != nil {
		s.session.LastIntent = s.result.Intent
	}

	stuck := s.signal.Kind == conversation.SignalStuck && s.session.Active
	if stuck && len(conversation.ParseSteps(s.answer)) < 2 {
		// troubleshooting answer mid-procedure: keep the user's place
		s.session.LastQuestion = s.message
	} else if c.manager.Begin(s.session, s.faq, s.message, s.answer) {
		s.reply = conversation.Reply{Step: 1, Total: len(s.session.Steps)}
	}

	if s.cacheKey != "" && !s.cached && s.result != nil {
		entry := &store.CachedAnswer{
			Answer:     s.result.Answer,
			Intent:     s.result.Intent,
			Confidence: s.result.Confidence,
			Context:    s.result.Context,
		}
		if s.faq != nil {
			entry.FAQID = s.faq.ID
			entry.Topic = s.faq.Topic
		}
		if err := c.cache.Set(ctx, s.cacheKey, entry); err != nil {
			c.logger.Warn("answer cache store failed: %v", err)
		}
	}
	return s, nil
}

func (c *Chatbot) finishNode(ctx context.Context, s *turnState) (*turnState, error) {
	if err := c.manager.Remember(ctx, s.session, s.message, s.answer); err != nil {
		return s, err
	}
	return s, nil
}

func (s *turnState) response(mode string) *Response {
	resp := &Response{
		SessionID:  s.session.SessionID,
		Answer:     s.answer,
		Mode:       mode,
		Source:     s.source,
		Step:       s.reply.Step,
		TotalSteps: s.reply.Total,
		Completed:  s.reply.Completed,
		Cached:     s.cached,
		Timings:    s.timings,
	}
	if s.result != nil {
		resp.Intent = s.result.Intent
		resp.Confidence = s.result.Confidence
		for _, doc := range s.result.Sources {
			q, _ := doc.Metadata["question"].(string)
			resp.Sources = append(resp.Sources, Source{FAQID: doc.ID, Question: q})
		}
	}
	if s.faq != nil && !s.noAnswer {
		resp.FAQID = s.faq.ID
	}
	return resp
}
