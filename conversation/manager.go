package conversation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/smallnest/faqgraph/log"
	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/rag/extract"
	"github.com/smallnest/faqgraph/store"
	"github.com/smallnest/faqgraph/textutil"
)

// DefaultWindowSize is the number of question/answer pairs kept verbatim.
const DefaultWindowSize = 5

// Messages sent while following a procedure.
const (
	CompletionMessage = "Tuyệt vời! Bạn đã hoàn thành tất cả các bước. Nếu cần hỗ trợ thêm, bạn cứ hỏi nhé."
	nextHint          = "Làm xong bạn nhắn \"tiếp\" để sang bước tiếp theo nhé."
	lastStepHint      = "Đây là bước cuối cùng. Làm xong bạn nhắn \"xong\" cho mình biết nhé."
)

// Reply is the manager's answer to a continuation message.
type Reply struct {
	Text      string `json:"text"`
	Step      int    `json:"step,omitempty"`
	Total     int    `json:"total,omitempty"`
	Completed bool   `json:"completed,omitempty"`
}

// Manager tracks procedures and chat memory on a store.ConversationState.
// It holds no per-session data itself and is safe for concurrent use.
type Manager struct {
	llm        rag.LLMInterface
	extractor  *extract.Extractor
	windowSize int
	logger     log.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLLM summarises history that falls out of the memory window.
func WithLLM(llm rag.LLMInterface) Option {
	return func(m *Manager) { m.llm = llm }
}

// WithExtractor sets the extractor used to spot topics in follow-ups.
func WithExtractor(e *extract.Extractor) Option {
	return func(m *Manager) { m.extractor = e }
}

// WithWindowSize sets how many question/answer pairs stay verbatim.
func WithWindowSize(n int) Option {
	return func(m *Manager) { m.windowSize = n }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{windowSize: DefaultWindowSize}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = log.OrDefault(m.logger)
	if m.extractor == nil {
		m.extractor = extract.New(extract.WithLogger(m.logger))
	}
	if m.windowSize <= 0 {
		m.windowSize = DefaultWindowSize
	}
	return m
}

// Begin records the answered question on the state and starts step tracking
// when answer is a procedure. It reports whether tracking started.
func (m *Manager) Begin(state *store.ConversationState, faq *rag.FAQ, question, answer string) bool {
	state.LastQuestion = question
	if faq != nil {
		state.LastFAQID = faq.ID
		if topic := topicOf(faq); topic != "" {
			state.LastTopic = topic
		}
	}

	steps := ParseSteps(answer)
	if len(steps) < 2 {
		state.ClearSteps()
		return false
	}
	state.Steps = steps
	state.CurrentStep = 1
	state.Active = true
	m.logger.Debug("session %s: tracking %d steps", state.SessionID, len(steps))
	return true
}

// Resume answers sig from the tracked steps. It reports false when the
// message needs retrieval instead: nothing is tracked, the signal is none,
// or the user is stuck.
func (m *Manager) Resume(state *store.ConversationState, sig Signal) (Reply, bool) {
	if !state.Active || len(state.Steps) == 0 {
		return Reply{}, false
	}

	total := len(state.Steps)
	var target int
	switch sig.Kind {
	case SignalNext:
		target = state.CurrentStep + 1
	case SignalDoneStep:
		target = sig.Step + 1
	case SignalGoto:
		if sig.Step < 1 || sig.Step > total {
			return Reply{
				Text:  fmt.Sprintf("Hướng dẫn này chỉ có %d bước. Bạn đang ở bước %d:\n\n%s", total, state.CurrentStep, state.Steps[state.CurrentStep-1]),
				Step:  state.CurrentStep,
				Total: total,
			}, true
		}
		target = sig.Step
	case SignalRepeat:
		target = state.CurrentStep
	case SignalComplete:
		target = total + 1
	default:
		return Reply{}, false
	}

	if target > total {
		state.ClearSteps()
		return Reply{Text: CompletionMessage, Total: total, Completed: true}, true
	}
	if target < 1 {
		target = 1
	}
	state.CurrentStep = target
	return Reply{Text: formatStep(state.Steps, target), Step: target, Total: total}, true
}

func formatStep(steps []string, n int) string {
	hint := nextHint
	if n == len(steps) {
		hint = lastStepHint
	}
	return fmt.Sprintf("**Bước %d/%d:** %s\n\n%s", n, len(steps), steps[n-1], hint)
}

var followUpRe = regexp.MustCompile(`^(?:con|the con|vay con|con neu|neu|vay neu|truong hop)\b|\b(?:thi sao|the nao|thi the nao|duoc khong|co duoc khong|nua khong)$`)

// maxFollowUpWords bounds messages considered elliptical follow-ups.
const maxFollowUpWords = 8

// IsFollowUp reports whether msg is a short elliptical follow-up such as
// "còn Vietcombank thì sao?".
func IsFollowUp(msg string) bool {
	s := strings.TrimSpace(nonWordRe.ReplaceAllString(textutil.Fold(msg), " "))
	if s == "" || len(strings.Fields(s)) > maxFollowUpWords {
		return false
	}
	return followUpRe.MatchString(s)
}

// RetrievalQuery returns the text to retrieve with. A stuck report during a
// procedure gets the step text appended; a follow-up without its own topic
// gets the previous topic appended.
func (m *Manager) RetrievalQuery(state *store.ConversationState, msg string, sig Signal) string {
	if sig.Kind == SignalStuck && state.Active && len(state.Steps) > 0 {
		step := sig.Step
		if step < 1 || step > len(state.Steps) {
			step = state.CurrentStep
		}
		if step >= 1 && step <= len(state.Steps) {
			q := msg + " " + state.Steps[step-1]
			if state.LastTopic != "" && !textutil.ContainsPhrase(q, state.LastTopic) {
				q += " " + state.LastTopic
			}
			return q
		}
	}

	if state.LastTopic != "" && IsFollowUp(msg) {
		if !m.extractor.ExtractRegex(msg).Has(rag.EntityTopic) {
			return msg + " " + state.LastTopic
		}
	}
	return msg
}

func topicOf(faq *rag.FAQ) string {
	if faq.Topic != "" {
		return faq.Topic
	}
	if topics := faq.Entities[rag.EntityTopic]; len(topics) > 0 {
		return topics[0]
	}
	return ""
}
