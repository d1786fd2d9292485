package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallnest/faqgraph/store"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
)

const (
	humanPrefix     = "Khách hàng"
	aiPrefix        = "Trợ lý"
	maxSummaryRunes = 800
)

const summarySystemPrompt = "Bạn là trợ lý tóm tắt hội thoại chăm sóc khách hàng ví điện tử. " +
	"Viết tóm tắt ngắn gọn bằng tiếng Việt, giữ lại nhu cầu của khách hàng, ngân hàng, mã lỗi và số tiền đã nhắc đến."

// buffer rebuilds the langchaingo window memory from the stored history.
func (m *Manager) buffer(state *store.ConversationState) *memory.ConversationWindowBuffer {
	msgs := make([]llms.ChatMessage, 0, len(state.History))
	for _, msg := range state.History {
		switch msg.Role {
		case store.RoleUser:
			msgs = append(msgs, llms.HumanChatMessage{Content: msg.Content})
		case store.RoleAssistant:
			msgs = append(msgs, llms.AIChatMessage{Content: msg.Content})
		}
	}
	history := memory.NewChatMessageHistory(memory.WithPreviousMessages(msgs))
	return memory.NewConversationWindowBuffer(m.windowSize,
		memory.WithChatHistory(history),
		memory.WithHumanPrefix(humanPrefix),
		memory.WithAIPrefix(aiPrefix),
	)
}

// Remember appends a question/answer pair to the state. Messages pushed out
// of the window are folded into state.Summary.
func (m *Manager) Remember(ctx context.Context, state *store.ConversationState, question, answer string) error {
	buf := m.buffer(state)
	err := buf.SaveContext(ctx,
		map[string]any{"input": question},
		map[string]any{"output": answer},
	)
	if err != nil {
		return fmt.Errorf("save conversation memory: %w", err)
	}
	kept, err := buf.ChatHistory.Messages(ctx)
	if err != nil {
		return fmt.Errorf("read conversation memory: %w", err)
	}

	state.AddMessage(store.RoleUser, question)
	state.AddMessage(store.RoleAssistant, answer)

	overflow := len(state.History) - len(kept)
	if overflow <= 0 {
		return nil
	}
	dropped := state.History[:overflow]
	state.Summary = m.summarize(ctx, state.Summary, dropped)
	state.History = append([]store.Message(nil), state.History[overflow:]...)
	return nil
}

// HistoryForPrompt renders the summary and the recent window for an LLM
// prompt.
func (m *Manager) HistoryForPrompt(ctx context.Context, state *store.ConversationState) (string, error) {
	vars, err := m.buffer(state).LoadMemoryVariables(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("load conversation memory: %w", err)
	}
	history, _ := vars["history"].(string)

	var b strings.Builder
	if state.Summary != "" {
		b.WriteString("Tóm tắt trước đó: ")
		b.WriteString(state.Summary)
		b.WriteString("\n")
	}
	b.WriteString(history)
	return strings.TrimSpace(b.String()), nil
}

func (m *Manager) summarize(ctx context.Context, previous string, dropped []store.Message) string {
	if m.llm != nil {
		var b strings.Builder
		if previous != "" {
			b.WriteString("Tóm tắt hiện có:\n")
			b.WriteString(previous)
			b.WriteString("\n\n")
		}
		b.WriteString("Đoạn hội thoại mới:\n")
		for _, msg := range dropped {
			b.WriteString(roleLabel(msg.Role))
			b.WriteString(": ")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
		b.WriteString("\nHãy viết lại bản tóm tắt bao gồm cả đoạn hội thoại mới.")

		summary, err := m.llm.GenerateWithSystem(ctx, summarySystemPrompt, b.String())
		switch {
		case err != nil:
			m.logger.Warn("conversation summary failed, using extractive summary: %v", err)
		case strings.TrimSpace(summary) == "":
			m.logger.Warn("conversation summary empty, using extractive summary")
		default:
			return clipSummary(strings.TrimSpace(summary))
		}
	}
	return extractiveSummary(previous, dropped)
}

// extractiveSummary lists the user's earlier questions.
func extractiveSummary(previous string, dropped []store.Message) string {
	var questions []string
	for _, msg := range dropped {
		if msg.Role == store.RoleUser {
			questions = append(questions, strings.TrimSpace(msg.Content))
		}
	}
	if len(questions) == 0 {
		return previous
	}
	s := "Khách hàng đã hỏi: " + strings.Join(questions, "; ")
	if previous != "" {
		s = previous + " | " + s
	}
	return clipSummary(s)
}

// clipSummary keeps the most recent part of an overlong summary.
func clipSummary(s string) string {
	r := []rune(s)
	if len(r) <= maxSummaryRunes {
		return s
	}
	return "…" + string(r[len(r)-maxSummaryRunes:])
}

func roleLabel(role string) string {
	if role == store.RoleUser {
		return humanPrefix
	}
	return aiPrefix
}
