// Command supportbot-repl chats with the FAQ bot in the terminal.
//
// Commands: /reset starts over, /good and /bad rate the last answer,
// /history prints the session transcript, /quit exits.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/smallnest/faqgraph/app"
	"github.com/smallnest/faqgraph/chatbot"
	"github.com/smallnest/faqgraph/config"
	"github.com/smallnest/faqgraph/log"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	userStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2196F3"))
	botStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2a3850")).
			Padding(0, 1)
	metaStyle = lipgloss.NewStyle().Faint(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func run() error {
	path := os.Getenv("SUPPORTBOT_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	// keep the terminal for the conversation
	level := cfg.LogLevel()
	if level < log.LogLevelWarn {
		level = log.LogLevelWarn
	}
	logger := log.NewServiceLogger(os.Stderr, cfg.Log.Prefix, level)
	log.SetDefaultLogger(logger)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	fmt.Println(titleStyle.Render(fmt.Sprintf("Trợ lý ví điện tử (%s, %d FAQ)", cfg.Mode, len(a.FAQs))))
	fmt.Println(metaStyle.Render("/reset  /good  /bad  /history  /quit"))

	var sessionID, lastMessageID string
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(userStyle.Render("Bạn: "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if sessionID != "" {
				if err := a.Bot.Reset(ctx, sessionID); err != nil {
					fmt.Println(errStyle.Render(err.Error()))
				}
			}
			sessionID, lastMessageID = "", ""
			fmt.Println(metaStyle.Render("Đã bắt đầu cuộc trò chuyện mới."))
			continue
		case "/good", "/bad":
			feedback := chatbot.FeedbackHelpful
			if line == "/bad" {
				feedback = chatbot.FeedbackNotHelpful
			}
			if lastMessageID == "" {
				fmt.Println(metaStyle.Render("Chưa có câu trả lời để đánh giá."))
				continue
			}
			if err := a.Bot.Feedback(ctx, sessionID, lastMessageID, feedback); err != nil {
				fmt.Println(errStyle.Render(err.Error()))
				continue
			}
			fmt.Println(metaStyle.Render("Cảm ơn bạn đã đánh giá!"))
			continue
		case "/history":
			printHistory(ctx, a.Bot, sessionID)
			continue
		}

		resp, err := a.Bot.Chat(ctx, sessionID, line)
		if err != nil {
			fmt.Println(errStyle.Render(err.Error()))
			continue
		}
		sessionID, lastMessageID = resp.SessionID, resp.MessageID
		fmt.Println(botStyle.Render(resp.Answer))
		fmt.Println(metaStyle.Render(describe(resp)))
	}
}

func describe(resp *chatbot.Response) string {
	parts := []string{resp.Source}
	if resp.FAQID != "" {
		parts = append(parts, fmt.Sprintf("%s %.2f", resp.FAQID, resp.Confidence))
	}
	if resp.Intent != "" {
		parts = append(parts, string(resp.Intent))
	}
	if resp.TotalSteps > 0 && resp.Step > 0 {
		parts = append(parts, fmt.Sprintf("bước %d/%d", resp.Step, resp.TotalSteps))
	}
	parts = append(parts, resp.Latency.Round(time.Millisecond).String())
	return strings.Join(parts, " · ")
}

func printHistory(ctx context.Context, bot *chatbot.Chatbot, sessionID string) {
	if sessionID == "" {
		fmt.Println(metaStyle.Render("Chưa có lịch sử."))
		return
	}
	turns, err := bot.History(ctx, sessionID)
	if err != nil {
		fmt.Println(errStyle.Render(err.Error()))
		return
	}
	for i, t := range turns {
		fmt.Printf("%s %s\n", userStyle.Render(fmt.Sprintf("%d.", i+1)), t.Question)
		line := fmt.Sprintf("   %s", t.Mode)
		if t.Feedback != "" {
			line += " · " + t.Feedback
		}
		fmt.Println(metaStyle.Render(line))
	}
}
