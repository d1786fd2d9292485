package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/smallnest/faqgraph/rag"
)

// HTMLSelectors locate FAQs in a help-centre page.
type HTMLSelectors struct {
	Item     string
	Question string
	Answer   string
	// TopicAttr is read from the item or its closest ancestor.
	TopicAttr string
	// Case marks a sub-answer inside the answer; its title comes from
	// CaseTitle and the rest of its text is the case answer.
	Case      string
	CaseTitle string
}

// DefaultHTMLSelectors returns the selectors of the help-centre markup.
func DefaultHTMLSelectors() HTMLSelectors {
	return HTMLSelectors{
		Item:      ".faq-item",
		Question:  ".faq-question",
		Answer:    ".faq-answer",
		TopicAttr: "data-topic",
		Case:      ".faq-case",
		CaseTitle: ".faq-case-title",
	}
}

// HTMLLoader parses help-centre HTML into FAQs.
type HTMLLoader struct {
	open      func() (io.ReadCloser, error)
	source    string
	selectors HTMLSelectors
}

// HTMLOption configures the HTMLLoader
type HTMLOption func(*HTMLLoader)

// WithSelectors overrides the default selectors.
func WithSelectors(s HTMLSelectors) HTMLOption {
	return func(l *HTMLLoader) { l.selectors = s }
}

// NewHTMLLoader creates a loader reading the HTML file at path.
func NewHTMLLoader(path string, opts ...HTMLOption) *HTMLLoader {
	l := &HTMLLoader{
		open:      func() (io.ReadCloser, error) { return os.Open(path) },
		source:    path,
		selectors: DefaultHTMLSelectors(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewHTMLReaderLoader creates a loader over r; source names it in errors.
func NewHTMLReaderLoader(r io.Reader, source string, opts ...HTMLOption) *HTMLLoader {
	l := NewHTMLLoader(source, opts...)
	l.open = func() (io.ReadCloser, error) { return io.NopCloser(r), nil }
	return l
}

// Load implements FAQLoader. Items without a question or answer are
// skipped; items without an id attribute get "<source-id>-N".
func (l *HTMLLoader) Load(ctx context.Context) ([]rag.FAQ, error) {
	rc, err := l.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", l.source, err)
	}
	defer rc.Close()

	doc, err := goquery.NewDocumentFromReader(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML %s: %w", l.source, err)
	}

	s := l.selectors
	var faqs []rag.FAQ
	doc.Find(s.Item).Each(func(i int, item *goquery.Selection) {
		question := cleanText(item.Find(s.Question).First().Text())
		answerSel := item.Find(s.Answer).First()
		if question == "" || answerSel.Length() == 0 {
			return
		}

		faq := rag.FAQ{
			ID:       item.AttrOr("id", fmt.Sprintf("html-%d", i+1)),
			Question: question,
			Category: item.AttrOr("data-category", ""),
		}
		if s.TopicAttr != "" {
			if topic, ok := item.Attr(s.TopicAttr); ok {
				faq.Topic = topic
			} else if anc := item.Closest("[" + s.TopicAttr + "]"); anc.Length() > 0 {
				faq.Topic = anc.AttrOr(s.TopicAttr, "")
			}
		}

		if s.Case != "" {
			answerSel.Find(s.Case).Each(func(j int, c *goquery.Selection) {
				title := cleanText(c.Find(s.CaseTitle).First().Text())
				c.Find(s.CaseTitle).Remove()
				faq.Cases = append(faq.Cases, rag.Case{
					ID:     fmt.Sprintf("%s-case-%d", faq.ID, j+1),
					Name:   title,
					Answer: renderAnswer(c),
					Order:  j + 1,
				})
			}).Remove()
		}
		faq.Answer = renderAnswer(answerSel)
		if faq.Answer == "" && len(faq.Cases) == 0 {
			return
		}
		faqs = append(faqs, faq)
	})
	return faqs, nil
}

// renderAnswer keeps paragraph breaks and turns ordered lists into
// "Bước N:" lines.
func renderAnswer(sel *goquery.Selection) string {
	var lines []string
	sel.Contents().Each(func(_ int, n *goquery.Selection) {
		switch goquery.NodeName(n) {
		case "ol":
			n.Find("li").Each(func(k int, li *goquery.Selection) {
				lines = append(lines, fmt.Sprintf("Bước %d: %s", k+1, cleanText(li.Text())))
			})
		case "ul":
			n.Find("li").Each(func(_ int, li *goquery.Selection) {
				lines = append(lines, "- "+cleanText(li.Text()))
			})
		default:
			if t := cleanText(n.Text()); t != "" {
				lines = append(lines, t)
			}
		}
	})
	return strings.Join(lines, "\n")
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
