package engine

import (
	"fmt"
	"strings"

	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/textutil"
)

// formatAnswer renders the FAQ answer. With one case clearly matching the
// query only that case is returned; otherwise every case is listed.
func formatAnswer(faq rag.FAQ, q queryFeatures) (string, *rag.Case) {
	if len(faq.Cases) == 0 {
		return strings.TrimSpace(faq.Answer), nil
	}
	if best := selectCase(faq.Cases, q); best >= 0 {
		c := faq.Cases[best]
		return strings.TrimSpace(c.Answer), &c
	}

	var sb strings.Builder
	if intro := strings.TrimSpace(faq.Answer); intro != "" {
		sb.WriteString(intro)
		sb.WriteString("\n\n")
	}
	for i, c := range faq.Cases {
		title := c.Name
		if title == "" {
			title = c.Condition
		}
		if title != "" {
			fmt.Fprintf(&sb, "**Trường hợp %d: %s**\n", i+1, title)
		} else {
			fmt.Fprintf(&sb, "**Trường hợp %d**\n", i+1)
		}
		sb.WriteString(strings.TrimSpace(c.Answer))
		if i < len(faq.Cases)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String(), nil
}

// selectCase returns the index of the unique best-scoring case, or -1.
func selectCase(cases []rag.Case, q queryFeatures) int {
	best, bestScore, tie := -1, 0.0, false
	for i, c := range cases {
		s := caseScore(c, q)
		switch {
		case s > bestScore:
			best, bestScore, tie = i, s, false
		case s == bestScore && s > 0:
			tie = true
		}
	}
	if tie {
		return -1
	}
	return best
}

// caseScore weighs keyword hits 1, entity values found in the case
// name/condition/method 1 each, and shared content words 0.5 each.
func caseScore(c rag.Case, q queryFeatures) float64 {
	var score float64
	for _, kw := range c.Keywords {
		if textutil.ContainsPhrase(q.text, kw) {
			score++
		}
	}

	fields := strings.Join([]string{c.Name, c.Condition, c.Method}, " ")
	if strings.TrimSpace(fields) == "" {
		return score
	}
	for _, e := range q.entities {
		if e.Normalized != "" && textutil.ContainsPhrase(fields, e.Normalized) {
			score++
		}
	}

	fieldWords := make(map[string]bool)
	for _, w := range textutil.Words(fields) {
		if !textutil.IsStopWord(w) {
			fieldWords[w] = true
		}
	}
	seen := make(map[string]bool)
	for _, w := range q.words {
		if fieldWords[w] && !seen[w] {
			seen[w] = true
			score += 0.5
		}
	}
	return score
}
