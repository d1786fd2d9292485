// Package intent sorts user messages into coarse support intents.
package intent

import (
	"regexp"
	"strings"

	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/textutil"
)

type weighted struct {
	re     *regexp.Regexp
	weight float64
}

func w(expr string, weight float64) weighted {
	return weighted{re: regexp.MustCompile(expr), weight: weight}
}

type bucket struct {
	intent   rag.Intent
	patterns []weighted
	keywords []string
}

// buckets are listed in tie-break order.
var buckets = []bucket{
	{
		intent: rag.IntentTroubleshoot,
		patterns: []weighted{
			w(`\bkhong (?:the )?\w+(?: \w+)? (?:duoc|dc)\b`, 2),
			w(`\b(?:bi|gap|bao) loi\b`, 2),
			w(`\bloi\b`, 1.5),
			w(`\b(?:that bai|khong thanh cong)\b`, 2),
			w(`\bchua (?:nhan|ve|duoc|thay)\b`, 1.5),
			w(`\b(?:bi tru tien|mat tien|tru tien 2 lan)\b`, 2),
			w(`\b(?:tai sao|vi sao|sao lai)\b`, 1),
			w(`\b(?:bi khoa|treo|dang xu ly|bi chan)\b`, 1),
		},
		keywords: []string{"su co", "van de", "khieu nai", "sai", "khong hoat dong"},
	},
	{
		intent: rag.IntentHowTo,
		patterns: []weighted{
			w(`\blam (?:sao|the nao|cach nao)\b`, 2),
			w(`\bhuong dan\b`, 2),
			w(`\bcach (?:de )?\w+`, 1.5),
			w(`\bcac buoc\b`, 1.5),
			w(`\bde \w+(?: \w+)? (?:thi )?(?:phai )?lam gi\b`, 1.5),
			w(`\b(?:thu tuc|quy trinh)\b`, 1),
			w(`\b(?:muon|can) (?:nap|rut|chuyen|lien ket|dang ky|doi|huy|thanh toan|mo)\b`, 1),
		},
		keywords: []string{"thao tac", "o dau", "bang cach", "nhu the nao"},
	},
	{
		intent: rag.IntentInquiry,
		patterns: []weighted{
			w(`\bbao nhieu\b`, 2),
			w(`\b(?:phi|han muc|gioi han|toi da|toi thieu)\b`, 1.5),
			w(`\b(?:bao lau|khi nao|may ngay|bao gio)\b`, 1.5),
			w(`\b(?:la gi|nghia la)\b`, 1.5),
			w(`\b(?:giay to|ho so) (?:gi|nao)\b`, 1.5),
			w(`\bngan hang nao\b`, 1.5),
			w(`\bco\b.*\b(?:khong|ko)\s*\??$`, 1),
		},
		keywords: []string{"dieu kien", "quy dinh", "chinh sach", "thong tin"},
	},
	{
		intent: rag.IntentGeneral,
		patterns: []weighted{
			w(`\b(?:xin chao|chao|hello|cam on|tam biet)\b`, 1),
		},
	},
}

var greetingOnly = regexp.MustCompile(`^(?:(?:ok|oke|okay|vang|da) )?(?:(?:xin )?chao|hello|hi|alo|cam on|thank(?:s| you)|tks|ok|oke|vang|tam biet|bye)(?: (?:ban|em|anh|chi|ad|admin|shop|nhieu|nhe|a|nha|bot))*$`)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// IsGreeting reports whether text is only a greeting or thanks.
func IsGreeting(text string) bool {
	s := strings.TrimSpace(nonWord.ReplaceAllString(textutil.Fold(text), " "))
	return s != "" && greetingOnly.MatchString(s)
}

// Classifier scores messages against the intent buckets.
type Classifier struct{}

// NewClassifier creates a Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns the best intent for text. Entities add signal: errors
// point to troubleshooting, fees, limits, time frames and documents to an
// inquiry, and an action to a how-to.
func (c *Classifier) Classify(text string, entities rag.Entities) rag.IntentResult {
	if IsGreeting(text) {
		return rag.IntentResult{Intent: rag.IntentGeneral, Confidence: 0.9, Greeting: true}
	}

	folded := textutil.Fold(text)
	scores := make(map[rag.Intent]float64, len(buckets))
	for _, b := range buckets {
		var s float64
		for _, p := range b.patterns {
			if p.re.MatchString(folded) {
				s += p.weight
			}
		}
		for _, kw := range b.keywords {
			if textutil.ContainsPhrase(folded, kw) {
				s += 0.5
			}
		}
		scores[b.intent] = s
	}

	if entities.Has(rag.EntityError) || entities.Has(rag.EntityErrorCode) {
		scores[rag.IntentTroubleshoot] += 2
	}
	for _, t := range []rag.EntityType{rag.EntityFee, rag.EntityLimit, rag.EntityTimeFrame, rag.EntityDocument} {
		if entities.Has(t) {
			scores[rag.IntentInquiry]++
			break
		}
	}
	if entities.Has(rag.EntityAction) {
		scores[rag.IntentHowTo] += 0.5
	}

	var (
		best      = rag.IntentGeneral
		bestScore float64
		total     float64
	)
	for _, b := range buckets {
		s := scores[b.intent]
		total += s
		if s > bestScore {
			best, bestScore = b.intent, s
		}
	}
	if bestScore == 0 {
		return rag.IntentResult{Intent: rag.IntentGeneral, Confidence: 0.3, Scores: scores}
	}

	conf := min(max(bestScore/total, 0.3), 0.95)
	return rag.IntentResult{Intent: best, Confidence: conf, Scores: scores}
}

// Classify uses a default Classifier.
func Classify(text string, entities rag.Entities) rag.IntentResult {
	return NewClassifier().Classify(text, entities)
}
