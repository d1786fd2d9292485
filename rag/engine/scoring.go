package engine

import (
	"strings"

	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/textutil"
)

type candidate struct {
	faq           rag.FAQ
	matched       rag.Entities
	graphScore    float64
	semanticScore float64
	score         float64
	boosts        []string
}

// queryFeatures is the folded view of a query used by the boosts.
type queryFeatures struct {
	text     string
	folded   string
	words    []string
	intent   rag.Intent
	entities rag.Entities
	topics   []string
	actions  []string
	banks    []string
	errors   []string
}

func newQueryFeatures(query string, entities rag.Entities, in rag.Intent) queryFeatures {
	words := textutil.Words(query)
	q := queryFeatures{
		text:     query,
		folded:   strings.Join(words, " "),
		words:    words,
		intent:   in,
		entities: entities,
		topics:   entities.Values(rag.EntityTopic),
		actions:  entities.Values(rag.EntityAction),
		banks:    entities.Values(rag.EntityBank),
	}
	q.errors = append(q.errors, entities.Values(rag.EntityError)...)
	q.errors = append(q.errors, entities.Values(rag.EntityErrorCode)...)
	return q
}

// minContainedWords is the shortest query treated as a sub-question of an
// FAQ question.
const minContainedWords = 3

func (g *GraphEngine) applyBoosts(q queryFeatures, c *candidate) {
	cfg := g.config

	question := strings.Join(textutil.Words(c.faq.Question), " ")
	switch {
	case question != "" && q.folded != "" &&
		(strings.Contains(" "+q.folded+" ", " "+question+" ") ||
			(len(q.words) >= minContainedWords && strings.Contains(" "+question+" ", " "+q.folded+" "))):
		c.score += cfg.ExactMatchBoost
		c.boosts = append(c.boosts, "exact_match")
	case textutil.Jaccard(q.text, c.faq.Question) >= cfg.NearExactJaccard:
		c.score += cfg.NearExactBoost
		c.boosts = append(c.boosts, "near_exact_match")
	}

	if faqTopics := topicsOf(c.faq); len(q.topics) > 0 && len(faqTopics) > 0 {
		if intersects(q.topics, faqTopics) {
			c.score *= cfg.TopicMatchFactor
			c.boosts = append(c.boosts, "topic_match")
		} else {
			c.score *= cfg.TopicMismatchFactor
			c.boosts = append(c.boosts, "topic_mismatch")
		}
	}

	if q.intent != rag.IntentGeneral && g.questionIntent(c.faq) == q.intent {
		c.score += cfg.IntentMatchBoost
		c.boosts = append(c.boosts, "intent_match")
	}

	if len(q.errors) > 0 {
		faqErrors := append(append([]string(nil), c.faq.Entities[rag.EntityError]...), c.faq.Entities[rag.EntityErrorCode]...)
		switch {
		case intersects(q.errors, faqErrors) || mentionsAny(c.faq, q.errors):
			c.score += cfg.ErrorMatchBoost
			c.boosts = append(c.boosts, "error_match")
		case len(faqErrors) == 0:
			c.score *= cfg.ErrorMissingFactor
			c.boosts = append(c.boosts, "error_missing")
		}
	}

	if faqActions := c.faq.Entities[rag.EntityAction]; len(q.actions) > 0 && len(faqActions) > 0 && !intersects(q.actions, faqActions) {
		c.score *= cfg.ActionMismatchFactor
		c.boosts = append(c.boosts, "action_mismatch")
	}

	if len(q.banks) > 0 && intersects(q.banks, c.faq.Entities[rag.EntityBank]) {
		c.score += cfg.BankMatchBoost
		c.boosts = append(c.boosts, "bank_match")
	}
}

// topicsOf returns the folded FAQ topic plus its Topic entities.
func topicsOf(faq rag.FAQ) []string {
	topics := append([]string(nil), faq.Entities[rag.EntityTopic]...)
	if faq.Topic != "" {
		topics = append(topics, textutil.Fold(faq.Topic))
	}
	return topics
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// mentionsAny reports whether the FAQ question or answer contains any of
// the folded values.
func mentionsAny(faq rag.FAQ, values []string) bool {
	for _, v := range values {
		if textutil.ContainsPhrase(faq.Question, v) || textutil.ContainsPhrase(faq.Answer, v) {
			return true
		}
	}
	return false
}
