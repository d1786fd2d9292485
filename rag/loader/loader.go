// Package loader reads FAQ corpora from JSON, YAML and help-centre HTML.
package loader

import (
	"context"
	"fmt"

	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/rag/extract"
)

// FAQLoader loads an FAQ corpus.
type FAQLoader interface {
	Load(ctx context.Context) ([]rag.FAQ, error)
}

// StaticLoader returns a fixed FAQ list.
type StaticLoader struct {
	FAQs []rag.FAQ
}

// NewStaticLoader creates a new StaticLoader
func NewStaticLoader(faqs []rag.FAQ) *StaticLoader {
	return &StaticLoader{FAQs: faqs}
}

// Load returns the static list of FAQs
func (l *StaticLoader) Load(ctx context.Context) ([]rag.FAQ, error) {
	return l.FAQs, nil
}

// EnrichEntities fills, for every FAQ, the entity types it does not list
// with the regex entities of its question. The folded topic is added as a
// Topic entity when missing.
func EnrichEntities(faqs []rag.FAQ, extractor *extract.Extractor) []rag.FAQ {
	out := make([]rag.FAQ, len(faqs))
	for i, faq := range faqs {
		entities := make(map[rag.EntityType][]string, len(faq.Entities))
		for t, values := range faq.Entities {
			entities[t] = append([]string(nil), values...)
		}
		found := extractor.ExtractRegex(faq.Question).Map()
		for t, values := range found {
			if len(entities[t]) == 0 {
				entities[t] = values
			}
		}
		if faq.Topic != "" && len(entities[rag.EntityTopic]) == 0 {
			if topic, ok := extractor.ExtractRegex(faq.Topic).First(rag.EntityTopic); ok {
				entities[rag.EntityTopic] = []string{topic}
			}
		}
		if len(entities) > 0 {
			faq.Entities = entities
		}
		out[i] = faq
	}
	return out
}

// validate checks ids are present and unique.
func validate(faqs []rag.FAQ) error {
	seen := make(map[string]bool, len(faqs))
	for i, f := range faqs {
		if f.ID == "" {
			return fmt.Errorf("faq %d has no id", i)
		}
		if seen[f.ID] {
			return fmt.Errorf("duplicate faq id %q", f.ID)
		}
		seen[f.ID] = true
		if f.Question == "" {
			return fmt.Errorf("faq %q has no question", f.ID)
		}
	}
	return nil
}
