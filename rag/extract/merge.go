package extract

import (
	"strings"

	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/textutil"
)

// Merge combines regex and LLM results. An entity found by both keeps the
// regex surface form, gets source "both" and a confidence of max+0.1
// capped at 1.
func Merge(regex, llm rag.Entities) rag.Entities {
	out := make(rag.Entities, 0, len(regex)+len(llm))
	index := make(map[string]int)
	add := func(e rag.Entity) {
		key := string(e.Type) + "\x00" + e.Normalized
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, e)
			return
		}
		prev := &out[i]
		if prev.Source != e.Source {
			prev.Source = rag.SourceBoth
			prev.Confidence = min(1, max(prev.Confidence, e.Confidence)+0.1)
		} else {
			prev.Confidence = max(prev.Confidence, e.Confidence)
		}
	}
	for _, e := range regex {
		add(e)
	}
	for _, e := range llm {
		add(e)
	}
	return out
}

// Validate penalises LLM-only entities whose value is not in text, drops
// entities below the minimum confidence, canonicalises banks and sorts.
// Topic and Action may be inferred and are not penalised.
func (e *Extractor) Validate(text string, entities rag.Entities) rag.Entities {
	folded := textutil.Fold(text)
	out := make(rag.Entities, 0, len(entities))
	seen := make(map[string]bool)
	for _, ent := range entities {
		if ent.Source == rag.SourceLLM && ent.Type != rag.EntityTopic && ent.Type != rag.EntityAction {
			if v := textutil.Fold(ent.Value); v == "" || !strings.Contains(folded, v) {
				ent.Confidence *= 0.5
			}
		}
		if ent.Confidence < e.config.MinConfidence {
			continue
		}
		if ent.Type == rag.EntityBank {
			ent.Normalized = CanonicalBank(ent.Normalized)
		}
		key := string(ent.Type) + "\x00" + ent.Normalized
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ent)
	}
	out.Sort()
	return out
}
