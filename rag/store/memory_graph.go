package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/textutil"
)

// MemoryGraph implements an in-memory FAQ graph
type MemoryGraph struct {
	mu   sync.RWMutex
	faqs map[string]rag.FAQ
	// entityIndex maps type -> normalized value -> FAQ ids
	entityIndex map[rag.EntityType]map[string][]string
}

// NewMemoryGraph creates an empty MemoryGraph.
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		faqs:        make(map[string]rag.FAQ),
		entityIndex: make(map[rag.EntityType]map[string][]string),
	}
}

// AddFAQ adds or replaces an FAQ. The folded topic is indexed as a Topic
// entity alongside the FAQ's own entities.
func (m *MemoryGraph) AddFAQ(ctx context.Context, faq rag.FAQ) error {
	if faq.ID == "" {
		return fmt.Errorf("faq id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.faqs[faq.ID]; exists {
		m.unindex(faq.ID)
	}
	for i := range faq.Cases {
		faq.Cases[i].FAQID = faq.ID
	}
	sort.SliceStable(faq.Cases, func(i, j int) bool { return faq.Cases[i].Order < faq.Cases[j].Order })
	m.faqs[faq.ID] = faq

	for t, values := range faq.Entities {
		for _, v := range values {
			m.index(t, v, faq.ID)
		}
	}
	if faq.Topic != "" {
		m.index(rag.EntityTopic, textutil.Fold(faq.Topic), faq.ID)
	}
	return nil
}

func (m *MemoryGraph) index(t rag.EntityType, value, id string) {
	byValue, ok := m.entityIndex[t]
	if !ok {
		byValue = make(map[string][]string)
		m.entityIndex[t] = byValue
	}
	for _, existing := range byValue[value] {
		if existing == id {
			return
		}
	}
	byValue[value] = append(byValue[value], id)
}

func (m *MemoryGraph) unindex(id string) {
	for t, byValue := range m.entityIndex {
		for v, ids := range byValue {
			for i, existing := range ids {
				if existing == id {
					byValue[v] = append(ids[:i], ids[i+1:]...)
					break
				}
			}
			if len(byValue[v]) == 0 {
				delete(byValue, v)
			}
		}
		if len(byValue) == 0 {
			delete(m.entityIndex, t)
		}
	}
}

// DeleteFAQ removes an FAQ from the graph.
func (m *MemoryGraph) DeleteFAQ(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.faqs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrFAQNotFound, id)
	}
	delete(m.faqs, id)
	m.unindex(id)
	return nil
}

// SearchByEntities scores every FAQ linked to a query term by the summed
// weight of its matched terms.
func (m *MemoryGraph) SearchByEntities(ctx context.Context, query GraphQuery) ([]GraphHit, error) {
	terms, maxScore := query.terms()
	if len(terms) == 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make(map[string]*GraphHit)
	for _, term := range terms {
		for _, id := range m.entityIndex[term.Type][term.Value] {
			hit, ok := hits[id]
			if !ok {
				hit = &GraphHit{FAQ: m.faqs[id], MaxScore: maxScore}
				hits[id] = hit
			}
			hit.Score += term.Weight
			hit.Matched = append(hit.Matched, rag.Entity{Type: term.Type, Value: term.Value, Normalized: term.Value})
		}
	}

	out := make([]GraphHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].FAQ.ID < out[j].FAQ.ID
	})
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

// GetFAQ retrieves an FAQ by id
func (m *MemoryGraph) GetFAQ(ctx context.Context, id string) (*rag.FAQ, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	faq, ok := m.faqs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFAQNotFound, id)
	}
	return &faq, nil
}

// GetCases returns the FAQ's cases ordered by Order.
func (m *MemoryGraph) GetCases(ctx context.Context, faqID string) ([]rag.Case, error) {
	faq, err := m.GetFAQ(ctx, faqID)
	if err != nil {
		return nil, err
	}
	return append([]rag.Case(nil), faq.Cases...), nil
}

// ListFAQs returns every FAQ ordered by id.
func (m *MemoryGraph) ListFAQs(ctx context.Context) ([]rag.FAQ, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]rag.FAQ, 0, len(m.faqs))
	for _, f := range m.faqs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close is a no-op.
func (m *MemoryGraph) Close(ctx context.Context) error {
	return nil
}
