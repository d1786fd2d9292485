package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/smallnest/faqgraph/log"
	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/rag/extract"
	"github.com/smallnest/faqgraph/rag/intent"
	"github.com/smallnest/faqgraph/rag/store"
)

// GraphEngine answers queries from the FAQ knowledge graph, combining
// entity-overlap graph scores with embedding similarity and heuristic
// boosts.
type GraphEngine struct {
	graph      store.GraphStore
	extractor  *extract.Extractor
	classifier *intent.Classifier
	embedder   rag.Embedder
	logger     log.Logger
	config     Config
	metrics    *rag.Metrics

	mu sync.Mutex
	// faqs is the corpus snapshot used for semantic-only candidates.
	faqs       []rag.FAQ
	embeddings map[string][]float32
	intents    map[string]rag.Intent
}

// GraphOption configures a GraphEngine.
type GraphOption func(*GraphEngine)

// WithEmbedder enables semantic scoring.
func WithEmbedder(e rag.Embedder) GraphOption {
	return func(g *GraphEngine) { g.embedder = e }
}

// WithExtractor replaces the default regex extractor.
func WithExtractor(e *extract.Extractor) GraphOption {
	return func(g *GraphEngine) { g.extractor = e }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) GraphOption {
	return func(g *GraphEngine) { g.logger = l }
}

// WithConfig sets the scoring configuration.
func WithConfig(c Config) GraphOption {
	return func(g *GraphEngine) { g.config = c }
}

// NewGraphEngine creates a GraphRAG engine over graph.
func NewGraphEngine(graph store.GraphStore, opts ...GraphOption) (*GraphEngine, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph store is required")
	}
	g := &GraphEngine{
		graph:      graph,
		classifier: intent.NewClassifier(),
		config:     DefaultConfig(),
		metrics:    &rag.Metrics{},
		embeddings: make(map[string][]float32),
		intents:    make(map[string]rag.Intent),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = log.OrDefault(g.logger)
	g.config = g.config.withDefaults()
	if g.extractor == nil {
		g.extractor = extract.New(extract.WithLogger(g.logger))
	}
	return g, nil
}

// Metrics returns the engine's query metrics.
func (g *GraphEngine) Metrics() *rag.Metrics {
	return g.metrics
}

// Refresh drops the corpus snapshot and cached embeddings so that the
// next query reloads them from the graph.
func (g *GraphEngine) Refresh() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.faqs = nil
	g.embeddings = make(map[string][]float32)
	g.intents = make(map[string]rag.Intent)
}

// Query implements rag.Engine.
func (g *GraphEngine) Query(ctx context.Context, query string) (*rag.QueryResult, error) {
	start := time.Now()
	timings := make(map[string]int64)
	mark := func(stage string, t time.Time) {
		timings[stage] = time.Since(t).Milliseconds()
	}

	t := time.Now()
	entities, err := g.extractor.Extract(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to extract entities: %w", err)
	}
	mark("extract_ms", t)

	intentRes := g.classifier.Classify(query, entities)

	t = time.Now()
	hits, err := g.graph.SearchByEntities(ctx, store.GraphQuery{
		Entities: entities,
		Weights:  g.config.EntityWeights,
		Limit:    g.config.CandidateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("graph search failed: %w", err)
	}
	mark("graph_ms", t)

	t = time.Now()
	candidates := make([]*candidate, 0, len(hits))
	for _, hit := range hits {
		c := &candidate{faq: hit.FAQ, matched: hit.Matched}
		if hit.MaxScore > 0 {
			c.graphScore = hit.Score / hit.MaxScore
		}
		candidates = append(candidates, c)
	}
	semantic := g.addSemanticScores(ctx, query, &candidates)
	mark("semantic_ms", t)

	q := newQueryFeatures(query, entities, intentRes.Intent)
	for _, c := range candidates {
		if semantic {
			c.score = g.config.GraphWeight*c.graphScore + g.config.SemanticWeight*c.semanticScore
		} else {
			c.score = c.graphScore
		}
		g.applyBoosts(q, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.graphScore != b.graphScore {
			return a.graphScore > b.graphScore
		}
		return a.faq.ID < b.faq.ID
	})

	result := &rag.QueryResult{
		Query:    query,
		Intent:   intentRes.Intent,
		Entities: entities,
		Metadata: map[string]any{
			"engine":            "graphrag",
			"intent_confidence": intentRes.Confidence,
			"candidates":        len(candidates),
			"semantic":          semantic,
		},
	}

	if len(candidates) == 0 || candidates[0].score < g.config.MinConfidence {
		result.Answer = FallbackAnswer
		if len(candidates) > 0 {
			result.Confidence = clamp01(candidates[0].score)
			result.Metadata["best_faq_id"] = candidates[0].faq.ID
		}
		result.ResponseTime = time.Since(start)
		result.Metadata["timings"] = timings
		g.metrics.Record(result.ResponseTime, false)
		g.logger.Debug("graphrag: no answer for %q (%d candidates)", query, len(candidates))
		return result, ErrNoAnswer
	}

	top := candidates[0]
	cases := top.faq.Cases
	if len(cases) == 0 {
		if cases, err = g.graph.GetCases(ctx, top.faq.ID); err != nil {
			g.logger.Warn("graphrag: failed to load cases for %s: %v", top.faq.ID, err)
			cases = nil
		}
	}
	faq := top.faq
	faq.Cases = cases
	answer, selected := formatAnswer(faq, q)

	n := min(g.config.TopK, len(candidates))
	sources := make([]rag.DocumentSearchResult, n)
	for i := 0; i < n; i++ {
		doc := candidates[i].faq.Document()
		sources[i] = rag.DocumentSearchResult{Document: doc, Score: candidates[i].score}
		result.Sources = append(result.Sources, doc)
	}

	result.Answer = answer
	result.FAQ = &faq
	result.Context = rag.BuildContext(sources, false)
	result.Confidence = clamp01(top.score)
	result.ResponseTime = time.Since(start)
	result.Metadata["faq_id"] = faq.ID
	result.Metadata["graph_score"] = top.graphScore
	result.Metadata["semantic_score"] = top.semanticScore
	result.Metadata["score"] = top.score
	result.Metadata["boosts"] = top.boosts
	result.Metadata["timings"] = timings
	if selected != nil {
		result.Metadata["case_id"] = selected.ID
	}
	g.metrics.Record(result.ResponseTime, true)
	g.logger.Debug("graphrag: %q -> %s (score %.3f, boosts %v)", query, faq.ID, top.score, top.boosts)
	return result, nil
}

// addSemanticScores sets the cosine similarity between the query and each
// candidate question, then appends the best semantic-only FAQs. It returns
// false when semantic scoring is unavailable.
func (g *GraphEngine) addSemanticScores(ctx context.Context, query string, candidates *[]*candidate) bool {
	if g.embedder == nil {
		return false
	}
	faqs, vectors, err := g.corpus(ctx)
	if err != nil {
		g.logger.Warn("graphrag: falling back to graph-only scoring: %v", err)
		return false
	}
	qv, err := g.embedder.EmbedDocument(ctx, query)
	if err != nil {
		g.logger.Warn("graphrag: failed to embed query, falling back to graph-only scoring: %v", err)
		return false
	}

	seen := make(map[string]bool, len(*candidates))
	for _, c := range *candidates {
		seen[c.faq.ID] = true
		if v, ok := vectors[c.faq.ID]; ok {
			c.semanticScore = rag.CosineSimilarity(qv, v)
		}
	}

	var extra []*candidate
	for _, f := range faqs {
		if seen[f.ID] {
			continue
		}
		v, ok := vectors[f.ID]
		if !ok {
			continue
		}
		if s := rag.CosineSimilarity(qv, v); s >= g.config.SemanticFloor {
			extra = append(extra, &candidate{faq: f, semanticScore: s})
		}
	}
	sort.SliceStable(extra, func(i, j int) bool { return extra[i].semanticScore > extra[j].semanticScore })
	if len(extra) > g.config.SemanticCandidates {
		extra = extra[:g.config.SemanticCandidates]
	}
	*candidates = append(*candidates, extra...)
	return true
}

// corpus returns the FAQ snapshot and question embeddings, loading and
// embedding whatever is missing.
func (g *GraphEngine) corpus(ctx context.Context) ([]rag.FAQ, map[string][]float32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.faqs == nil {
		faqs, err := g.graph.ListFAQs(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list faqs: %w", err)
		}
		g.faqs = faqs
	}

	var missing []rag.FAQ
	for _, f := range g.faqs {
		if _, ok := g.embeddings[f.ID]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for i, f := range missing {
			texts[i] = f.Question
		}
		vecs, err := g.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to embed faq questions: %w", err)
		}
		if len(vecs) != len(missing) {
			return nil, nil, fmt.Errorf("embedder returned %d vectors for %d questions", len(vecs), len(missing))
		}
		for i, f := range missing {
			g.embeddings[f.ID] = vecs[i]
		}
	}
	return g.faqs, g.embeddings, nil
}

// questionIntent classifies an FAQ question once and caches it.
func (g *GraphEngine) questionIntent(faq rag.FAQ) rag.Intent {
	g.mu.Lock()
	defer g.mu.Unlock()
	if in, ok := g.intents[faq.ID]; ok {
		return in
	}
	in := g.classifier.Classify(faq.Question, g.extractor.ExtractRegex(faq.Question)).Intent
	g.intents[faq.ID] = in
	return in
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
