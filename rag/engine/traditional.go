package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smallnest/faqgraph/log"
	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/rag/extract"
	"github.com/smallnest/faqgraph/rag/intent"
	"github.com/smallnest/faqgraph/rag/retriever"
	"github.com/smallnest/faqgraph/rag/store"
)

// TraditionalConfig configures the hybrid-search engine.
type TraditionalConfig struct {
	TopK int `yaml:"top_k"`
	// DenseWeight and SparseWeight weight the vector and BM25 lists in the
	// fusion.
	DenseWeight  float64 `yaml:"dense_weight"`
	SparseWeight float64 `yaml:"sparse_weight"`
	// VectorMinScore is the cosine similarity below which vector hits are
	// dropped before fusion.
	VectorMinScore float64 `yaml:"vector_min_score"`
	// Fusion is "rrf" or "weighted".
	Fusion    retriever.FusionMode `yaml:"fusion"`
	Normalize bool                 `yaml:"normalize"`
	// MinConfidence applies to the fused score relative to the best
	// possible fused score.
	MinConfidence float64 `yaml:"min_confidence"`
	Rerank        bool    `yaml:"rerank"`
}

// DefaultTraditionalConfig returns the hybrid-search defaults.
func DefaultTraditionalConfig() TraditionalConfig {
	return TraditionalConfig{
		TopK:           3,
		DenseWeight:    1,
		SparseWeight:   1,
		VectorMinScore: 0.5,
		Fusion:         retriever.FusionRRF,
		MinConfidence:  0.2,
		Rerank:         true,
	}
}

// TraditionalEngine answers queries with BM25 + vector search fused by
// Reciprocal Rank Fusion or a weighted sum.
type TraditionalEngine struct {
	config    TraditionalConfig
	embedder  rag.Embedder
	bm25      *retriever.BM25Index
	vectors   *store.InMemoryVectorStore
	hybrid    *retriever.HybridRetriever
	reranker  rag.Reranker
	extractor *extract.Extractor
	logger    log.Logger
	metrics   *rag.Metrics

	mu   sync.RWMutex
	faqs map[string]rag.FAQ
}

// NewTraditionalEngine creates the engine. With a nil embedder only BM25
// is used.
func NewTraditionalEngine(embedder rag.Embedder, config TraditionalConfig, logger log.Logger) *TraditionalEngine {
	if config.TopK <= 0 {
		config.TopK = DefaultTraditionalConfig().TopK
	}
	if config.DenseWeight == 0 && config.SparseWeight == 0 {
		config.DenseWeight, config.SparseWeight = 1, 1
	}
	if config.Fusion == "" {
		config.Fusion = retriever.FusionRRF
	}
	logger = log.OrDefault(logger)

	e := &TraditionalEngine{
		config:    config,
		embedder:  embedder,
		bm25:      retriever.NewBM25Index(),
		extractor: extract.New(extract.WithLogger(logger)),
		logger:    logger,
		metrics:   &rag.Metrics{},
		faqs:      make(map[string]rag.FAQ),
	}

	retrievalCfg := rag.RetrievalConfig{K: config.TopK}
	retrievers := []rag.Retriever{retriever.NewBM25Retriever(e.bm25, retrievalCfg)}
	weights := []float64{config.SparseWeight}
	if embedder != nil {
		e.vectors = store.NewInMemoryVectorStore(embedder)
		dense := retriever.NewVectorRetriever(e.vectors, embedder, retrievalCfg)
		dense.MinScore = config.VectorMinScore
		retrievers = append(retrievers, dense)
		weights = append(weights, config.DenseWeight)
	}
	e.hybrid = retriever.NewHybridRetriever(retrievers, weights, retrievalCfg,
		retriever.WithFusionMode(config.Fusion),
		retriever.WithNormalize(config.Normalize),
		retriever.WithHybridLogger(logger))
	if config.Rerank {
		e.reranker = retriever.NewKeywordReranker()
	}
	return e
}

// Metrics returns the engine's query metrics.
func (e *TraditionalEngine) Metrics() *rag.Metrics {
	return e.metrics
}

// AddFAQs indexes FAQs in the BM25 index and, when an embedder is set, in
// the vector store.
func (e *TraditionalEngine) AddFAQs(ctx context.Context, faqs []rag.FAQ) error {
	docs := make([]rag.Document, len(faqs))
	for i, f := range faqs {
		if f.ID == "" {
			return fmt.Errorf("faq %d has no id", i)
		}
		docs[i] = f.Document()
	}
	if e.vectors != nil {
		if err := e.vectors.Add(ctx, docs); err != nil {
			return fmt.Errorf("failed to index faq embeddings: %w", err)
		}
	}
	e.bm25.Add(docs...)

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, f := range faqs {
		e.faqs[f.ID] = f
	}
	return nil
}

// confidence rates a fused result against a document ranked first, or
// scoring 1, in every list. Normalisation is undone first.
func (e *TraditionalEngine) confidence(r rag.DocumentSearchResult) float64 {
	var best float64
	for _, w := range e.hybrid.GetWeights() {
		best += w
	}
	if e.config.Fusion == retriever.FusionRRF {
		best /= float64(retriever.DefaultRRFK + 1)
	}
	if best <= 0 {
		return 0
	}
	return clamp01(retriever.RawScore(r) / best)
}

// Query implements rag.Engine.
func (e *TraditionalEngine) Query(ctx context.Context, query string) (*rag.QueryResult, error) {
	start := time.Now()

	entities := e.extractor.ExtractRegex(query)
	intentRes := intent.Classify(query, entities)

	results, err := e.hybrid.RetrieveWithConfig(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("hybrid retrieval failed: %w", err)
	}
	confidence := make(map[string]float64, len(results))
	for _, r := range results {
		confidence[r.Document.ID] = e.confidence(r)
	}
	if e.reranker != nil && len(results) > 1 {
		if results, err = e.reranker.Rerank(ctx, query, results); err != nil {
			return nil, fmt.Errorf("rerank failed: %w", err)
		}
	}

	result := &rag.QueryResult{
		Query:    query,
		Intent:   intentRes.Intent,
		Entities: entities,
		Metadata: map[string]any{"engine": "traditional", "candidates": len(results)},
	}

	var faq rag.FAQ
	found := false
	if len(results) > 0 {
		e.mu.RLock()
		faq, found = e.faqs[results[0].Document.ID]
		e.mu.RUnlock()
	}
	if !found || confidence[faq.ID] < e.config.MinConfidence {
		result.Answer = FallbackAnswer
		if found {
			result.Confidence = confidence[faq.ID]
		}
		result.ResponseTime = time.Since(start)
		e.metrics.Record(result.ResponseTime, false)
		return result, ErrNoAnswer
	}

	for _, r := range results {
		result.Sources = append(result.Sources, r.Document)
	}
	result.Answer, _ = formatAnswer(faq, newQueryFeatures(query, entities, intentRes.Intent))
	result.FAQ = &faq
	result.Context = rag.BuildContext(results, false)
	result.Confidence = confidence[faq.ID]
	result.ResponseTime = time.Since(start)
	result.Metadata["faq_id"] = faq.ID
	result.Metadata["score"] = results[0].Score
	e.metrics.Record(result.ResponseTime, true)
	return result, nil
}
