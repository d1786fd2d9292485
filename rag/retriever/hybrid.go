package retriever

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/smallnest/faqgraph/log"
	"github.com/smallnest/faqgraph/rag"
)

// FusionMode selects how the hybrid retriever merges result lists.
type FusionMode string

const (
	// FusionRRF ranks by Σ 1/(k+rank) over every list a document appears in.
	FusionRRF FusionMode = "rrf"
	// FusionWeighted ranks by Σ weight·score.
	FusionWeighted FusionMode = "weighted"
)

// DefaultRRFK is the rank constant of Reciprocal Rank Fusion.
const DefaultRRFK = 60

// ParseFusionMode accepts "rrf", "weighted" and "" (RRF).
func ParseFusionMode(s string) (FusionMode, error) {
	switch FusionMode(s) {
	case "", FusionRRF:
		return FusionRRF, nil
	case FusionWeighted:
		return FusionWeighted, nil
	default:
		return "", fmt.Errorf("unknown fusion mode %q (want %s or %s)", s, FusionRRF, FusionWeighted)
	}
}

// RawScore is the fused score of r before normalisation.
func RawScore(r rag.DocumentSearchResult) float64 {
	if v, ok := r.Metadata["raw_score"].(float64); ok {
		return v
	}
	return r.Score
}

// HybridRetriever combines multiple retrieval strategies
type HybridRetriever struct {
	retrievers []rag.Retriever
	weights    []float64
	config     rag.RetrievalConfig

	// Mode defaults to FusionRRF.
	Mode FusionMode
	// RRFK defaults to DefaultRRFK.
	RRFK int
	// FetchK is the per-retriever candidate count; defaults to 2·K.
	FetchK int
	// Normalize rescales fused scores so that the best result scores 1.
	// The fused score is kept in the "raw_score" metadata.
	Normalize bool

	logger log.Logger
}

// HybridOption configures a HybridRetriever.
type HybridOption func(*HybridRetriever)

// WithFusionMode sets the fusion mode.
func WithFusionMode(mode FusionMode) HybridOption {
	return func(h *HybridRetriever) { h.Mode = mode }
}

// WithNormalize enables score normalisation.
func WithNormalize(normalize bool) HybridOption {
	return func(h *HybridRetriever) { h.Normalize = normalize }
}

// WithHybridLogger sets the logger used to report failing retrievers.
func WithHybridLogger(l log.Logger) HybridOption {
	return func(h *HybridRetriever) { h.logger = l }
}

// NewHybridRetriever creates a new hybrid retriever that combines multiple retrievers
func NewHybridRetriever(retrievers []rag.Retriever, weights []float64, config rag.RetrievalConfig, opts ...HybridOption) *HybridRetriever {
	if len(weights) != len(retrievers) {
		adjusted := make([]float64, len(retrievers))
		for i := range adjusted {
			if i < len(weights) {
				adjusted[i] = weights[i]
			} else {
				adjusted[i] = 1.0
			}
		}
		weights = adjusted
	}
	if config.K == 0 {
		config.K = 4
	}

	h := &HybridRetriever{
		retrievers: retrievers,
		weights:    weights,
		config:     config,
		Mode:       FusionRRF,
		RRFK:       DefaultRRFK,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = log.OrDefault(h.logger)
	return h
}

// Retrieve retrieves documents using all configured retrievers and combines results
func (h *HybridRetriever) Retrieve(ctx context.Context, query string) ([]rag.Document, error) {
	results, err := h.RetrieveWithConfig(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	return documents(results), nil
}

// RetrieveWithConfig runs every retriever concurrently and fuses their
// results. It fails only when every retriever fails.
func (h *HybridRetriever) RetrieveWithConfig(ctx context.Context, query string, config *rag.RetrievalConfig) ([]rag.DocumentSearchResult, error) {
	if config == nil {
		config = &h.config
	}
	if len(h.retrievers) == 0 {
		return nil, fmt.Errorf("hybrid retriever has no retrievers")
	}

	fetch := *config
	fetch.K = h.FetchK
	if fetch.K <= 0 {
		fetch.K = 2 * config.K
	}
	// thresholds apply to fused scores only
	fetch.ScoreThreshold = 0

	lists := make([][]rag.DocumentSearchResult, len(h.retrievers))
	errs := make([]error, len(h.retrievers))
	var wg sync.WaitGroup
	for i, r := range h.retrievers {
		wg.Add(1)
		go func(i int, r rag.Retriever) {
			defer wg.Done()
			lists[i], errs[i] = r.RetrieveWithConfig(ctx, query, &fetch)
		}(i, r)
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			h.logger.Warn("hybrid retriever %d failed: %v", i, err)
			lists[i] = nil
		}
	}
	if failed == len(h.retrievers) {
		return nil, fmt.Errorf("all retrievers failed: %w", errs[0])
	}

	var fused []rag.DocumentSearchResult
	if h.Mode == FusionWeighted {
		fused = h.fuseWeighted(lists)
	} else {
		fused = h.fuseRRF(lists)
	}

	if h.Normalize && len(fused) > 0 && fused[0].Score > 0 {
		top := fused[0].Score
		for i := range fused {
			fused[i].Metadata["raw_score"] = fused[i].Score
			fused[i].Score /= top
		}
	}

	out := fused[:0]
	for _, r := range fused {
		if r.Score >= config.ScoreThreshold {
			out = append(out, r)
		}
	}
	if config.K > 0 && len(out) > config.K {
		out = out[:config.K]
	}
	return out, nil
}

type fusedDocument struct {
	doc     rag.Document
	score   float64
	sources []string
	ranks   map[string]int
	order   int
}

func (h *HybridRetriever) fuseRRF(lists [][]rag.DocumentSearchResult) []rag.DocumentSearchResult {
	k := h.RRFK
	if k <= 0 {
		k = DefaultRRFK
	}
	return h.fuse(lists, func(i, rank int, _ rag.DocumentSearchResult) float64 {
		return h.weights[i] / float64(k+rank)
	})
}

func (h *HybridRetriever) fuseWeighted(lists [][]rag.DocumentSearchResult) []rag.DocumentSearchResult {
	return h.fuse(lists, func(i, _ int, r rag.DocumentSearchResult) float64 {
		return h.weights[i] * r.Score
	})
}

// fuse accumulates contribution(list, 1-based rank, result) per document id.
func (h *HybridRetriever) fuse(lists [][]rag.DocumentSearchResult, contribution func(i, rank int, r rag.DocumentSearchResult) float64) []rag.DocumentSearchResult {
	byID := make(map[string]*fusedDocument)
	var order int
	for i, list := range lists {
		source := retrieverName(i, list)
		for rank, r := range list {
			key := r.Document.ID
			if key == "" {
				key = r.Document.Content
			}
			fd, ok := byID[key]
			if !ok {
				fd = &fusedDocument{doc: r.Document, ranks: make(map[string]int), order: order}
				order++
				byID[key] = fd
			}
			fd.score += contribution(i, rank+1, r)
			fd.sources = append(fd.sources, source)
			fd.ranks[source] = rank + 1
		}
	}

	out := make([]*fusedDocument, 0, len(byID))
	for _, fd := range byID {
		out = append(out, fd)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].order < out[j].order
	})

	results := make([]rag.DocumentSearchResult, len(out))
	for i, fd := range out {
		results[i] = rag.DocumentSearchResult{
			Document: fd.doc,
			Score:    fd.score,
			Metadata: map[string]any{
				"fusion":  string(h.Mode),
				"sources": fd.sources,
				"ranks":   fd.ranks,
			},
		}
	}
	return results
}

// retrieverName is the retriever metadata tag of the list, or retriever_i.
func retrieverName(i int, list []rag.DocumentSearchResult) string {
	if len(list) > 0 {
		if name, ok := list[0].Metadata["retriever"].(string); ok && name != "" {
			return name
		}
	}
	return fmt.Sprintf("retriever_%d", i)
}

// GetWeights returns the weights being used for each retriever
func (h *HybridRetriever) GetWeights() []float64 {
	weights := make([]float64, len(h.weights))
	copy(weights, h.weights)
	return weights
}
