package retriever

import (
	"context"
	"fmt"

	"github.com/smallnest/faqgraph/rag"
)

// VectorStore is the search surface of a dense document store.
type VectorStore interface {
	Search(ctx context.Context, queryEmbedding []float32, k int) ([]rag.DocumentSearchResult, error)
	SearchWithFilter(ctx context.Context, queryEmbedding []float32, k int, filter map[string]any) ([]rag.DocumentSearchResult, error)
}

// VectorRetriever implements document retrieval using vector similarity
type VectorRetriever struct {
	vectorStore VectorStore
	embedder    rag.Embedder
	config      rag.RetrievalConfig

	// MinScore drops results below this similarity whatever the per-call
	// ScoreThreshold.
	MinScore float64
}

// NewVectorRetriever creates a new vector retriever
func NewVectorRetriever(vectorStore VectorStore, embedder rag.Embedder, config rag.RetrievalConfig) *VectorRetriever {
	if config.K == 0 {
		config.K = 4
	}
	if config.SearchType == "" {
		config.SearchType = "similarity"
	}
	return &VectorRetriever{
		vectorStore: vectorStore,
		embedder:    embedder,
		config:      config,
	}
}

// Retrieve retrieves documents based on a query
func (r *VectorRetriever) Retrieve(ctx context.Context, query string) ([]rag.Document, error) {
	results, err := r.RetrieveWithConfig(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	return documents(results), nil
}

// RetrieveWithConfig retrieves documents with custom configuration
func (r *VectorRetriever) RetrieveWithConfig(ctx context.Context, query string, config *rag.RetrievalConfig) ([]rag.DocumentSearchResult, error) {
	if config == nil {
		config = &r.config
	}
	k := config.K
	if k <= 0 {
		k = r.config.K
	}

	queryEmbedding, err := r.embedder.EmbedDocument(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var results []rag.DocumentSearchResult
	if len(config.Filter) > 0 {
		results, err = r.vectorStore.SearchWithFilter(ctx, queryEmbedding, k, config.Filter)
	} else {
		results, err = r.vectorStore.Search(ctx, queryEmbedding, k)
	}
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	filtered := make([]rag.DocumentSearchResult, 0, len(results))
	threshold := max(config.ScoreThreshold, r.MinScore)
	for _, result := range results {
		if result.Score < threshold {
			continue
		}
		result.Metadata = map[string]any{"retriever": "vector"}
		filtered = append(filtered, result)
	}
	return filtered, nil
}
