package retriever

import (
	"context"
	"testing"

	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/rag/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorRetriever(t *testing.T) {
	ctx := context.Background()
	embedder := &mockEmbedder{vectors: map[string][]float32{"nạp tiền": {1, 0, 0}}}
	vs := store.NewInMemoryVectorStore(embedder)
	require.NoError(t, vs.Add(ctx, []rag.Document{
		{ID: "nap", Content: "nạp", Embedding: []float32{1, 0.1, 0}, Metadata: map[string]any{"topic": "nap"}},
		{ID: "rut", Content: "rút", Embedding: []float32{0, 1, 0}, Metadata: map[string]any{"topic": "rut"}},
	}))

	r := NewVectorRetriever(vs, embedder, rag.RetrievalConfig{K: 2, ScoreThreshold: 0.5})

	t.Run("threshold", func(t *testing.T) {
		docs, err := r.Retrieve(ctx, "nạp tiền")
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "nap", docs[0].ID)
	})

	t.Run("filter", func(t *testing.T) {
		results, err := r.RetrieveWithConfig(ctx, "nạp tiền", &rag.RetrievalConfig{K: 2, Filter: map[string]any{"topic": "rut"}})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "rut", results[0].Document.ID)
		assert.Equal(t, "vector", results[0].Metadata["retriever"])
	})

	t.Run("min score ignores a lower per-call threshold", func(t *testing.T) {
		floored := NewVectorRetriever(vs, embedder, rag.RetrievalConfig{K: 2})
		floored.MinScore = 0.5
		results, err := floored.RetrieveWithConfig(ctx, "nạp tiền", &rag.RetrievalConfig{K: 2})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "nap", results[0].Document.ID)

		results, err = floored.RetrieveWithConfig(ctx, "thời tiết", &rag.RetrievalConfig{K: 2})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("embed error", func(t *testing.T) {
		bad := NewVectorRetriever(vs, &mockEmbedder{err: errRetriever}, rag.RetrievalConfig{})
		_, err := bad.Retrieve(ctx, "x")
		assert.ErrorIs(t, err, errRetriever)
	})
}
