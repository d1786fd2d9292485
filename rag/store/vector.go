package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/smallnest/faqgraph/rag"
)

// InMemoryVectorStore is a simple in-memory vector store implementation
type InMemoryVectorStore struct {
	mu         sync.RWMutex
	documents  []rag.Document
	embeddings [][]float32
	embedder   rag.Embedder
}

// NewInMemoryVectorStore creates a new InMemoryVectorStore. embedder may be
// nil when every document carries its own embedding.
func NewInMemoryVectorStore(embedder rag.Embedder) *InMemoryVectorStore {
	return &InMemoryVectorStore{embedder: embedder}
}

// Add embeds documents that have no embedding and stores them. Documents
// with an existing id are replaced.
func (s *InMemoryVectorStore) Add(ctx context.Context, documents []rag.Document) error {
	var missing []string
	var missingIdx []int
	for i, doc := range documents {
		if len(doc.Embedding) == 0 {
			missing = append(missing, doc.Content)
			missingIdx = append(missingIdx, i)
		}
	}
	embeddings := make([][]float32, len(documents))
	for i, doc := range documents {
		embeddings[i] = doc.Embedding
	}
	if len(missing) > 0 {
		if s.embedder == nil {
			return fmt.Errorf("no embedder configured and %d documents have no embedding", len(missing))
		}
		vecs, err := s.embedder.EmbedDocuments(ctx, missing)
		if err != nil {
			return fmt.Errorf("failed to embed documents: %w", err)
		}
		for j, i := range missingIdx {
			embeddings[i] = vecs[j]
		}
	}
	return s.AddBatch(ctx, documents, embeddings)
}

// AddBatch adds documents with explicit embeddings
func (s *InMemoryVectorStore) AddBatch(ctx context.Context, documents []rag.Document, embeddings [][]float32) error {
	if len(documents) != len(embeddings) {
		return fmt.Errorf("documents and embeddings must have same length")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, doc := range documents {
		doc.Embedding = nil
		if idx := s.indexOf(doc.ID); idx >= 0 {
			s.documents[idx] = doc
			s.embeddings[idx] = embeddings[i]
			continue
		}
		s.documents = append(s.documents, doc)
		s.embeddings = append(s.embeddings, embeddings[i])
	}
	return nil
}

func (s *InMemoryVectorStore) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, d := range s.documents {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Search performs similarity search
func (s *InMemoryVectorStore) Search(ctx context.Context, queryEmbedding []float32, k int) ([]rag.DocumentSearchResult, error) {
	return s.SearchWithFilter(ctx, queryEmbedding, k, nil)
}

// SearchWithFilter performs similarity search over documents whose metadata
// equals every filter entry.
func (s *InMemoryVectorStore) SearchWithFilter(ctx context.Context, queryEmbedding []float32, k int, filter map[string]any) ([]rag.DocumentSearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]rag.DocumentSearchResult, 0, len(s.documents))
	for i, doc := range s.documents {
		if !matchesFilter(doc, filter) {
			continue
		}
		results = append(results, rag.DocumentSearchResult{
			Document: doc,
			Score:    rag.CosineSimilarity(queryEmbedding, s.embeddings[i]),
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Get returns a document and its embedding by id.
func (s *InMemoryVectorStore) Get(ctx context.Context, id string) (rag.Document, []float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return rag.Document{}, nil, false
	}
	return s.documents[idx], s.embeddings[idx], true
}

// Delete removes documents by ID
func (s *InMemoryVectorStore) Delete(ctx context.Context, ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.documents[:0]
	embs := s.embeddings[:0]
	for i, doc := range s.documents {
		if !drop[doc.ID] {
			docs = append(docs, doc)
			embs = append(embs, s.embeddings[i])
		}
	}
	s.documents = docs
	s.embeddings = embs
	return nil
}

// Count returns the number of stored documents.
func (s *InMemoryVectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// matchesFilter checks if a document matches the given filter
func matchesFilter(doc rag.Document, filter map[string]any) bool {
	for key, value := range filter {
		docValue, exists := doc.Metadata[key]
		if !exists || docValue != value {
			return false
		}
	}
	return true
}
