package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/textutil"
)

// BM25 parameters
const (
	DefaultBM25K1 = 1.5
	DefaultBM25B  = 0.75
)

// BM25Index is an Okapi BM25 index over textutil.Tokenize tokens.
type BM25Index struct {
	mu        sync.RWMutex
	k1, b     float64
	docs      []rag.Document
	termFreqs []map[string]int
	docLens   []int
	docFreq   map[string]int
	totalLen  int
}

// NewBM25Index creates an empty index with the default parameters.
func NewBM25Index() *BM25Index {
	return &BM25Index{
		k1:      DefaultBM25K1,
		b:       DefaultBM25B,
		docFreq: make(map[string]int),
	}
}

// Add indexes documents. Documents whose id is already indexed are
// replaced.
func (idx *BM25Index) Add(docs ...rag.Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, doc := range docs {
		if i := idx.indexOf(doc.ID); i >= 0 {
			idx.remove(i)
		}
		tf := make(map[string]int)
		tokens := textutil.Tokenize(doc.Content)
		for _, tok := range tokens {
			tf[tok]++
		}
		for tok := range tf {
			idx.docFreq[tok]++
		}
		idx.docs = append(idx.docs, doc)
		idx.termFreqs = append(idx.termFreqs, tf)
		idx.docLens = append(idx.docLens, len(tokens))
		idx.totalLen += len(tokens)
	}
}

func (idx *BM25Index) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, d := range idx.docs {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (idx *BM25Index) remove(i int) {
	for tok := range idx.termFreqs[i] {
		idx.docFreq[tok]--
		if idx.docFreq[tok] <= 0 {
			delete(idx.docFreq, tok)
		}
	}
	idx.totalLen -= idx.docLens[i]
	idx.docs = append(idx.docs[:i], idx.docs[i+1:]...)
	idx.termFreqs = append(idx.termFreqs[:i], idx.termFreqs[i+1:]...)
	idx.docLens = append(idx.docLens[:i], idx.docLens[i+1:]...)
}

// Len returns the number of indexed documents.
func (idx *BM25Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// idf uses the non-negative variant log((N-n+0.5)/(n+0.5) + 1).
func (idx *BM25Index) idf(term string) float64 {
	n := float64(idx.docFreq[term])
	N := float64(len(idx.docs))
	return math.Log((N-n+0.5)/(n+0.5) + 1)
}

// Search returns up to k documents with a positive BM25 score, best first.
func (idx *BM25Index) Search(query string, k int) []rag.DocumentSearchResult {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.docs) == 0 {
		return nil
	}
	terms := textutil.Tokenize(query)
	if len(terms) == 0 {
		return nil
	}
	avgLen := float64(idx.totalLen) / float64(len(idx.docs))
	if avgLen == 0 {
		avgLen = 1
	}

	var results []rag.DocumentSearchResult
	for i, tf := range idx.termFreqs {
		var score float64
		for _, term := range terms {
			f := float64(tf[term])
			if f == 0 {
				continue
			}
			norm := idx.k1 * (1 - idx.b + idx.b*float64(idx.docLens[i])/avgLen)
			score += idx.idf(term) * f * (idx.k1 + 1) / (f + norm)
		}
		if score > 0 {
			results = append(results, rag.DocumentSearchResult{Document: idx.docs[i], Score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Document.ID < results[j].Document.ID
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// BM25Retriever is the sparse retriever of the hybrid search.
type BM25Retriever struct {
	index  *BM25Index
	config rag.RetrievalConfig
}

// NewBM25Retriever creates a retriever over index.
func NewBM25Retriever(index *BM25Index, config rag.RetrievalConfig) *BM25Retriever {
	if config.K == 0 {
		config.K = 4
	}
	config.SearchType = "bm25"
	return &BM25Retriever{index: index, config: config}
}

// Retrieve retrieves documents based on a query
func (r *BM25Retriever) Retrieve(ctx context.Context, query string) ([]rag.Document, error) {
	results, err := r.RetrieveWithConfig(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	return documents(results), nil
}

// RetrieveWithConfig retrieves documents with custom configuration. The
// score threshold applies to raw BM25 scores.
func (r *BM25Retriever) RetrieveWithConfig(ctx context.Context, query string, config *rag.RetrievalConfig) ([]rag.DocumentSearchResult, error) {
	if config == nil {
		config = &r.config
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.index == nil {
		return nil, fmt.Errorf("bm25 index is not initialized")
	}
	results := r.index.Search(query, 0)
	filtered := results[:0]
	for _, res := range results {
		if res.Score < config.ScoreThreshold || !matchesFilter(res.Document, config.Filter) {
			continue
		}
		res.Metadata = map[string]any{"retriever": "bm25"}
		filtered = append(filtered, res)
	}
	if config.K > 0 && len(filtered) > config.K {
		filtered = filtered[:config.K]
	}
	return filtered, nil
}

func documents(results []rag.DocumentSearchResult) []rag.Document {
	docs := make([]rag.Document, len(results))
	for i, result := range results {
		docs[i] = result.Document
	}
	return docs
}

func matchesFilter(doc rag.Document, filter map[string]any) bool {
	for key, value := range filter {
		if doc.Metadata[key] != value {
			return false
		}
	}
	return true
}
