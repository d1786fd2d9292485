package retriever

import (
	"context"
	"sort"

	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/textutil"
)

// KeywordReranker blends the retrieval score with the share of query
// tokens present in the document.
type KeywordReranker struct {
	// ScoreWeight is the weight of the original score; overlap gets the rest.
	ScoreWeight float64
}

// NewKeywordReranker creates a reranker with a 0.7/0.3 blend.
func NewKeywordReranker() *KeywordReranker {
	return &KeywordReranker{ScoreWeight: 0.7}
}

// Rerank reranks documents based on query relevance
func (r *KeywordReranker) Rerank(ctx context.Context, query string, results []rag.DocumentSearchResult) ([]rag.DocumentSearchResult, error) {
	queryTokens := uniqueTokens(query)
	out := make([]rag.DocumentSearchResult, len(results))
	for i, res := range results {
		var overlap float64
		if len(queryTokens) > 0 {
			docTokens := uniqueTokens(res.Document.Content)
			hits := 0
			for tok := range queryTokens {
				if docTokens[tok] {
					hits++
				}
			}
			overlap = float64(hits) / float64(len(queryTokens))
		}

		meta := make(map[string]any, len(res.Metadata)+2)
		for k, v := range res.Metadata {
			meta[k] = v
		}
		meta["original_score"] = res.Score
		meta["keyword_overlap"] = overlap

		out[i] = rag.DocumentSearchResult{
			Document: res.Document,
			Score:    r.ScoreWeight*res.Score + (1-r.ScoreWeight)*overlap,
			Metadata: meta,
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func uniqueTokens(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range textutil.Tokenize(s) {
		set[tok] = true
	}
	return set
}
