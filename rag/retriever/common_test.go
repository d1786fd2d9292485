package retriever

import (
	"context"
	"errors"

	"github.com/smallnest/faqgraph/rag"
)

type mockEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (m *mockEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (m *mockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.EmbedDocument(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedder) GetDimension() int { return 3 }

type mockRetriever struct {
	name string
	docs []rag.Document
	err  error
}

func (m *mockRetriever) Retrieve(ctx context.Context, query string) ([]rag.Document, error) {
	return m.docs, m.err
}

func (m *mockRetriever) RetrieveWithConfig(ctx context.Context, query string, config *rag.RetrievalConfig) ([]rag.DocumentSearchResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	res := make([]rag.DocumentSearchResult, len(m.docs))
	for i, d := range m.docs {
		res[i] = rag.DocumentSearchResult{
			Document: d,
			Score:    1 - 0.1*float64(i),
			Metadata: map[string]any{"retriever": m.name},
		}
	}
	return res, nil
}

var errRetriever = errors.New("retriever unavailable")

func faqDocs() []rag.Document {
	return []rag.Document{
		{ID: "nap", Content: "Câu hỏi: Làm sao để nạp tiền vào ví?\nTrả lời: Chọn Nạp tiền và nhập số tiền."},
		{ID: "rut", Content: "Câu hỏi: Làm sao để rút tiền về ngân hàng?\nTrả lời: Chọn Rút tiền, chọn ngân hàng đã liên kết."},
		{ID: "phi", Content: "Câu hỏi: Phí chuyển tiền là bao nhiêu?\nTrả lời: Chuyển tiền giữa các ví được miễn phí."},
	}
}
