package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/rag/store"
	"github.com/stretchr/testify/require"
)

type mockEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (m *mockEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 1, 0}, nil
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

type failingGraph struct {
	store.GraphStore
}

func (failingGraph) SearchByEntities(ctx context.Context, query store.GraphQuery) ([]store.GraphHit, error) {
	return nil, errors.New("neo4j unavailable")
}

func fixtureFAQs() []rag.FAQ {
	return []rag.FAQ{
		{
			ID:       "faq-nap",
			Question: "Làm thế nào để nạp tiền vào ví?",
			Answer:   "Bước 1: Mở ứng dụng\nBước 2: Chọn Nạp tiền\nBước 3: Nhập số tiền và xác nhận",
			Topic:    "Nạp tiền",
			Entities: map[rag.EntityType][]string{rag.EntityAction: {"nap"}},
		},
		{
			ID:       "faq-nap-loi",
			Question: "Nạp tiền bị lỗi thì phải làm sao?",
			Answer:   "Bạn kiểm tra lại số dư ngân hàng và thử lại sau 15 phút.",
			Topic:    "Nạp tiền",
			Entities: map[rag.EntityType][]string{
				rag.EntityAction: {"nap"},
				rag.EntityError:  {"loi"},
			},
		},
		{
			ID:       "faq-rut",
			Question: "Làm sao để rút tiền về ngân hàng?",
			Answer:   "Chọn Rút tiền, chọn ngân hàng đã liên kết và nhập số tiền.",
			Topic:    "Rút tiền",
			Entities: map[rag.EntityType][]string{rag.EntityAction: {"rut"}},
		},
		{
			ID:       "faq-lienket",
			Question: "Làm sao liên kết ngân hàng với ví?",
			Answer:   "Ví hỗ trợ liên kết với nhiều ngân hàng.",
			Topic:    "Liên kết ngân hàng",
			Entities: map[rag.EntityType][]string{
				rag.EntityAction: {"lien ket"},
				rag.EntityBank:   {"vietcombank", "bidv"},
			},
			Cases: []rag.Case{
				{ID: "case-vcb", Name: "Liên kết Vietcombank", Keywords: []string{"vietcombank", "vcb"}, Answer: "Nhập số thẻ Vietcombank và mã OTP.", Order: 1},
				{ID: "case-bidv", Name: "Liên kết BIDV", Keywords: []string{"bidv"}, Answer: "Nhập số tài khoản BIDV và mã OTP.", Order: 2},
			},
		},
	}
}

func newFixtureGraph(t *testing.T) *store.MemoryGraph {
	t.Helper()
	g := store.NewMemoryGraph()
	for _, f := range fixtureFAQs() {
		require.NoError(t, g.AddFAQ(context.Background(), f))
	}
	return g
}
