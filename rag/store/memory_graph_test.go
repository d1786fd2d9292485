package store

import (
	"context"
	"testing"

	"github.com/smallnest/faqgraph/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFAQs() []rag.FAQ {
	return []rag.FAQ{
		{
			ID:       "faq-transfer",
			Question: "Làm sao để chuyển tiền đến ngân hàng?",
			Answer:   "Bước 1: Chọn Chuyển tiền\nBước 2: Nhập số tài khoản",
			Topic:    "Chuyển tiền",
			Entities: map[rag.EntityType][]string{
				rag.EntityAction: {"chuyen"},
			},
		},
		{
			ID:       "faq-link",
			Question: "Làm sao để liên kết ngân hàng Vietcombank?",
			Answer:   "Vào mục Liên kết ngân hàng.",
			Topic:    "Liên kết ngân hàng",
			Entities: map[rag.EntityType][]string{
				rag.EntityAction: {"lien ket"},
				rag.EntityBank:   {"vietcombank"},
			},
			Cases: []rag.Case{
				{ID: "c2", Name: "Qua thẻ", Answer: "Nhập số thẻ", Order: 2},
				{ID: "c1", Name: "Qua tài khoản", Answer: "Nhập số tài khoản", Order: 1},
			},
		},
	}
}

func newSampleGraph(t *testing.T) *MemoryGraph {
	t.Helper()
	g := NewMemoryGraph()
	for _, f := range sampleFAQs() {
		require.NoError(t, g.AddFAQ(context.Background(), f))
	}
	return g
}

func TestMemoryGraphSearchByEntities(t *testing.T) {
	ctx := context.Background()
	g := newSampleGraph(t)

	hits, err := g.SearchByEntities(ctx, GraphQuery{
		Entities: rag.Entities{
			{Type: rag.EntityTopic, Normalized: "lien ket ngan hang"},
			{Type: rag.EntityBank, Normalized: "vietcombank"},
			{Type: rag.EntityAction, Normalized: "chuyen"},
		},
		Weights: DefaultEntityWeights(),
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "faq-link", hits[0].FAQ.ID)
	assert.InDelta(t, 4.5, hits[0].Score, 1e-9)
	assert.InDelta(t, 6.5, hits[0].MaxScore, 1e-9)
	assert.Len(t, hits[0].Matched, 2)

	assert.Equal(t, "faq-transfer", hits[1].FAQ.ID)
	assert.InDelta(t, 2.0, hits[1].Score, 1e-9)
}

func TestMemoryGraphSearchLimitAndEmpty(t *testing.T) {
	ctx := context.Background()
	g := newSampleGraph(t)

	hits, err := g.SearchByEntities(ctx, GraphQuery{})
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = g.SearchByEntities(ctx, GraphQuery{
		Entities: rag.Entities{{Type: rag.EntityAction, Normalized: "chuyen"}, {Type: rag.EntityAction, Normalized: "lien ket"}},
		Limit:    1,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	// equal scores fall back to id order
	assert.Equal(t, "faq-link", hits[0].FAQ.ID)
	assert.InDelta(t, 2.0, hits[0].MaxScore, 1e-9)
}

func TestMemoryGraphFAQsAndCases(t *testing.T) {
	ctx := context.Background()
	g := newSampleGraph(t)

	faq, err := g.GetFAQ(ctx, "faq-link")
	require.NoError(t, err)
	assert.Equal(t, "Liên kết ngân hàng", faq.Topic)

	cases, err := g.GetCases(ctx, "faq-link")
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "c1", cases[0].ID)
	assert.Equal(t, "faq-link", cases[0].FAQID)

	_, err = g.GetFAQ(ctx, "nope")
	assert.ErrorIs(t, err, ErrFAQNotFound)

	all, err := g.ListFAQs(ctx)
	require.NoError(t, err)
	assert.Equal(t, "faq-link", all[0].ID)
	assert.Equal(t, "faq-transfer", all[1].ID)
}

func TestMemoryGraphReplaceAndDelete(t *testing.T) {
	ctx := context.Background()
	g := newSampleGraph(t)

	updated := sampleFAQs()[1]
	updated.Entities = map[rag.EntityType][]string{rag.EntityBank: {"bidv"}}
	require.NoError(t, g.AddFAQ(ctx, updated))

	hits, err := g.SearchByEntities(ctx, GraphQuery{Entities: rag.Entities{{Type: rag.EntityBank, Normalized: "vietcombank"}}})
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, g.DeleteFAQ(ctx, "faq-link"))
	assert.ErrorIs(t, g.DeleteFAQ(ctx, "faq-link"), ErrFAQNotFound)

	hits, err = g.SearchByEntities(ctx, GraphQuery{Entities: rag.Entities{{Type: rag.EntityBank, Normalized: "bidv"}}})
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.Error(t, g.AddFAQ(ctx, rag.FAQ{}))
	assert.NoError(t, g.Close(ctx))
}

func TestNewGraphStore(t *testing.T) {
	ctx := context.Background()
	gs, err := NewGraphStore(ctx, GraphConfig{URI: "memory://"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryGraph{}, gs)

	_, err = NewGraphStore(ctx, GraphConfig{URI: "falkordb://localhost"})
	assert.Error(t, err)
}
