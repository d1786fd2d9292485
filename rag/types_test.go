package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityTypes(t *testing.T) {
	assert.Len(t, EntityTypes, 15)
	assert.Equal(t, 0, EntityTopic.Order())
	assert.Equal(t, 14, EntityStep.Order())
	assert.False(t, EntityType("Planet").Valid())

	et, ok := ParseEntityType(" errorcode ")
	assert.True(t, ok)
	assert.Equal(t, EntityErrorCode, et)
	_, ok = ParseEntityType("unknown")
	assert.False(t, ok)
}

func TestEntitiesHelpers(t *testing.T) {
	es := Entities{
		{Type: EntityBank, Normalized: "vietcombank"},
		{Type: EntityTopic, Normalized: "chuyen tien"},
		{Type: EntityBank, Normalized: "bidv"},
	}
	assert.Equal(t, []string{"vietcombank", "bidv"}, es.Values(EntityBank))
	assert.True(t, es.Has(EntityTopic))
	assert.False(t, es.Has(EntityError))

	v, ok := es.First(EntityBank)
	assert.True(t, ok)
	assert.Equal(t, "vietcombank", v)

	m := es.Map()
	assert.Len(t, m[EntityBank], 2)

	es.Sort()
	assert.Equal(t, EntityTopic, es[0].Type)
	assert.Equal(t, "bidv", es[1].Normalized)
	assert.Equal(t, "vietcombank", es[2].Normalized)
}

func TestFAQDocument(t *testing.T) {
	f := FAQ{
		ID:       "faq-1",
		Question: "Làm sao để nạp tiền?",
		Answer:   "Bước 1: Mở ứng dụng",
		Topic:    "nap tien",
		Entities: map[EntityType][]string{EntityAction: {"nap"}},
	}
	doc := f.Document()
	assert.Equal(t, "faq-1", doc.ID)
	assert.Equal(t, "Câu hỏi: Làm sao để nạp tiền?\nTrả lời: Bước 1: Mở ứng dụng", doc.Content)
	assert.Equal(t, "nap tien", doc.Metadata["topic"])
	assert.NotContains(t, doc.Metadata, "category")
	assert.True(t, f.HasEntity(EntityAction, "nap"))
	assert.False(t, f.HasEntity(EntityAction, "rut"))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}
