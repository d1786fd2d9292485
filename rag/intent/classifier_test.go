package intent

import (
	"testing"

	"github.com/smallnest/faqgraph/rag"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := NewClassifier()
	tests := []struct {
		name     string
		text     string
		entities rag.Entities
		want     rag.Intent
		minConf  float64
	}{
		{
			name:     "how to",
			text:     "Làm sao để chuyển tiền?",
			entities: rag.Entities{{Type: rag.EntityAction, Normalized: "chuyen"}},
			want:     rag.IntentHowTo,
			minConf:  0.9,
		},
		{
			name: "troubleshoot with error entities",
			text: "Chuyển tiền bị lỗi E01",
			entities: rag.Entities{
				{Type: rag.EntityAction, Normalized: "chuyen"},
				{Type: rag.EntityError, Normalized: "loi"},
				{Type: rag.EntityErrorCode, Normalized: "E01"},
			},
			want:    rag.IntentTroubleshoot,
			minConf: 0.9,
		},
		{
			name: "fee inquiry",
			text: "Phí chuyển tiền là bao nhiêu?",
			entities: rag.Entities{
				{Type: rag.EntityAction, Normalized: "chuyen"},
				{Type: rag.EntityFee, Normalized: "phi"},
			},
			want:    rag.IntentInquiry,
			minConf: 0.85,
		},
		{
			name:    "cannot do",
			text:    "tôi không nạp tiền được",
			want:    rag.IntentTroubleshoot,
			minConf: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.text, tt.entities)
			assert.Equal(t, tt.want, got.Intent)
			assert.GreaterOrEqual(t, got.Confidence, tt.minConf)
			assert.LessOrEqual(t, got.Confidence, 0.95)
		})
	}
}

func TestClassifyGreeting(t *testing.T) {
	got := Classify("Xin chào bạn!", nil)
	assert.Equal(t, rag.IntentGeneral, got.Intent)
	assert.True(t, got.Greeting)
	assert.Equal(t, 0.9, got.Confidence)

	assert.True(t, IsGreeting("cảm ơn nhiều nhé"))
	assert.True(t, IsGreeting("ok cảm ơn"))
	assert.False(t, IsGreeting("chào, cho hỏi phí chuyển tiền"))
}

func TestClassifyNoSignal(t *testing.T) {
	got := Classify("abc xyz", nil)
	assert.Equal(t, rag.IntentGeneral, got.Intent)
	assert.Equal(t, 0.3, got.Confidence)
}

func TestClassifyTieBreak(t *testing.T) {
	// one troubleshooting signal and one inquiry signal of equal weight
	got := Classify("bị khóa", rag.Entities{{Type: rag.EntityFee}})
	assert.Equal(t, rag.IntentTroubleshoot, got.Intent)
	assert.InDelta(t, 0.5, got.Confidence, 1e-9)
}
