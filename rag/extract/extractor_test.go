package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/smallnest/faqgraph/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/fake"
)

type stubLLM struct {
	response string
	err      error
	calls    int
}

func (s *stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return s.GenerateWithSystem(ctx, "", prompt)
}

func (s *stubLLM) GenerateWithSystem(ctx context.Context, system, prompt string) (string, error) {
	s.calls++
	return s.response, s.err
}

func TestExtractRegex(t *testing.T) {
	e := New(WithConfig(Config{Strategy: StrategyRegex, MinConfidence: 0.3, RegexConfidence: 0.9}))

	tests := []struct {
		name string
		text string
		want map[rag.EntityType][]string
	}{
		{
			name: "transfer to bank",
			text: "Làm sao để chuyển tiền sang Vietcombank?",
			want: map[rag.EntityType][]string{
				rag.EntityTopic:  {"chuyen tien"},
				rag.EntityAction: {"chuyen"},
				rag.EntityBank:   {"vietcombank"},
			},
		},
		{
			name: "specific topic wins and error code captured",
			text: "Nạp tiền điện thoại bị lỗi E01",
			want: map[rag.EntityType][]string{
				rag.EntityTopic:     {"nap tien dien thoai"},
				rag.EntityAction:    {"nap"},
				rag.EntityError:     {"loi"},
				rag.EntityErrorCode: {"E01"},
			},
		},
		{
			name: "amount and fee",
			text: "Chuyển 1,5 triệu mất phí bao nhiêu?",
			want: map[rag.EntityType][]string{
				rag.EntityAction: {"chuyen"},
				rag.EntityAmount: {"1500000"},
				rag.EntityFee:    {"phi"},
			},
		},
		{
			name: "error code after label",
			text: "mã lỗi 1005",
			want: map[rag.EntityType][]string{
				rag.EntityError:     {"loi"},
				rag.EntityErrorCode: {"1005"},
			},
		},
		{
			name: "bank alias",
			text: "liên kết ngân hàng quân đội",
			want: map[rag.EntityType][]string{
				rag.EntityTopic:  {"lien ket ngan hang"},
				rag.EntityAction: {"lien ket"},
				rag.EntityBank:   {"mb bank"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Extract(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Map())
			for _, ent := range got {
				assert.Equal(t, rag.SourceRegex, ent.Source)
				assert.InDelta(t, 0.9, ent.Confidence, 1e-9)
			}
		})
	}
}

func TestExtractRegexAmountsAndSteps(t *testing.T) {
	e := New()
	got := e.ExtractRegex("rút 500.000đ rồi nạp 200k, xong bước 2")
	assert.ElementsMatch(t, []string{"500000", "200000"}, got.Values(rag.EntityAmount))
	assert.Equal(t, []string{"2"}, got.Values(rag.EntityStep))

	got = e.ExtractRegex("tôi đang ở bước ba")
	assert.Equal(t, []string{"3"}, got.Values(rag.EntityStep))
}

func TestExtractEmptyText(t *testing.T) {
	got, err := New().Extract(context.Background(), "   ")
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtractLLMFallback(t *testing.T) {
	llm := &stubLLM{response: "```json\n" +
		`{"entities":[{"type":"Topic","value":"hỗ trợ"},{"type":"Bank","value":"Techcombank"},{"type":"Planet","value":"x"}]}` +
		"\n```"}
	e := New(WithLLM(llm))

	got, err := e.Extract(context.Background(), "Tôi cần hỗ trợ gấp")
	require.NoError(t, err)
	assert.Equal(t, 1, llm.calls)
	require.Len(t, got, 2)

	assert.Equal(t, rag.EntityTopic, got[0].Type)
	assert.Equal(t, "ho tro", got[0].Normalized)
	assert.InDelta(t, 0.75, got[0].Confidence, 1e-9)

	// not present in the text, so halved
	assert.Equal(t, "techcombank", got[1].Normalized)
	assert.InDelta(t, 0.375, got[1].Confidence, 1e-9)
}

func TestExtractLLMFallbackSkippedWhenRegexSuffices(t *testing.T) {
	llm := &stubLLM{response: `{"entities":[]}`}
	e := New(WithLLM(llm))

	_, err := e.Extract(context.Background(), "chuyển tiền sang Vietcombank")
	require.NoError(t, err)
	assert.Equal(t, 0, llm.calls)
}

func TestExtractHybridMerge(t *testing.T) {
	llm := rag.NewLangChainLLM(fake.NewFakeLLM([]string{
		`Kết quả: [{"type":"Topic","value":"Chuyển tiền"},{"type":"Channel","value":"ứng dụng"}]`,
	}))
	cfg := DefaultConfig()
	cfg.Strategy = StrategyHybrid
	e := New(WithLLM(llm), WithConfig(cfg))

	got, err := e.Extract(context.Background(), "chuyển tiền sang vietcombank")
	require.NoError(t, err)

	topic := got[0]
	assert.Equal(t, rag.EntityTopic, topic.Type)
	assert.Equal(t, rag.SourceBoth, topic.Source)
	assert.InDelta(t, 1.0, topic.Confidence, 1e-9)

	channel, ok := got.First(rag.EntityChannel)
	assert.True(t, ok)
	assert.Equal(t, "ung dung", channel)
}

func TestExtractLLMFirstFallsBackOnError(t *testing.T) {
	llm := &stubLLM{err: errors.New("rate limited")}
	cfg := DefaultConfig()
	cfg.Strategy = StrategyLLMFirst
	e := New(WithLLM(llm), WithConfig(cfg))

	got, err := e.Extract(context.Background(), "rút tiền về BIDV")
	require.NoError(t, err)
	assert.Equal(t, 1, llm.calls)
	assert.Equal(t, []string{"bidv"}, got.Values(rag.EntityBank))
	assert.Equal(t, []string{"rut tien"}, got.Values(rag.EntityTopic))
}

func TestExtractCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Extract(ctx, "chuyển tiền")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMerge(t *testing.T) {
	regex := rag.Entities{{Type: rag.EntityBank, Normalized: "bidv", Source: rag.SourceRegex, Confidence: 0.9}}
	llm := rag.Entities{
		{Type: rag.EntityBank, Normalized: "bidv", Source: rag.SourceLLM, Confidence: 0.75},
		{Type: rag.EntityTopic, Normalized: "rut tien", Source: rag.SourceLLM, Confidence: 0.75},
	}
	got := Merge(regex, llm)
	require.Len(t, got, 2)
	assert.Equal(t, rag.SourceBoth, got[0].Source)
	assert.InDelta(t, 1.0, got[0].Confidence, 1e-9)
	assert.Equal(t, rag.SourceLLM, got[1].Source)
}

func TestValidateDropsLowConfidence(t *testing.T) {
	e := New()
	got := e.Validate("chuyển tiền", rag.Entities{
		{Type: rag.EntityBank, Value: "ACB", Normalized: "acb", Source: rag.SourceLLM, Confidence: 0.5},
		{Type: rag.EntityTopic, Value: "chuyển tiền", Normalized: "chuyen tien", Source: rag.SourceRegex, Confidence: 0.9},
	})
	require.Len(t, got, 1)
	assert.Equal(t, rag.EntityTopic, got[0].Type)
}

func TestParseLLMEntities(t *testing.T) {
	items, err := parseLLMEntities(`{"Topic": ["nạp tiền"], "Bank": "ACB"}`)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = parseLLMEntities(`[{"type":"Error","value":"lỗi"}]`)
	require.NoError(t, err)
	assert.Equal(t, []llmEntity{{Type: "Error", Value: "lỗi"}}, items)

	_, err = parseLLMEntities("không có gì")
	assert.Error(t, err)
}

func TestCanonicalBank(t *testing.T) {
	assert.Equal(t, "vietcombank", CanonicalBank("vcb"))
	assert.Equal(t, "vietcombank", CanonicalBank("ngan hang vietcombank"))
	assert.Equal(t, "mb bank", CanonicalBank("mbbank"))
	assert.Equal(t, "unknown bank", CanonicalBank("unknown bank"))
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("Hybrid")
	require.NoError(t, err)
	assert.Equal(t, StrategyHybrid, s)

	s, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyLLMFallback, s)

	_, err = ParseStrategy("magic")
	assert.Error(t, err)
}
