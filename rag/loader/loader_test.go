package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/rag/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestJSONLoader(t *testing.T) {
	ctx := context.Background()

	t.Run("array", func(t *testing.T) {
		path := writeFile(t, "faqs.json", `[
			{"id": "1", "question": "Phí rút tiền?", "answer": "Miễn phí", "topic": "Rút tiền",
			 "entities": {"Action": ["rut"]},
			 "cases": [{"id": "c1", "name": "Về Vietcombank", "answer": "Miễn phí", "order": 1}]}
		]`)
		faqs, err := NewJSONLoader(path).Load(ctx)
		require.NoError(t, err)
		require.Len(t, faqs, 1)
		assert.Equal(t, []string{"rut"}, faqs[0].Entities[rag.EntityAction])
		assert.Equal(t, "c1", faqs[0].Cases[0].ID)
	})

	t.Run("object", func(t *testing.T) {
		path := writeFile(t, "faqs.json", `{"faqs": [{"id": "1", "question": "Q", "answer": "A"}]}`)
		faqs, err := NewJSONLoader(path).Load(ctx)
		require.NoError(t, err)
		assert.Len(t, faqs, 1)
	})

	t.Run("yaml", func(t *testing.T) {
		path := writeFile(t, "faqs.yaml", "faqs:\n  - id: \"1\"\n    question: Q\n    answer: A\n    entities:\n      Bank: [bidv]\n")
		faqs, err := NewJSONLoader(path).Load(ctx)
		require.NoError(t, err)
		require.Len(t, faqs, 1)
		assert.Equal(t, []string{"bidv"}, faqs[0].Entities[rag.EntityBank])
	})

	t.Run("invalid", func(t *testing.T) {
		path := writeFile(t, "faqs.json", `[{"id": "1", "question": "Q"}, {"id": "1", "question": "Q"}]`)
		_, err := NewJSONLoader(path).Load(ctx)
		assert.ErrorContains(t, err, "duplicate")

		_, err = NewJSONLoader(filepath.Join(t.TempDir(), "missing.json")).Load(ctx)
		assert.Error(t, err)
	})
}

const helpCentre = `<html><body>
<section data-topic="Nạp tiền">
  <div class="faq-item" id="nap-1" data-category="Ví">
    <h3 class="faq-question">Làm sao để   nạp tiền?</h3>
    <div class="faq-answer">
      <p>Bạn làm theo các bước sau:</p>
      <ol><li>Mở ứng dụng</li><li>Chọn <b>Nạp tiền</b></li></ol>
    </div>
  </div>
  <div class="faq-item">
    <h3 class="faq-question">Nạp tiền từ ngân hàng nào?</h3>
    <div class="faq-answer">
      <div class="faq-case"><span class="faq-case-title">Vietcombank</span><p>Liên kết thẻ.</p></div>
      <div class="faq-case"><span class="faq-case-title">BIDV</span><p>Liên kết tài khoản.</p></div>
    </div>
  </div>
  <div class="faq-item"><h3 class="faq-question">Không có câu trả lời</h3></div>
</section>
</body></html>`

func TestHTMLLoader(t *testing.T) {
	faqs, err := NewHTMLReaderLoader(strings.NewReader(helpCentre), "help.html").Load(context.Background())
	require.NoError(t, err)
	require.Len(t, faqs, 2)

	assert.Equal(t, "nap-1", faqs[0].ID)
	assert.Equal(t, "Làm sao để nạp tiền?", faqs[0].Question)
	assert.Equal(t, "Nạp tiền", faqs[0].Topic)
	assert.Equal(t, "Ví", faqs[0].Category)
	assert.Equal(t, "Bạn làm theo các bước sau:\nBước 1: Mở ứng dụng\nBước 2: Chọn Nạp tiền", faqs[0].Answer)

	assert.Equal(t, "html-2", faqs[1].ID)
	require.Len(t, faqs[1].Cases, 2)
	assert.Equal(t, "Vietcombank", faqs[1].Cases[0].Name)
	assert.Equal(t, "Liên kết thẻ.", faqs[1].Cases[0].Answer)
	assert.Equal(t, 2, faqs[1].Cases[1].Order)
	assert.Empty(t, faqs[1].Answer)
}

func TestHTMLLoaderCustomSelectors(t *testing.T) {
	page := `<dl><div class="qa"><dt>Phí?</dt><dd>Miễn phí</dd></div></dl>`
	l := NewHTMLReaderLoader(strings.NewReader(page), "inline", WithSelectors(HTMLSelectors{
		Item: ".qa", Question: "dt", Answer: "dd",
	}))
	faqs, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, faqs, 1)
	assert.Equal(t, "Miễn phí", faqs[0].Answer)
}

func TestEnrichEntities(t *testing.T) {
	faqs := []rag.FAQ{
		{ID: "1", Question: "Làm sao chuyển tiền đến Vietcombank?", Topic: "Chuyển tiền"},
		{ID: "2", Question: "Rút tiền về BIDV", Entities: map[rag.EntityType][]string{rag.EntityBank: {"agribank"}}},
	}
	out := EnrichEntities(faqs, extract.New())

	assert.Equal(t, []string{"vietcombank"}, out[0].Entities[rag.EntityBank])
	assert.Equal(t, []string{"chuyen tien"}, out[0].Entities[rag.EntityTopic])
	assert.Equal(t, []string{"agribank"}, out[1].Entities[rag.EntityBank])
	assert.Contains(t, out[1].Entities[rag.EntityAction], "rut")
	assert.Nil(t, faqs[0].Entities)

	loaded, err := NewStaticLoader(out).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}
