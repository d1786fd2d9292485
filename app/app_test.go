package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/smallnest/faqgraph/config"
	"github.com/smallnest/faqgraph/log"
	"github.com/smallnest/faqgraph/rag/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const faqJSON = `{"faqs": [
  {
    "id": "faq-nap",
    "question": "Làm thế nào để nạp tiền vào ví?",
    "answer": "Bước 1: Mở ứng dụng\nBước 2: Chọn Nạp tiền\nBước 3: Nhập số tiền và xác nhận",
    "topic": "Nạp tiền"
  },
  {
    "id": "faq-rut",
    "question": "Làm sao để rút tiền về ngân hàng?",
    "answer": "Chọn Rút tiền, chọn ngân hàng đã liên kết và nhập số tiền.",
    "topic": "Rút tiền"
  }
]}`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faqs.json")
	require.NoError(t, os.WriteFile(path, []byte(faqJSON), 0o644))
	cfg := config.Default()
	cfg.DataPath = path
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, &log.NoOpLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestNew_GraphRAGInMemory(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	assert.Len(t, a.FAQs, 2)

	resp, err := a.Bot.Chat(context.Background(), "s1", "Làm thế nào để nạp tiền vào ví?")
	require.NoError(t, err)
	assert.Equal(t, "faq-nap", resp.FAQID)
	assert.Equal(t, config.ModeGraphRAG, resp.Mode)
	assert.Equal(t, 3, resp.TotalSteps)
	assert.NotEmpty(t, resp.HTML)
	assert.Equal(t, int64(1), a.Metrics.Snapshot().TotalQueries)
}

func TestNew_Traditional(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mode = config.ModeTraditional
	cfg.Conversation.RenderHTML = false
	a := newTestApp(t, cfg)

	resp, err := a.Bot.Chat(context.Background(), "s1", "rút tiền về ngân hàng")
	require.NoError(t, err)
	assert.Equal(t, "faq-rut", resp.FAQID)
	assert.Equal(t, config.ModeTraditional, resp.Mode)
	assert.Empty(t, resp.HTML)
}

func TestNew_RedisAndSQLite(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "bot.db")
	a := newTestApp(t, cfg)
	ctx := context.Background()

	_, err = a.Bot.Chat(ctx, "s1", "Làm sao để rút tiền về ngân hàng?")
	require.NoError(t, err)

	assert.True(t, mr.Exists("faqgraph:session:s1"))
	assert.True(t, mr.Exists("faqgraph:answer:graphrag:lam sao de rut tien ve ngan hang"))

	turns, err := a.Bot.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "faq-rut", turns[0].FAQID)
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.Mode = "keyword"
	_, err := New(ctx, cfg, &log.NoOpLogger{})
	assert.ErrorContains(t, err, "invalid config")

	cfg = testConfig(t)
	cfg.DataPath = filepath.Join(t.TempDir(), "missing.json")
	_, err = New(ctx, cfg, &log.NoOpLogger{})
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Redis.Addr = "127.0.0.1:1"
	_, err = New(ctx, cfg, &log.NoOpLogger{})
	assert.ErrorContains(t, err, "redis")
}

func TestLoadFAQsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faqs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- id: faq-phi
  question: Phí rút tiền là bao nhiêu?
  answer: Miễn phí 5 lần đầu mỗi tháng.
`), 0o644))

	faqs, err := LoadFAQs(context.Background(), path, extract.New(extract.WithLogger(&log.NoOpLogger{})))
	require.NoError(t, err)
	require.Len(t, faqs, 1)
	assert.NotEmpty(t, faqs[0].Entities)

	_, err = LoadFAQs(context.Background(), "", nil)
	assert.Error(t, err)
}
