package memory

import (
	"context"
	"testing"

	"github.com/smallnest/faqgraph/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()

	_, err := s.Load(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	state := store.NewConversationState("s1")
	state.AddMessage(store.RoleUser, "xin chào")
	state.Steps = []string{"Mở ứng dụng", "Chọn Nạp tiền"}
	state.CurrentStep = 1
	state.Active = true
	require.NoError(t, s.Save(ctx, state))

	// mutations after Save are not visible
	state.CurrentStep = 2

	loaded, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.CurrentStep)
	assert.Equal(t, state.Steps, loaded.Steps)
	require.Len(t, loaded.History, 1)
	assert.Equal(t, "xin chào", loaded.History[0].Content)

	require.NoError(t, s.Delete(ctx, "s1"))
	_, err = s.Load(ctx, "s1")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestAnswerCache(t *testing.T) {
	ctx := context.Background()
	c := NewAnswerCache()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", &store.CachedAnswer{Answer: "Miễn phí", FAQID: "faq-1"}))
	a, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "faq-1", a.FAQID)
}

func TestTranscriptStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTranscriptStore()

	t1 := store.NewTurn("s1", "q1", "a1")
	t2 := store.NewTurn("s2", "q2", "a2")
	t3 := store.NewTurn("s1", "q3", "a3")
	for _, turn := range []store.Turn{t1, t2, t3} {
		require.NoError(t, ts.Append(ctx, turn))
	}

	turns, err := ts.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "q1", turns[0].Question)
	assert.Equal(t, "q3", turns[1].Question)

	require.NoError(t, ts.UpdateFeedback(ctx, t3.ID, "helpful"))
	turns, _ = ts.List(ctx, "s1")
	assert.Equal(t, "helpful", turns[1].Feedback)

	assert.ErrorIs(t, ts.UpdateFeedback(ctx, "nope", "x"), store.ErrTurnNotFound)
}
