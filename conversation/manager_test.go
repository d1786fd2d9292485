package conversation

import (
	"testing"

	"github.com/smallnest/faqgraph/rag"
	"github.com/smallnest/faqgraph/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const napAnswer = "Để nạp tiền vào ví:\nBước 1: Mở ứng dụng.\nBước 2: Chọn Nạp tiền.\nBước 3: Nhập số tiền và xác nhận."

var napFAQ = &rag.FAQ{ID: "faq-nap", Question: "Làm sao để nạp tiền vào ví?", Answer: napAnswer, Topic: "Nạp tiền"}

func trackedState(t *testing.T, m *Manager) *store.ConversationState {
	t.Helper()
	state := store.NewConversationState("s1")
	require.True(t, m.Begin(state, napFAQ, napFAQ.Question, napAnswer))
	return state
}

func TestManager_Begin(t *testing.T) {
	m := NewManager()

	state := trackedState(t, m)
	assert.True(t, state.Active)
	assert.Equal(t, 1, state.CurrentStep)
	assert.Len(t, state.Steps, 3)
	assert.Equal(t, "faq-nap", state.LastFAQID)
	assert.Equal(t, "Nạp tiền", state.LastTopic)
	assert.Equal(t, napFAQ.Question, state.LastQuestion)

	plain := &rag.FAQ{ID: "faq-phi", Entities: map[rag.EntityType][]string{rag.EntityTopic: {"rut tien"}}}
	assert.False(t, m.Begin(state, plain, "Phí rút tiền?", "Miễn phí."))
	assert.False(t, state.Active)
	assert.Empty(t, state.Steps)
	assert.Equal(t, "faq-phi", state.LastFAQID)
	assert.Equal(t, "rut tien", state.LastTopic)
}

func TestManager_ResumeWalksTheProcedure(t *testing.T) {
	m := NewManager()
	state := trackedState(t, m)

	reply, ok := m.Resume(state, Signal{Kind: SignalNext})
	require.True(t, ok)
	assert.Equal(t, 2, reply.Step)
	assert.Equal(t, 3, reply.Total)
	assert.Contains(t, reply.Text, "**Bước 2/3:** Chọn Nạp tiền.")
	assert.Contains(t, reply.Text, nextHint)

	reply, ok = m.Resume(state, Signal{Kind: SignalRepeat})
	require.True(t, ok)
	assert.Equal(t, 2, reply.Step)

	reply, ok = m.Resume(state, Signal{Kind: SignalGoto, Step: 1})
	require.True(t, ok)
	assert.Equal(t, 1, reply.Step)
	assert.Equal(t, 1, state.CurrentStep)

	reply, ok = m.Resume(state, Signal{Kind: SignalDoneStep, Step: 2})
	require.True(t, ok)
	assert.Equal(t, 3, reply.Step)
	assert.Contains(t, reply.Text, lastStepHint)

	reply, ok = m.Resume(state, Signal{Kind: SignalNext})
	require.True(t, ok)
	assert.True(t, reply.Completed)
	assert.Equal(t, CompletionMessage, reply.Text)
	assert.False(t, state.Active)
	assert.Nil(t, state.Steps)

	_, ok = m.Resume(state, Signal{Kind: SignalNext})
	assert.False(t, ok)
}

func TestManager_ResumeEdgeCases(t *testing.T) {
	m := NewManager()

	t.Run("goto out of range keeps position", func(t *testing.T) {
		state := trackedState(t, m)
		reply, ok := m.Resume(state, Signal{Kind: SignalGoto, Step: 7})
		require.True(t, ok)
		assert.Contains(t, reply.Text, "chỉ có 3 bước")
		assert.Equal(t, 1, state.CurrentStep)
		assert.True(t, state.Active)
	})

	t.Run("complete finishes early", func(t *testing.T) {
		state := trackedState(t, m)
		reply, ok := m.Resume(state, Signal{Kind: SignalComplete})
		require.True(t, ok)
		assert.True(t, reply.Completed)
		assert.False(t, state.Active)
	})

	t.Run("done last step finishes", func(t *testing.T) {
		state := trackedState(t, m)
		reply, ok := m.Resume(state, Signal{Kind: SignalDoneStep, Step: 3})
		require.True(t, ok)
		assert.True(t, reply.Completed)
	})

	t.Run("stuck and none go to retrieval", func(t *testing.T) {
		state := trackedState(t, m)
		_, ok := m.Resume(state, Signal{Kind: SignalStuck, Step: 2})
		assert.False(t, ok)
		_, ok = m.Resume(state, Signal{Kind: SignalNone})
		assert.False(t, ok)
		assert.True(t, state.Active)
	})

	t.Run("nothing tracked", func(t *testing.T) {
		_, ok := m.Resume(store.NewConversationState("s2"), Signal{Kind: SignalNext})
		assert.False(t, ok)
	})
}

func TestManager_RetrievalQuery(t *testing.T) {
	m := NewManager()

	t.Run("stuck appends the step", func(t *testing.T) {
		state := trackedState(t, m)
		q := m.RetrievalQuery(state, "bước 2 bị lỗi", Signal{Kind: SignalStuck, Step: 2})
		assert.Equal(t, "bước 2 bị lỗi Chọn Nạp tiền.", q)
	})

	t.Run("stuck without step uses the current one", func(t *testing.T) {
		state := trackedState(t, m)
		q := m.RetrievalQuery(state, "không thấy nút", Signal{Kind: SignalStuck})
		assert.Equal(t, "không thấy nút Mở ứng dụng. Nạp tiền", q)
	})

	t.Run("follow-up gets the previous topic", func(t *testing.T) {
		state := store.NewConversationState("s1")
		state.LastTopic = "Rút tiền"
		assert.Equal(t, "còn Vietcombank thì sao? Rút tiền", m.RetrievalQuery(state, "còn Vietcombank thì sao?", Signal{Kind: SignalNone}))
		assert.Equal(t, "còn chuyển tiền thì sao?", m.RetrievalQuery(state, "còn chuyển tiền thì sao?", Signal{Kind: SignalNone}))
		assert.Equal(t, "Làm sao đổi mật khẩu?", m.RetrievalQuery(state, "Làm sao đổi mật khẩu?", Signal{Kind: SignalNone}))
	})

	t.Run("no previous topic", func(t *testing.T) {
		state := store.NewConversationState("s1")
		assert.Equal(t, "còn Vietcombank thì sao?", m.RetrievalQuery(state, "còn Vietcombank thì sao?", Signal{Kind: SignalNone}))
	})
}

func TestIsFollowUp(t *testing.T) {
	assert.True(t, IsFollowUp("Còn BIDV thì sao?"))
	assert.True(t, IsFollowUp("nếu dùng thẻ tín dụng"))
	assert.True(t, IsFollowUp("Techcombank có được không?"))
	assert.False(t, IsFollowUp("Làm sao để liên kết ngân hàng với ví điện tử của tôi vậy bạn?"))
	assert.False(t, IsFollowUp("Phí rút tiền"))
}
