package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectContinuation(t *testing.T) {
	tests := []struct {
		msg  string
		want Signal
	}{
		{"tiếp", Signal{Kind: SignalNext}},
		{"Bước tiếp theo là gì?", Signal{Kind: SignalNext}},
		{"xong rồi", Signal{Kind: SignalNext}},
		{"ok", Signal{Kind: SignalNext}},
		{"Được rồi", Signal{Kind: SignalNext}},
		{"rồi", Signal{Kind: SignalNext}},
		{"rồi bạn", Signal{Kind: SignalNext}},
		{"dạ rồi nhé", Signal{Kind: SignalNext}},
		{"cảm ơn, tiếp đi", Signal{Kind: SignalNext}},
		{"ok cảm ơn", Signal{Kind: SignalNone}},
		{"cảm ơn bạn nhiều", Signal{Kind: SignalNone}},
		{"xong rồi, cảm ơn", Signal{Kind: SignalComplete}},
		{"rồi, thanks", Signal{Kind: SignalComplete}},
		{"mất tiền rồi", Signal{Kind: SignalNone}},
		{"tôi đã xong bước 2", Signal{Kind: SignalDoneStep, Step: 2}},
		{"Bước 3 xong rồi", Signal{Kind: SignalDoneStep, Step: 3}},
		{"hoàn thành bước hai", Signal{Kind: SignalDoneStep, Step: 2}},
		{"quay lại bước 1", Signal{Kind: SignalGoto, Step: 1}},
		{"Bước 4 là gì vậy?", Signal{Kind: SignalGoto, Step: 4}},
		{"nhắc lại giúp mình", Signal{Kind: SignalRepeat}},
		{"mình chưa hiểu", Signal{Kind: SignalRepeat}},
		{"xong hết rồi", Signal{Kind: SignalComplete}},
		{"Thành công rồi, cảm ơn", Signal{Kind: SignalComplete}},
		{"bước 2 bị lỗi", Signal{Kind: SignalStuck, Step: 2}},
		{"không thấy nút Nạp tiền", Signal{Kind: SignalStuck}},
		{"giao dịch không thành công", Signal{Kind: SignalStuck}},
		{"Làm sao để nạp tiền vào ví?", Signal{Kind: SignalNone}},
		{"Phí rút tiền về Vietcombank là bao nhiêu vậy bạn?", Signal{Kind: SignalNone}},
		{"", Signal{Kind: SignalNone}},
		{"???", Signal{Kind: SignalNone}},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectContinuation(tt.msg))
		})
	}
}

func TestDetectContinuation_TroubleWinsOverStepReference(t *testing.T) {
	sig := DetectContinuation("mình làm xong bước 1 nhưng bước 2 báo lỗi")
	assert.Equal(t, SignalStuck, sig.Kind)
	assert.Equal(t, 1, sig.Step)
}

func TestDetectContinuation_AnswerIsNotAnError(t *testing.T) {
	assert.Equal(t, SignalRepeat, DetectContinuation("trả lời lại giúp mình").Kind)
}
