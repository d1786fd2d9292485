package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSteps(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   []string
	}{
		{
			name:   "step markers on lines",
			answer: "Để nạp tiền vào ví:\nBước 1: Mở ứng dụng.\nBước 2: Chọn Nạp tiền.\nBước 3: Nhập số tiền và xác nhận.",
			want:   []string{"Mở ứng dụng.", "Chọn Nạp tiền.", "Nhập số tiền và xác nhận."},
		},
		{
			name:   "inline bold markers",
			answer: "**Bước 1:** Mở ứng dụng. **Bước 2:** Chọn Liên kết ngân hàng.",
			want:   []string{"Mở ứng dụng.", "Chọn Liên kết ngân hàng."},
		},
		{
			name:   "trailing note is not part of the last step",
			answer: "Bước 1: Mở ứng dụng\nBước 2: Chọn Rút tiền\n\nLưu ý: miễn phí 5 giao dịch đầu tiên.",
			want:   []string{"Mở ứng dụng", "Chọn Rút tiền"},
		},
		{
			name:   "numbered list fallback",
			answer: "Bạn làm như sau:\n1. Mở ứng dụng\n2) Chọn Chuyển tiền\n3. Nhập số điện thoại",
			want:   []string{"Mở ứng dụng", "Chọn Chuyển tiền", "Nhập số điện thoại"},
		},
		{
			name:   "restarted numbering ends the list",
			answer: "**Trường hợp 1: Vietcombank**\nBước 1: Mở VCB Digibank\nBước 2: Chọn Ví điện tử\n\n**Trường hợp 2: BIDV**\nBước 1: Mở BIDV SmartBanking",
			want:   []string{"Mở VCB Digibank", "Chọn Ví điện tử"},
		},
		{
			name:   "single step is not a procedure",
			answer: "Bước 1: Liên hệ tổng đài 1900 xxxx.",
		},
		{
			name:   "plain answer",
			answer: "Phí rút tiền là 0đ cho 5 giao dịch đầu tiên mỗi tháng.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSteps(tt.answer))
		})
	}
}
