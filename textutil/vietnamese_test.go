package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "chuyển tiền", Normalize("  Chuyển   TIỀN \n"))
	assert.Equal(t, "", Normalize("   "))
}

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Chuyển tiền", "Chuyen tien"},
		{"Đăng ký", "Dang ky"},
		{"điện thoại", "dien thoai"},
		{"Ví điện tử", "Vi dien tu"},
		{"abc 123", "abc 123"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RemoveDiacritics(tt.in))
		})
	}
}

func TestFoldAndWords(t *testing.T) {
	assert.Equal(t, "nap tien vao vi", Fold("Nạp  tiền vào Ví"))
	assert.Equal(t, []string{"loi", "e01", "khi", "rut", "tien"}, Words("Lỗi E01, khi rút tiền?"))
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Tôi muốn chuyển tiền")
	assert.Contains(t, tokens, "chuyen")
	assert.Contains(t, tokens, "tien")
	assert.Contains(t, tokens, "chuyen_tien")
	assert.NotContains(t, tokens, "toi")
	assert.NotContains(t, tokens, "toi_muon")
	assert.Empty(t, Tokenize("tôi muốn"))
}

func TestContainsPhrase(t *testing.T) {
	assert.True(t, ContainsPhrase("Làm sao để chuyển tiền đến ngân hàng?", "Chuyển Tiền"))
	assert.False(t, ContainsPhrase("chuyển tiềnxx", "chuyển tiền"))
	assert.False(t, ContainsPhrase("abc", ""))
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, Jaccard("chuyển tiền ngân hàng", "Chuyen tien ngan hang"), 1e-9)
	assert.InDelta(t, 1.0/3, Jaccard("nạp tiền", "rút tiền"), 1e-9)
	assert.Equal(t, 0.0, Jaccard("", ""))
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("toi"))
	assert.False(t, IsStopWord("tien"))
}
