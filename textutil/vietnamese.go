// Package textutil normalises Vietnamese text for pattern matching and
// sparse retrieval.
//
// All matching in faqgraph runs on folded text: NFC-normalised, lower-cased,
// with tone marks and the đ stroke removed, so "Chuyển tiền" and "chuyen tien"
// compare equal.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFC, lower-cases and collapses whitespace.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// RemoveDiacritics strips combining marks and maps đ/Đ to d/D.
func RemoveDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r == 'đ':
			b.WriteRune('d')
		case r == 'Đ':
			b.WriteRune('D')
		default:
			b.WriteRune(r)
		}
	}
	return norm.NFC.String(b.String())
}

// Fold returns the canonical matching form of s.
func Fold(s string) string {
	return RemoveDiacritics(Normalize(s))
}

// Words splits s into folded alphanumeric words.
func Words(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Tokenize returns the content words of s plus bigrams of adjacent syllables
// joined with "_". Vietnamese compounds are mostly two syllables
// ("chuyen_tien", "ngan_hang"), so bigrams stand in for a word segmenter.
func Tokenize(s string) []string {
	words := Words(s)
	tokens := make([]string, 0, len(words)*2)
	for _, w := range words {
		if !IsStopWord(w) {
			tokens = append(tokens, w)
		}
	}
	for i := 0; i+1 < len(words); i++ {
		if IsStopWord(words[i]) && IsStopWord(words[i+1]) {
			continue
		}
		tokens = append(tokens, words[i]+"_"+words[i+1])
	}
	return tokens
}

// ContainsPhrase reports whether phrase occurs in text on word boundaries,
// comparing folded forms.
func ContainsPhrase(text, phrase string) bool {
	p := strings.Join(Words(phrase), " ")
	if p == "" {
		return false
	}
	t := " " + strings.Join(Words(text), " ") + " "
	return strings.Contains(t, " "+p+" ")
}

// Jaccard returns the Jaccard similarity of the content-word sets of a and b.
func Jaccard(a, b string) float64 {
	setA := contentSet(a)
	setB := contentSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	inter := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func contentSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range Words(s) {
		if !IsStopWord(w) {
			set[w] = struct{}{}
		}
	}
	return set
}

// folded stop-words: pronouns, particles and filler common in chat messages
var stopWords = map[string]struct{}{
	"a": {}, "ah": {}, "ak": {}, "anh": {}, "ban": {}, "bi": {}, "cac": {}, "cai": {},
	"chi": {}, "cho": {}, "co": {}, "con": {}, "cua": {}, "da": {}, "dang": {}, "de": {},
	"di": {}, "do": {}, "duoc": {}, "em": {}, "gi": {}, "ha": {}, "hay": {}, "la": {},
	"lam": {}, "minh": {}, "mot": {}, "muon": {}, "nao": {}, "nay": {}, "nhe": {},
	"nhi": {}, "nhu": {}, "nhung": {}, "o": {}, "oi": {}, "ra": {}, "roi": {}, "sao": {},
	"se": {}, "thi": {}, "the": {}, "toi": {}, "trong": {}, "va": {}, "vao": {}, "vay": {},
	"voi": {}, "vui": {}, "long": {}, "xin": {}, "u": {}, "ui": {}, "khong": {}, "can": {},
}

// IsStopWord reports whether the folded word w carries no retrieval signal.
func IsStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}
