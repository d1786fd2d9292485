package conversation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/smallnest/faqgraph/textutil"
)

// SignalKind classifies a message sent while a procedure is being followed.
type SignalKind string

const (
	SignalNone     SignalKind = "none"
	SignalNext     SignalKind = "next"
	SignalDoneStep SignalKind = "done_step"
	SignalGoto     SignalKind = "goto_step"
	SignalRepeat   SignalKind = "repeat"
	SignalComplete SignalKind = "complete"
	SignalStuck    SignalKind = "stuck"
)

// Signal is the result of DetectContinuation. Step is the step number the
// message refers to, 0 when it names none.
type Signal struct {
	Kind SignalKind `json:"kind"`
	Step int        `json:"step,omitempty"`
}

// maxShortWords bounds messages that may be read as bare acknowledgements.
const maxShortWords = 6

const stepNum = `(\d{1,2}|mot|hai|ba|bon|tu|nam|bay|tam|chin|muoi)`

var (
	stepRefRe = regexp.MustCompile(`\bbuoc (?:so )?` + stepNum + `\b`)

	troubleRe = regexp.MustCompile(`\b(?:bi loi|gap loi|bao loi|loi|khong duoc|khong the|khong thay|khong hien|bi ket|ket o|mac o|that bai|khong thanh cong|van de)\b`)

	doneStepRe = regexp.MustCompile(`\b(?:xong|lam xong|da lam|da xong|hoan thanh|lam duoc|lam roi) buoc (?:so )?` + stepNum + `\b` +
		`|\bbuoc (?:so )?` + stepNum + ` (?:xong|da xong|lam xong|roi|ok|oke|duoc roi)\b`)

	completeRe = regexp.MustCompile(`\b(?:xong het|xong tat ca|da xong tat ca|lam xong het|hoan thanh|hoan tat|thanh cong|xong xuoi)\b`)

	repeatRe = regexp.MustCompile(`\b(?:nhac lai|lap lai|noi lai|doc lai|xem lai|chua hieu|khong hieu|giai thich lai|tra loi lai|buoc nay)\b`)

	nextRe = regexp.MustCompile(`\b(?:tiep|tiep theo|tiep tuc|buoc tiep theo|buoc sau|sau do|roi sao nua|next|continue|xong|xong roi|da xong|lam xong|ok|oke|okay|duoc roi|lam roi|da lam)\b`)

	// a bare "rồi", optionally softened
	ackRe = regexp.MustCompile(`^(?:(?:da|vang|ok) )?roi(?: (?:nhe|nha|a|ban|ad|em|anh|chi))*$`)

	thanksRe   = regexp.MustCompile(`\b(?:cam on|thank|thanks|tks)\b`)
	doneRe     = regexp.MustCompile(`\b(?:xong|roi|lam duoc|duoc roi)\b`)
	continueRe = regexp.MustCompile(`\b(?:tiep|tiep theo|tiep tuc|buoc sau|sau do|next|continue)\b`)

	nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

var numberWords = map[string]int{
	"mot": 1, "hai": 2, "ba": 3, "bon": 4, "tu": 4, "nam": 5,
	"bay": 7, "tam": 8, "chin": 9, "muoi": 10,
}

// DetectContinuation reads msg as a reaction to a step-by-step answer.
// Trouble reports win over everything else, then explicit step references,
// then completion, repeat, thanks and next; the last four only for short
// messages. Thanks after "xong" or "rồi" completes the procedure; plain
// thanks is not a signal unless it also asks to continue.
func DetectContinuation(msg string) Signal {
	s := strings.TrimSpace(nonWordRe.ReplaceAllString(textutil.Fold(msg), " "))
	if s == "" {
		return Signal{Kind: SignalNone}
	}
	short := len(strings.Fields(s)) <= maxShortWords+2

	if troubleRe.MatchString(strings.ReplaceAll(s, "tra loi", "")) {
		return Signal{Kind: SignalStuck, Step: stepRef(s)}
	}
	if m := doneStepRe.FindStringSubmatch(s); m != nil {
		return Signal{Kind: SignalDoneStep, Step: firstNumber(m[1:])}
	}
	if m := stepRefRe.FindStringSubmatch(s); m != nil && short {
		return Signal{Kind: SignalGoto, Step: parseStepNumber(m[1])}
	}
	if !short {
		return Signal{Kind: SignalNone}
	}
	if completeRe.MatchString(s) {
		return Signal{Kind: SignalComplete}
	}
	if repeatRe.MatchString(s) {
		return Signal{Kind: SignalRepeat}
	}
	if thanksRe.MatchString(s) {
		if doneRe.MatchString(s) {
			return Signal{Kind: SignalComplete}
		}
		if !continueRe.MatchString(s) {
			return Signal{Kind: SignalNone}
		}
	}
	if ackRe.MatchString(s) {
		return Signal{Kind: SignalNext}
	}
	if len(strings.Fields(s)) <= maxShortWords && nextRe.MatchString(s) {
		return Signal{Kind: SignalNext}
	}
	return Signal{Kind: SignalNone}
}

func stepRef(s string) int {
	if m := stepRefRe.FindStringSubmatch(s); m != nil {
		return parseStepNumber(m[1])
	}
	return 0
}

func firstNumber(groups []string) int {
	for _, g := range groups {
		if g != "" {
			return parseStepNumber(g)
		}
	}
	return 0
}

func parseStepNumber(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return numberWords[s]
}
