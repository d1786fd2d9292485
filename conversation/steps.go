package conversation

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	stepMarkerRe = regexp.MustCompile(`(?i)(?:^|[\s*>#•\-])\**b(?:ước|uoc)\s+(\d{1,2})\s*\**\s*[:.)\-–]\s*\**`)
	numberedRe   = regexp.MustCompile(`(?m)^\s*(\d{1,2})[.)]\s+(.+?)\s*$`)
)

// ParseSteps extracts the ordered steps of an answer. "Bước N:" markers are
// used when present, a numbered list otherwise. Numbering must increase; a
// restart (a second case with its own "Bước 1") ends the list. Fewer than two
// steps is not a procedure and yields nil.
func ParseSteps(answer string) []string {
	text := norm.NFC.String(answer)
	if steps := markerSteps(text); len(steps) >= 2 {
		return steps
	}
	if steps := numberedSteps(text); len(steps) >= 2 {
		return steps
	}
	return nil
}

func markerSteps(text string) []string {
	locs := stepMarkerRe.FindAllStringSubmatchIndex(text, -1)
	var steps []string
	last := 0
	for i, loc := range locs {
		n, _ := strconv.Atoi(text[loc[2]:loc[3]])
		if n <= last {
			break
		}
		last = n

		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := text[loc[1]:end]
		// a blank line ends the step; what follows is a note or another case
		if idx := strings.Index(body, "\n\n"); idx >= 0 {
			body = body[:idx]
		}
		if step := cleanStep(body); step != "" {
			steps = append(steps, step)
		}
	}
	return steps
}

func numberedSteps(text string) []string {
	var steps []string
	last := 0
	for _, m := range numberedRe.FindAllStringSubmatch(text, -1) {
		n, _ := strconv.Atoi(m[1])
		if n <= last {
			break
		}
		last = n
		if step := cleanStep(m[2]); step != "" {
			steps = append(steps, step)
		}
	}
	return steps
}

func cleanStep(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*")
	return strings.Join(strings.Fields(s), " ")
}
