package research

import (
	"fmt"
	"strings"
)

// QA is one question/answer pair of an aggregate result.
type QA struct {
	Question string
	Answer   string
}

// Combine renders pairs as "Q: ...\nA: ..." blocks joined by blank lines, in
// the order given (arrival order).
func Combine(pairs []QA) string {
	blocks := make([]string, 0, len(pairs))
	for _, p := range pairs {
		blocks = append(blocks, fmt.Sprintf("Q: %s\nA: %s", p.Question, p.Answer))
	}
	return strings.Join(blocks, "\n\n")
}

// ParseCombined splits combined text back into its pairs. It accepts exactly
// the format Combine produces.
func ParseCombined(s string) []QA {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var pairs []QA
	for _, block := range strings.Split(s, "\n\n") {
		q, a, found := strings.Cut(block, "\nA: ")
		if !found {
			continue
		}
		pairs = append(pairs, QA{
			Question: strings.TrimPrefix(q, "Q: "),
			Answer:   a,
		})
	}
	return pairs
}
