// Package answer centralizes answer-letter extraction. Every strategy
// funnels model output through the same grammar: optional whitespace, one
// letter A-J, optional trailing punctuation.
package answer

import (
	"regexp"
	"strings"
)

var (
	// letterPattern matches a leading answer letter: optional whitespace,
	// one uppercase letter A-J, then punctuation, whitespace, or end.
	letterPattern = regexp.MustCompile(`^\s*([A-J])(?:[.)\s:]|$)`)

	// choicePattern matches the enumeration prefix of a choice:
	// "A. text", "B. text", etc.
	choicePattern = regexp.MustCompile(`^([A-J])\.\s*`)
)

// ExtractLetter pulls the answer letter from a model response, falling
// back to def when the response has no extractable letter.
func ExtractLetter(response, def string) string {
	m := letterPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(response)))
	if m == nil {
		return def
	}
	return m[1]
}

// ChoiceLetter returns the enumeration letter of a choice ("B. foo" ->
// "B") and whether one was present.
func ChoiceLetter(choice string) (string, bool) {
	m := choicePattern.FindStringSubmatch(strings.TrimSpace(choice))
	if m == nil {
		return "", false
	}
	return m[1], true
}
