package faq

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// normalize case-folds, strips punctuation, and collapses whitespace so
// "Where do I register?!" and "where do i register" compare equal.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			// punctuation dropped
		}
	}
	return strings.TrimSpace(b.String())
}

// similarity scores two normalized strings on a 0-100 scale: the better of
// a normalized edit-distance ratio and a token-set overlap. The edit ratio
// catches typos; the token overlap catches reordered phrasings.
func similarity(a, b string) int {
	if a == "" || b == "" {
		if a == b {
			return 100
		}
		return 0
	}
	if a == b {
		return 100
	}

	edit := editRatio(a, b)
	tokens := tokenSetRatio(a, b)
	if tokens > edit {
		return tokens
	}
	return edit
}

func editRatio(a, b string) int {
	dist := levenshtein.ComputeDistance(a, b)
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 100
	}
	return int(100 * (float64(longest) - float64(dist)) / float64(longest))
}

func tokenSetRatio(a, b string) int {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	common := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			common++
		}
	}
	union := len(setA) + len(setB) - common
	return int(100 * float64(common) / float64(union))
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range strings.Fields(s) {
		set[t] = struct{}{}
	}
	return set
}
