// Package lexical provides the text matching used by recall, the failure
// registry, and knowledge churn suppression. Matching is deliberately
// cheap: lowercase word overlap and character bigrams, no embeddings.
package lexical

import (
	"strings"
	"unicode"
)

// Words splits s into lowercase alphanumeric words. Punctuation is treated
// as a separator; empty tokens are dropped.
func Words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// WordSet returns the distinct lowercase words of s.
func WordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range Words(s) {
		set[w] = true
	}
	return set
}

// Overlap counts how many of the query words appear in the target set.
func Overlap(queryWords []string, target map[string]bool) int {
	n := 0
	for _, w := range queryWords {
		if target[w] {
			n++
		}
	}
	return n
}

// NearIdentical reports whether two strings are near-duplicates by shared
// bigram ratio (Jaccard > 0.95). Used to suppress churn when re-learning
// content that only differs in whitespace or trivial edits.
func NearIdentical(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == b {
		return true
	}
	if a == "" || b == "" {
		return false
	}

	bigramsA := bigrams(a)
	bigramsB := bigrams(b)
	if len(bigramsA) == 0 || len(bigramsB) == 0 {
		return a == b
	}

	shared := 0
	for bg := range bigramsA {
		if bigramsB[bg] {
			shared++
		}
	}

	union := len(bigramsA) + len(bigramsB) - shared
	if union == 0 {
		return true
	}
	return float64(shared)/float64(union) > 0.95
}

func bigrams(s string) map[string]bool {
	if len(s) < 2 {
		return nil
	}
	m := make(map[string]bool, len(s)-1)
	for i := 0; i < len(s)-1; i++ {
		m[s[i:i+2]] = true
	}
	return m
}
