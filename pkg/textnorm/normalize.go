// Package textnorm canonicalises titles so that listings scraped from different
// stores can be compared and deduplicated.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// A chained transformer carries state, so one is built per call.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
}

// Normalize lower-cases s, strips diacritics, replaces everything outside
// [a-z0-9 ] with a space and collapses runs of whitespace.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	folded, _, err := transform.String(stripMarks(), strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(folded))
	space := true // suppresses leading and repeated spaces
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Equal reports whether two titles share the same normalized form.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
