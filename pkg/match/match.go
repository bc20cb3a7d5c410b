// Package match decides whether a scraped listing title refers to the game a
// caller searched for.
package match

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"game-hunter/pkg/textnorm"
)

// WordRule selects how many significant query words must appear in a title.
type WordRule int

const (
	// WordsNone skips the word overlap check.
	WordsNone WordRule = iota
	// WordsHalf needs half of the significant words, rounded down, at least one.
	WordsHalf
	// WordsAll needs every significant word.
	WordsAll
)

func (w WordRule) String() string {
	switch w {
	case WordsHalf:
		return "half"
	case WordsAll:
		return "all"
	default:
		return "none"
	}
}

// Policy is the per-store matching configuration.
type Policy struct {
	Words         WordRule
	MinSimilarity float64
}

// Matches reports whether title plausibly refers to the query. The query is
// expected in normalized form; it is normalized again so raw input is safe too.
func (p Policy) Matches(query, title string) bool {
	q := textnorm.Normalize(query)
	t := textnorm.Normalize(title)
	if q == "" || t == "" {
		return false
	}

	if strings.Contains(t, q) {
		return true
	}

	if p.Words != WordsNone {
		words := SignificantWords(q)
		if len(words) > 0 {
			found := 0
			for _, w := range words {
				if strings.Contains(t, w) {
					found++
				}
			}
			need := len(words)
			if p.Words == WordsHalf {
				need = max(1, len(words)/2)
			}
			if found >= need {
				return true
			}
		}
	}

	return Ratio(q, t) >= p.MinSimilarity
}

// SignificantWords returns the words of s that are at least two characters long.
func SignificantWords(s string) []string {
	fields := strings.Fields(s)
	words := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			words = append(words, f)
		}
	}
	return words
}

// Ratio is the sequence-matcher similarity of a and b in [0,1]: twice the
// number of matched characters over the total length of both strings.
func Ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}
