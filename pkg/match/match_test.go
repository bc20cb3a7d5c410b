package match

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"game-hunter/pkg/textnorm"
)

var (
	steamPolicy      = Policy{Words: WordsHalf, MinSimilarity: 0.40}
	cheapsharkPolicy = Policy{Words: WordsHalf, MinSimilarity: 0.35}
	igPolicy         = Policy{Words: WordsNone, MinSimilarity: 0.50}
	gmgPolicy        = Policy{Words: WordsHalf, MinSimilarity: 0.60}
	nuuvemPolicy     = Policy{Words: WordsAll, MinSimilarity: 0.32}
)

func TestPolicyMatches(t *testing.T) {
	policies := map[string]Policy{
		"steam":          steamPolicy,
		"cheapshark":     cheapsharkPolicy,
		"instantgaming":  igPolicy,
		"greenmangaming": gmgPolicy,
		"nuuvem":         nuuvemPolicy,
	}

	tests := []struct {
		name  string
		query string
		title string
		want  map[string]bool
	}{
		{
			name:  "substring",
			query: "witcher 3",
			title: "The Witcher 3: Wild Hunt",
			want:  map[string]bool{"steam": true, "cheapshark": true, "instantgaming": true, "greenmangaming": true, "nuuvem": true},
		},
		{
			name:  "short query inside sequel",
			query: "portal",
			title: "Portal 2",
			want:  map[string]bool{"steam": true, "cheapshark": true, "instantgaming": true, "greenmangaming": true, "nuuvem": true},
		},
		{
			name:  "sequel query against original",
			query: "portal 2",
			title: "Portal",
			want:  map[string]bool{"steam": true, "cheapshark": true, "instantgaming": true, "greenmangaming": true, "nuuvem": true},
		},
		{
			name:  "one of three words",
			query: "resident evil village",
			title: "Evil Genius 2: World Domination",
			want:  map[string]bool{"steam": true, "cheapshark": true, "instantgaming": false, "greenmangaming": true, "nuuvem": false},
		},
		{
			name:  "prefix similarity only",
			query: "celeste",
			title: "Celestial Command",
			want:  map[string]bool{"steam": true, "cheapshark": true, "instantgaming": true, "greenmangaming": false, "nuuvem": true},
		},
		{
			name:  "unrelated",
			query: "halo",
			title: "Minecraft",
			want:  map[string]bool{"steam": false, "cheapshark": false, "instantgaming": false, "greenmangaming": false, "nuuvem": false},
		},
	}

	for _, tt := range tests {
		for store, policy := range policies {
			t.Run(tt.name+"/"+store, func(t *testing.T) {
				if got := policy.Matches(tt.query, tt.title); got != tt.want[store] {
					t.Errorf("Matches(%q, %q) = %v, want %v (words=%s, min=%.2f, ratio=%.3f)",
						tt.query, tt.title, got, tt.want[store], policy.Words, policy.MinSimilarity, Ratio(tt.query, tt.title))
				}
			})
		}
	}
}

func TestPolicyMatchesEmpty(t *testing.T) {
	p := Policy{Words: WordsHalf, MinSimilarity: 0}
	if p.Matches("", "Portal 2") {
		t.Error("empty query should never match")
	}
	if p.Matches("portal", "") {
		t.Error("empty title should never match")
	}
	if p.Matches("!!!", "Portal") {
		t.Error("query that normalizes to nothing should never match")
	}
}

func TestSignificantWords(t *testing.T) {
	got := SignificantWords("the witcher 3 a of")
	want := []string{"the", "witcher", "of"}
	if len(got) != len(want) {
		t.Fatalf("SignificantWords = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"abcd", "bcde", 0.75},
		{"abc", "xyz", 0},
		{"portal", "portal", 1},
		{"celeste", "celestial command", 0.5},
		{"", "", 1},
	}
	for _, tt := range tests {
		if got := Ratio(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMatchesProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	for name, p := range map[string]Policy{
		"steam":          steamPolicy,
		"cheapshark":     cheapsharkPolicy,
		"instantgaming":  igPolicy,
		"greenmangaming": gmgPolicy,
		"nuuvem":         nuuvemPolicy,
	} {
		properties.Property(name+" matches a title equal to the query", prop.ForAll(
			func(s string) bool {
				return textnorm.Normalize(s) == "" || p.Matches(s, s)
			},
			gen.AnyString(),
		))
	}

	properties.Property("empty query never matches", prop.ForAll(
		func(s string) bool {
			return !steamPolicy.Matches("", s)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
