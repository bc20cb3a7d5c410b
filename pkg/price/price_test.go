package price

import (
	"fmt"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{"1.299,99", 1299.99, true},
		{"$49.99", 49.99, true},
		{"", 0, false},
		{"Gratis", 0, false},
		{"1,99 €", 1.99, true},
		{"COL$ 219.900", 219900, true},
		{"COL$ 219.900,00", 219900, true},
		{"R$ 1.049,90", 1049.9, true},
		{"1,299.99", 1299.99, true},
		{"1,299,999", 1299999, true},
		{"12", 12, true},
		{"59.99.", 59.99, true},
		{"$.99", 0.99, true},
		{"0,00", 0, true},
		{"...", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := Parse(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Parse(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCurrency(t *testing.T) {
	tests := map[string]string{
		"COL$ 219.900": "COP",
		"R$ 49,90":     "BRL",
		"19,99 €":      "EUR",
		"U$S 9.99":     "USD",
		"USD 9.99":     "USD",
		"£12.99":       "GBP",
		"$ 9.99":       "",
		"9.99":         "",
	}
	for raw, want := range tests {
		if got := Currency(raw); got != want {
			t.Errorf("Currency(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestParseWithCurrency(t *testing.T) {
	v, code, ok := ParseWithCurrency("$ 59.900", "COP")
	if !ok || v != 59900 || code != "COP" {
		t.Errorf("got (%v, %q, %v), want (59900, COP, true)", v, code, ok)
	}
	if _, _, ok := ParseWithCurrency("agotado", "EUR"); ok {
		t.Error("expected no price for text without digits")
	}
}

func TestDiscount(t *testing.T) {
	ptr := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		final    float64
		original *float64
		supplied int
		wantOrig *float64
		wantPct  int
	}{
		{"derived", 39.99, ptr(59.99), 0, ptr(59.99), 33},
		{"equal prices discard original", 14.99, ptr(14.99), 0, nil, 0},
		{"original lower than final", 20, ptr(10), 0, nil, 0},
		{"no original", 9.99, nil, 0, nil, 0},
		{"supplied percentage wins", 7.5, ptr(10), 26, ptr(10), 26},
		{"supplied percentage ignored without original", 7.5, nil, 25, nil, 0},
		{"free with original", 0, ptr(19.99), 0, ptr(19.99), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig, pct := Discount(tt.final, tt.original, tt.supplied)
			if pct != tt.wantPct {
				t.Errorf("discount = %d, want %d", pct, tt.wantPct)
			}
			switch {
			case tt.wantOrig == nil && orig != nil:
				t.Errorf("original = %v, want nil", *orig)
			case tt.wantOrig != nil && orig == nil:
				t.Errorf("original = nil, want %v", *tt.wantOrig)
			case tt.wantOrig != nil && *orig != *tt.wantOrig:
				t.Errorf("original = %v, want %v", *orig, *tt.wantOrig)
			}
		})
	}
}

func TestParseProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("comma-decimal thousands format reads back", prop.ForAll(
		func(whole int, cents int) bool {
			raw := fmt.Sprintf("€ %s,%02d", groupThousands(whole, "."), cents)
			got, ok := Parse(raw)
			want := float64(whole) + float64(cents)/100
			return ok && math.Abs(got-want) < 1e-6
		},
		gen.IntRange(1000, 9999999),
		gen.IntRange(0, 99),
	))

	properties.Property("period-decimal format reads back", prop.ForAll(
		func(whole int, cents int) bool {
			raw := fmt.Sprintf("$%d.%02d", whole, cents)
			got, ok := Parse(raw)
			want := float64(whole) + float64(cents)/100
			return ok && math.Abs(got-want) < 1e-6
		},
		gen.IntRange(0, 999),
		gen.IntRange(0, 99),
	))

	properties.Property("discount never exceeds 100 and original always exceeds final", prop.ForAll(
		func(final, original float64) bool {
			orig, pct := Discount(final, &original, 0)
			if pct < 0 || pct > 100 {
				return false
			}
			return orig == nil || *orig > final
		},
		gen.Float64Range(0, 500),
		gen.Float64Range(0, 500),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func groupThousands(v int, sep string) string {
	s := fmt.Sprintf("%d", v)
	out := ""
	for len(s) > 3 {
		out = sep + s[len(s)-3:] + out
		s = s[:len(s)-3]
	}
	return s + out
}

func TestRegionCurrency(t *testing.T) {
	tests := map[string]string{"co": "COP", "BR": "BRL", "es": "EUR", "zz": "USD", "": "USD"}
	for cc, want := range tests {
		if got := RegionCurrency(cc); got != want {
			t.Errorf("RegionCurrency(%q) = %q, want %q", cc, got, want)
		}
	}
}
