// Package price turns locale-formatted price strings into amounts and
// currency codes.
package price

import (
	"math"
	"strconv"
	"strings"
)

// Parse extracts a numeric amount from raw. It keeps digits, '.' and ',' and
// resolves which separator is the decimal point. The boolean is false when no
// amount could be read; callers must treat that as "no price", never as zero.
func Parse(raw string) (float64, bool) {
	var b strings.Builder
	digits := false
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits = true
			b.WriteRune(r)
		case r == '.' || r == ',':
			b.WriteRune(r)
		}
	}
	if !digits {
		return 0, false
	}

	s := strings.TrimRight(b.String(), ".,")
	hasComma := strings.Contains(s, ",")
	hasPeriod := strings.Contains(s, ".")

	switch {
	case hasComma && hasPeriod:
		last := strings.LastIndexAny(s, ".,")
		whole := strings.NewReplacer(".", "", ",", "").Replace(s[:last])
		s = whole + "." + s[last+1:]
	case hasComma:
		s = resolveSingle(s, ",")
	case hasPeriod:
		s = resolveSingle(s, ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// resolveSingle handles strings that use only one kind of separator. A single
// comma is a decimal comma. A 3-digit final group after periods, or after more
// than one comma, is thousands grouping. Otherwise the last separator is the
// decimal point.
func resolveSingle(s, sep string) string {
	groups := strings.Split(s, sep)
	lastGroup := groups[len(groups)-1]

	if sep == "," && len(groups) == 2 {
		return groups[0] + "." + lastGroup
	}
	if len(lastGroup) == 3 {
		return strings.Join(groups, "")
	}
	return strings.Join(groups[:len(groups)-1], "") + "." + lastGroup
}

// Round2 rounds v to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Discount reconciles an original price with a final price. The original is
// kept only when it is strictly higher than the final price. A positive
// supplied percentage wins over the derived one.
func Discount(final float64, original *float64, supplied int) (*float64, int) {
	if original == nil {
		return nil, 0
	}
	orig := Round2(*original)
	if orig <= final || orig <= 0 {
		return nil, 0
	}
	if supplied > 0 && supplied <= 100 {
		return &orig, supplied
	}
	pct := int(math.Round((1 - final/orig) * 100))
	return &orig, min(max(pct, 0), 100)
}
