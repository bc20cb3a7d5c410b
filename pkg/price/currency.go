package price

import "strings"

// currencyMarkers is ordered so that longer, more specific markers win over
// their suffixes (COL$ before R$ before $).
var currencyMarkers = []struct {
	marker string
	code   string
}{
	{"COL$", "COP"},
	{"COP", "COP"},
	{"R$", "BRL"},
	{"BRL", "BRL"},
	{"U$S", "USD"},
	{"US$", "USD"},
	{"USD", "USD"},
	{"€", "EUR"},
	{"EUR", "EUR"},
	{"£", "GBP"},
	{"GBP", "GBP"},
	{"MX$", "MXN"},
	{"MXN", "MXN"},
	{"ARS", "ARS"},
	{"CLP", "CLP"},
}

// Currency returns the ISO code named by a symbol or code inside raw. A bare
// "$" is ambiguous across the stores' regions and yields "".
func Currency(raw string) string {
	upper := strings.ToUpper(raw)
	for _, m := range currencyMarkers {
		if strings.Contains(upper, m.marker) {
			return m.code
		}
	}
	return ""
}

// ParseWithCurrency parses the amount in raw and detects its currency, using
// fallback when raw carries no unambiguous marker.
func ParseWithCurrency(raw, fallback string) (float64, string, bool) {
	v, ok := Parse(raw)
	if !ok {
		return 0, "", false
	}
	code := Currency(raw)
	if code == "" {
		code = fallback
	}
	return v, code, true
}
