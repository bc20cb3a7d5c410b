package price

import "strings"

var regionCurrencies = map[string]string{
	"co": "COP",
	"br": "BRL",
	"us": "USD",
	"mx": "MXN",
	"ar": "ARS",
	"cl": "CLP",
	"gb": "GBP",
	"es": "EUR",
	"de": "EUR",
	"fr": "EUR",
	"it": "EUR",
	"pt": "EUR",
}

// RegionCurrency returns the currency a store region prices in, USD when the
// region is unknown.
func RegionCurrency(cc string) string {
	if code, ok := regionCurrencies[strings.ToLower(cc)]; ok {
		return code
	}
	return "USD"
}
