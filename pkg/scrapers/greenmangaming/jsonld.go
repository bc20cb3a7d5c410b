package greenmangaming

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// productLD is the schema.org Product block embedded in product pages.
// Offers and image come as either a single value or a list.
type productLD struct {
	Type   json.RawMessage `json:"@type"`
	Name   string          `json:"name"`
	Image  json.RawMessage `json:"image"`
	Offers json.RawMessage `json:"offers"`
}

type offerLD struct {
	Price         json.RawMessage `json:"price"` // string or number
	PriceCurrency string          `json:"priceCurrency"`
}

type ldProduct struct {
	name     string
	image    string
	price    float64
	priced   bool
	currency string
}

func findProductLD(doc *goquery.Selection) (ldProduct, bool) {
	var found ldProduct
	ok := false
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		for _, p := range decodeLD(el.Text()) {
			if !isProduct(p.Type) {
				continue
			}
			found = ldProduct{name: strings.TrimSpace(p.Name), image: firstString(p.Image)}
			for _, o := range decodeOffers(p.Offers) {
				if v, err := strconv.ParseFloat(unquote(o.Price), 64); err == nil {
					found.price, found.priced = v, true
					found.currency = strings.ToUpper(o.PriceCurrency)
					break
				}
			}
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

func decodeLD(text string) []productLD {
	text = strings.TrimSpace(text)
	var one productLD
	if err := json.Unmarshal([]byte(text), &one); err == nil {
		return []productLD{one}
	}
	var many []productLD
	if err := json.Unmarshal([]byte(text), &many); err == nil {
		return many
	}
	return nil
}

func decodeOffers(raw json.RawMessage) []offerLD {
	if len(raw) == 0 {
		return nil
	}
	var one offerLD
	if err := json.Unmarshal(raw, &one); err == nil {
		return []offerLD{one}
	}
	var many []offerLD
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

func isProduct(raw json.RawMessage) bool {
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return one == "Product"
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, t := range many {
			if t == "Product" {
				return true
			}
		}
	}
	return false
}

func firstString(raw json.RawMessage) string {
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return one
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0]
	}
	return ""
}

func unquote(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.Trim(string(raw), `"' `)
}
