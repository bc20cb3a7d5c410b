package models

type PriceRecord struct {
	AppID           int      `json:"appid"`
	Title           string   `json:"title"`
	FinalPrice      float64  `json:"final_price"`
	OriginalPrice   *float64 `json:"original_price,omitempty"`
	DiscountPercent int      `json:"discount_percent"`
	Currency        string   `json:"currency"`
	URL             string   `json:"url"`
	Thumbnail       string   `json:"thumbnail"`
	Source          string   `json:"source"`
	IsFree          bool     `json:"is_free,omitempty"`
}

// Valid reports whether the record can be shown to a caller. A record without a
// title or URL, or with a negative price, came out of a broken extraction.
func (r *PriceRecord) Valid() bool {
	if r == nil || r.Title == "" || r.URL == "" || r.FinalPrice < 0 {
		return false
	}
	if r.OriginalPrice != nil && *r.OriginalPrice <= r.FinalPrice {
		return false
	}
	return r.DiscountPercent >= 0 && r.DiscountPercent <= 100
}

type Suggestion struct {
	AppID     int    `json:"appid"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}
