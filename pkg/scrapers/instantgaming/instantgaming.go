package instantgaming

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"game-hunter/pkg/httpclient"
	"game-hunter/pkg/match"
	"game-hunter/pkg/models"
	"game-hunter/pkg/price"
	"game-hunter/pkg/scrapers/dom"
	"game-hunter/pkg/textnorm"
)

const (
	Source          = "Instant Gaming"
	BaseURL         = "https://www.instant-gaming.com"
	DefaultCurrency = "EUR"
)

var DefaultPolicy = match.Policy{Words: match.WordsNone, MinSimilarity: 0.50}

var (
	itemSelectors     = []string{"article.item", "div.item", ".search .item"}
	priceSelectors    = []string{"div.price", ".price-row .price"}
	originalSelectors = []string{".old-price, .discount-price, .price-old"}
)

type Scraper struct {
	Client  *httpclient.Client
	BaseURL string
	Policy  match.Policy
	Timeout time.Duration
}

func NewScraper(client *httpclient.Client) *Scraper {
	return &Scraper{
		Client:  client,
		BaseURL: BaseURL,
		Policy:  DefaultPolicy,
		Timeout: 10 * time.Second,
	}
}

func (s *Scraper) Search(ctx context.Context, query string, limit int) ([]models.PriceRecord, error) {
	qnorm := textnorm.Normalize(query)
	if qnorm == "" || limit <= 0 {
		return nil, nil
	}

	page, err := s.Client.Document(ctx, httpclient.Request{
		URL:     s.BaseURL + "/es/busquedas/",
		Params:  url.Values{"query": {qnorm}},
		Headers: map[string]string{"Accept-Language": "es-ES,es;q=0.9"},
		Timeout: s.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("instant gaming search: %w: %w", models.ErrSourceUnavailable, err)
	}

	log := logrus.WithFields(logrus.Fields{"component": "instantgaming", "query": query})
	records := make([]models.PriceRecord, 0, limit)

	dom.All(page.Doc.Selection, itemSelectors...).EachWithBreak(func(i int, el *goquery.Selection) bool {
		if i >= 3*limit || len(records) >= limit {
			return false
		}
		rec, err := s.parseItem(qnorm, el)
		if err != nil {
			log.WithError(err).Debug("Skipped listing")
			return true
		}
		records = append(records, rec)
		return true
	})

	log.Debugf("Parsed %d results", len(records))
	return records, nil
}

func (s *Scraper) parseItem(qnorm string, el *goquery.Selection) (models.PriceRecord, error) {
	cover := el.Find("a.cover").First()
	if cover.Length() == 0 {
		return models.PriceRecord{}, fmt.Errorf("no cover link")
	}

	title := dom.Clean(dom.Attr(cover, "title"))
	if len(title) >= 8 && strings.EqualFold(title[:8], "comprar ") {
		title = strings.TrimSpace(title[8:])
	}
	if title == "" {
		return models.PriceRecord{}, fmt.Errorf("no title")
	}
	if !s.Policy.Matches(qnorm, title) {
		return models.PriceRecord{}, fmt.Errorf("title %q does not match", title)
	}

	link := dom.Absolute(s.BaseURL, dom.Attr(cover, "href"))
	if link == "" {
		return models.PriceRecord{}, fmt.Errorf("no link for %q", title)
	}

	priceText := dom.Text(el, priceSelectors...)
	final, currency, ok := price.ParseWithCurrency(priceText, DefaultCurrency)
	if !ok {
		return models.PriceRecord{}, fmt.Errorf("no price for %q", title)
	}

	rec := models.PriceRecord{
		Title:      title,
		FinalPrice: price.Round2(final),
		Currency:   currency,
		URL:        link,
		Thumbnail:  dom.Attr(el.Find("img").First(), "data-src", "src"),
		Source:     Source,
	}

	var original *float64
	if v, ok := price.Parse(dom.Text(el, originalSelectors...)); ok {
		original = &v
	}
	rec.OriginalPrice, rec.DiscountPercent = price.Discount(rec.FinalPrice, original, 0)

	return rec, nil
}
