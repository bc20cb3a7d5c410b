package nuuvem

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
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
	Source        = "Nuuvem"
	BaseURL       = "https://www.nuuvem.com"
	DefaultRegion = "co"

	minPlausiblePrice = 0.01
	maxPlausiblePrice = 10000
)

var DefaultPolicy = match.Policy{Words: match.WordsAll, MinSimilarity: 0.32}

var (
	productSelectors = []string{
		"div.nvm-grid > div > a",
		"a[href*='/product/']",
		".productCard",
		".card",
		".product-item",
		"a.product-item",
	}
	nameSelectors = []string{
		"h3.game-card__product-name",
		"h3",
		".productCard-title",
		".card-title",
		"[class*='title']",
		"[class*='name']",
	}
	listingPriceSelectors = []string{
		".product-price--val span:not(.product-price--old)",
		".add-to-cart__btn__text",
		".product-price__price",
		".productCard-price",
		"[class*='price']",
	}
	detailPriceSelectors = []string{
		".product-price--val span:not(.product-price--old)",
		".product-price__price",
		"[class*='product-price'] span",
		"[class*='price']",
	}

	amountPattern = regexp.MustCompile(`[0-9][0-9.,]*`)
)

var headers = map[string]string{"Accept-Language": "es-ES,es;q=0.9"}

type Scraper struct {
	Client  *httpclient.Client
	BaseURL string
	Region  string
	Policy  match.Policy
	Timeout time.Duration
}

func NewScraper(client *httpclient.Client) *Scraper {
	return &Scraper{
		Client:  client,
		BaseURL: BaseURL,
		Region:  DefaultRegion,
		Policy:  DefaultPolicy,
		Timeout: 10 * time.Second,
	}
}

func (s *Scraper) Search(ctx context.Context, query string, limit int) ([]models.PriceRecord, error) {
	return s.SearchRegion(ctx, query, s.Region, limit)
}

func (s *Scraper) searchURLs(query, cc string) []string {
	q := url.QueryEscape(strings.TrimSpace(query))
	return []string{
		s.BaseURL + "/" + cc + "-es/catalog/page/1/search/" + q,
		s.BaseURL + "/store/search?q=" + q,
		s.BaseURL + "/br-en/catalog/page/1/search/" + q,
		s.BaseURL + "/br-es/catalog/page/1/search/" + q,
	}
}

// SearchRegion walks the catalog search pages of the regional storefront
// and then the fallback storefronts until limit listings are collected.
func (s *Scraper) SearchRegion(ctx context.Context, query, cc string, limit int) ([]models.PriceRecord, error) {
	qnorm := textnorm.Normalize(query)
	if qnorm == "" || limit <= 0 {
		return nil, nil
	}
	cc = strings.ToLower(strings.TrimSpace(cc))
	if cc == "" {
		cc = s.Region
	}
	currency := price.RegionCurrency(cc)
	log := logrus.WithFields(logrus.Fields{"component": "nuuvem", "query": query, "cc": cc})

	reached := false
	seen := map[string]bool{}
	records := make([]models.PriceRecord, 0, limit)

	for _, u := range s.searchURLs(query, cc) {
		if len(records) >= limit {
			break
		}
		page, err := s.Client.Document(ctx, httpclient.Request{URL: u, Headers: headers, Timeout: s.Timeout})
		if err != nil {
			log.WithError(err).WithField("url", u).Debug("Search page failed")
			continue
		}
		reached = true

		var candidates []listing
		dom.All(page.Doc.Selection, productSelectors...).EachWithBreak(func(i int, el *goquery.Selection) bool {
			if i >= 3*limit {
				return false
			}
			l, ok := s.parseListing(qnorm, el, currency)
			if ok && !seen[l.url] {
				seen[l.url] = true
				candidates = append(candidates, l)
			}
			return true
		})

		for _, l := range candidates {
			if len(records) >= limit {
				break
			}
			if !l.priced {
				l = s.fromProductPage(ctx, qnorm, l)
			}
			if !l.priced {
				log.WithField("url", l.url).Debug("Skipped listing without price")
				continue
			}
			records = append(records, l.record())
		}
	}

	if !reached {
		return nil, fmt.Errorf("nuuvem search: %w", models.ErrSourceUnavailable)
	}
	return records, nil
}

type listing struct {
	title     string
	url       string
	thumbnail string
	final     float64
	original  *float64
	currency  string
	priced    bool
}

func (l listing) record() models.PriceRecord {
	rec := models.PriceRecord{
		Title:      l.title,
		FinalPrice: price.Round2(l.final),
		Currency:   l.currency,
		URL:        l.url,
		Thumbnail:  l.thumbnail,
		Source:     Source,
	}
	rec.OriginalPrice, rec.DiscountPercent = price.Discount(rec.FinalPrice, l.original, 0)
	return rec
}

func (s *Scraper) parseListing(qnorm string, el *goquery.Selection, currency string) (listing, bool) {
	name := dom.Text(el, nameSelectors...)
	if name == "" {
		name = dom.Clean(dom.Attr(el, "title"))
	}
	if name == "" || !s.Policy.Matches(qnorm, name) {
		return listing{}, false
	}

	href := dom.Attr(el, "href")
	if href == "" {
		href = dom.Attr(el.Find("a[href]").First(), "href")
	}
	link := dom.Absolute(s.BaseURL, href)
	if link == "" {
		return listing{}, false
	}

	l := listing{
		title:     name,
		url:       link,
		thumbnail: dom.Attr(el.Find("img").First(), "src", "data-src"),
		currency:  currency,
	}
	if v, code, ok := parseAmount(dom.Text(el, listingPriceSelectors...), currency); ok {
		l.final, l.currency, l.priced = v, code, true
	}
	if v, ok := price.Parse(firstAmount(dom.Text(el, ".product-price--old"))); ok {
		l.original = &v
	}
	return l, true
}

// fromProductPage fills in the price from the product page when the listing
// card did not show one. The page heading and og:image refine the listing.
func (s *Scraper) fromProductPage(ctx context.Context, qnorm string, l listing) listing {
	page, err := s.Client.Document(ctx, httpclient.Request{URL: l.url, Headers: headers, Timeout: s.Timeout})
	if err != nil {
		logrus.WithFields(logrus.Fields{"component": "nuuvem", "url": l.url}).WithError(err).Debug("Product page failed")
		return l
	}
	doc := page.Doc.Selection

	if v, code, ok := parseAmount(dom.Text(doc, detailPriceSelectors...), l.currency); ok {
		l.final, l.currency, l.priced = v, code, true
	} else {
		doc.Find("[class*='price']").EachWithBreak(func(_ int, el *goquery.Selection) bool {
			v, ok := price.Parse(firstAmount(dom.NodeText(el)))
			if ok && v > minPlausiblePrice && v < maxPlausiblePrice {
				l.final, l.priced = v, true
				return false
			}
			return true
		})
	}

	if title := dom.Text(doc, "h1", "h2"); title != "" && s.Policy.Matches(qnorm, title) {
		l.title = title
	}
	if img := dom.Meta(doc, "og:image"); img != "" {
		l.thumbnail = img
	}
	return l
}

func firstAmount(text string) string {
	return amountPattern.FindString(text)
}

// parseAmount reads the first number in text. The rest of the text is only
// used for currency detection.
func parseAmount(text, fallback string) (float64, string, bool) {
	v, ok := price.Parse(firstAmount(text))
	if !ok {
		return 0, "", false
	}
	code := price.Currency(text)
	if code == "" {
		code = fallback
	}
	return v, code, true
}
