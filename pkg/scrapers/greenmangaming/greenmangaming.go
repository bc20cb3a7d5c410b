package greenmangaming

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"game-hunter/pkg/httpclient"
	"game-hunter/pkg/match"
	"game-hunter/pkg/models"
	"game-hunter/pkg/price"
	"game-hunter/pkg/render"
	"game-hunter/pkg/scrapers/dom"
	"game-hunter/pkg/textnorm"
)

const (
	Source          = "GreenManGaming"
	BaseURL         = "https://www.greenmangaming.com"
	DefaultCurrency = "COP"
)

var DefaultPolicy = match.Policy{Words: match.WordsHalf, MinSimilarity: 0.60}

var headers = map[string]string{"Accept-Language": "es-ES,es;q=0.9,en;q=0.8"}

type Scraper struct {
	Client  *httpclient.Client
	BaseURL string
	Policy  match.Policy
	Timeout time.Duration
	// Renderer is optional. When set, product pages that match but carry no
	// static price are rendered and extracted again.
	Renderer render.Renderer
}

func NewScraper(client *httpclient.Client, renderer render.Renderer) *Scraper {
	return &Scraper{
		Client:   client,
		BaseURL:  BaseURL,
		Policy:   DefaultPolicy,
		Timeout:  10 * time.Second,
		Renderer: renderer,
	}
}

// Slug turns a query into the path segment GreenManGaming uses for product
// pages: lowercase, punctuation dropped, whitespace runs joined by hyphens.
func Slug(query string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, strings.ToLower(query))
	return strings.Join(strings.Fields(cleaned), "-")
}

func (s *Scraper) candidateURLs(slug string) []string {
	return []string{
		s.BaseURL + "/es/games/" + slug + "-pc/",
		s.BaseURL + "/games/" + slug + "-pc/",
		s.BaseURL + "/es/games/" + slug + "/",
		s.BaseURL + "/games/" + slug + "/",
	}
}

var errNoMatch = errors.New("page does not match")

// Search probes the product page URLs derived from the query first and
// returns the first one that matches. Otherwise it walks the store search
// results.
func (s *Scraper) Search(ctx context.Context, query string, limit int) ([]models.PriceRecord, error) {
	qnorm := textnorm.Normalize(query)
	if qnorm == "" || limit <= 0 {
		return nil, nil
	}
	log := logrus.WithFields(logrus.Fields{"component": "greenmangaming", "query": query})

	reached := false
	if slug := Slug(query); slug != "" {
		for _, u := range s.candidateURLs(slug) {
			rec, err := s.productPage(ctx, qnorm, u)
			if err == nil {
				return []models.PriceRecord{rec}, nil
			}
			if errors.Is(err, errNoMatch) {
				reached = true
			}
			log.WithError(err).WithField("url", u).Debug("Direct product page missed")
		}
	}

	page, err := s.Client.Document(ctx, httpclient.Request{
		URL:     s.BaseURL + "/es/search/",
		Params:  url.Values{"query": {query}},
		Headers: headers,
		Timeout: s.Timeout,
	})
	if err != nil {
		if reached {
			log.WithError(err).Warn("Search page failed")
			return nil, nil
		}
		return nil, fmt.Errorf("greenmangaming search: %w: %w", models.ErrSourceUnavailable, err)
	}

	var links []string
	seen := map[string]bool{}
	page.Doc.Find("a.product-item").EachWithBreak(func(i int, a *goquery.Selection) bool {
		if i >= 3*limit {
			return false
		}
		if link := dom.Absolute(s.BaseURL, dom.Attr(a, "href")); link != "" && !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
		return true
	})

	records := make([]models.PriceRecord, 0, limit)
	for _, link := range links {
		if len(records) >= limit {
			break
		}
		rec, err := s.productPage(ctx, qnorm, link)
		if err != nil {
			log.WithError(err).WithField("url", link).Debug("Skipped search result")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// productPage fetches and extracts one product page. It returns errNoMatch
// when the page was reached but is not a priced match for the query.
func (s *Scraper) productPage(ctx context.Context, qnorm, pageURL string) (models.PriceRecord, error) {
	page, err := s.Client.Document(ctx, httpclient.Request{URL: pageURL, Headers: headers, Timeout: s.Timeout})
	if err != nil {
		return models.PriceRecord{}, err
	}

	info := extract(page.Doc.Selection)
	if info.title == "" || !s.Policy.Matches(qnorm, info.title) {
		return models.PriceRecord{}, fmt.Errorf("%w: title %q", errNoMatch, info.title)
	}

	if !info.priced && s.Renderer != nil {
		info = s.rendered(ctx, pageURL, info)
	}
	if !info.priced {
		return models.PriceRecord{}, fmt.Errorf("%w: no price for %q", errNoMatch, info.title)
	}

	rec := models.PriceRecord{
		Title:      info.title,
		FinalPrice: price.Round2(info.final),
		Currency:   info.currency,
		URL:        pageURL,
		Thumbnail:  info.thumbnail,
		Source:     Source,
	}
	rec.OriginalPrice, rec.DiscountPercent = price.Discount(rec.FinalPrice, info.original, 0)
	return rec, nil
}

func (s *Scraper) rendered(ctx context.Context, pageURL string, static pageInfo) pageInfo {
	log := logrus.WithFields(logrus.Fields{"component": "greenmangaming", "url": pageURL})

	html, err := s.Renderer.Render(ctx, pageURL)
	if err != nil {
		log.WithError(err).Warn("Render failed")
		return static
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.WithError(err).Warn("Rendered page could not be parsed")
		return static
	}

	info := extract(doc.Selection)
	if info.title == "" {
		info.title = static.title
	}
	if info.thumbnail == "" {
		info.thumbnail = static.thumbnail
	}
	return info
}

type pageInfo struct {
	title     string
	final     float64
	priced    bool
	currency  string
	original  *float64
	thumbnail string
}

func extract(doc *goquery.Selection) pageInfo {
	info := pageInfo{
		title:     dom.Text(doc, "h1"),
		thumbnail: dom.Meta(doc, "og:image"),
	}
	ld, hasLD := findProductLD(doc)
	if info.title == "" && hasLD {
		info.title = ld.name
	}
	if info.title == "" {
		t := dom.Clean(doc.Find("title").First().Text())
		info.title = strings.TrimSpace(strings.SplitN(t, " - ", 2)[0])
	}
	if info.thumbnail == "" && hasLD {
		info.thumbnail = ld.image
	}

	fallback := strings.ToUpper(dom.Meta(doc, "product:price:currency"))
	if fallback == "" {
		fallback = DefaultCurrency
	}
	info.final, info.currency, info.priced = price.ParseWithCurrency(currentPriceText(doc), fallback)
	if !info.priced && ld.priced {
		info.final, info.priced = ld.price, true
		info.currency = ld.currency
		if info.currency == "" {
			info.currency = fallback
		}
	}

	rrp := dom.Text(doc, `gmgprice[type="rrp"]`, ".rrp", ".was-price")
	if v, ok := price.Parse(rrp); ok {
		info.original = &v
	}
	return info
}

func currentPriceText(doc *goquery.Selection) string {
	if t := dom.Text(doc, `gmgprice[type="currentPrice"]`); t != "" {
		return t
	}
	if el := doc.Find(`[itemprop="price"]`).First(); el.Length() > 0 {
		if t := dom.Attr(el, "content"); t != "" {
			return t
		}
		if t := dom.Clean(el.Text()); t != "" {
			return t
		}
	}
	if t := dom.Meta(doc, "product:price:amount"); t != "" {
		return t
	}
	return dom.Text(doc, ".current-price")
}
