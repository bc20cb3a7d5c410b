package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"game-hunter/pkg/httpclient"
	"game-hunter/pkg/match"
	"game-hunter/pkg/models"
	"game-hunter/pkg/price"
	"game-hunter/pkg/textnorm"
)

const (
	Source        = "Steam"
	BaseURL       = "https://store.steampowered.com"
	DefaultRegion = "co"
)

var (
	DefaultPolicy = match.Policy{Words: match.WordsHalf, MinSimilarity: 0.40}

	// Search hits carrying one of these words are not purchasable base games.
	excludedWords = []string{"soundtrack", "soundtracks", "demo", "demos", "extra", "extras"}
)

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
		Timeout: 15 * time.Second,
	}
}

// priceOverview amounts are in cents.
type priceOverview struct {
	Currency        string `json:"currency"`
	Initial         int    `json:"initial"`
	Final           int    `json:"final"`
	DiscountPercent int    `json:"discount_percent"`
}

type Item struct {
	ID        int            `json:"id"`
	Name      string         `json:"name"`
	TinyImage string         `json:"tiny_image"`
	Price     *priceOverview `json:"price"`
}

type searchResponse struct {
	Total int    `json:"total"`
	Items []Item `json:"items"`
}

type AppDetails struct {
	Name          string         `json:"name"`
	IsFree        bool           `json:"is_free"`
	HeaderImage   string         `json:"header_image"`
	CapsuleImage  string         `json:"capsule_image"`
	PriceOverview *priceOverview `json:"price_overview"`
}

type appDetailsEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func (s *Scraper) region(cc string) string {
	if cc == "" {
		cc = s.Region
	}
	if cc == "" {
		cc = DefaultRegion
	}
	return strings.ToLower(cc)
}

func excluded(name string) bool {
	for _, w := range strings.Fields(textnorm.Normalize(name)) {
		if slices.Contains(excludedWords, w) {
			return true
		}
	}
	return false
}

func (s *Scraper) storeSearch(ctx context.Context, query, cc string) ([]Item, error) {
	var resp searchResponse
	err := s.Client.GetJSON(ctx, httpclient.Request{
		URL:     s.BaseURL + "/api/storesearch/",
		Params:  url.Values{"term": {query}, "cc": {s.region(cc)}, "l": {"en"}},
		Timeout: s.Timeout,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%s store search: %w: %w", Source, models.ErrSourceUnavailable, err)
	}

	items := make([]Item, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ID == 0 || strings.TrimSpace(item.Name) == "" || excluded(item.Name) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Find returns up to limit store search hits that match the query.
func (s *Scraper) Find(ctx context.Context, query, cc string, limit int) ([]Item, error) {
	items, err := s.storeSearch(ctx, query, cc)
	if err != nil {
		return nil, err
	}

	qnorm := textnorm.Normalize(query)
	matches := make([]Item, 0, limit)
	for _, item := range items {
		if len(matches) >= limit {
			break
		}
		if !s.Policy.Matches(qnorm, item.Name) {
			logrus.WithFields(logrus.Fields{"component": "steam", "title": item.Name}).Debug("Dropped non-matching search hit")
			continue
		}
		matches = append(matches, item)
	}
	return matches, nil
}

// Suggest backs autocomplete. Partial input is expected, so hits are not run
// through the matcher.
func (s *Scraper) Suggest(ctx context.Context, query, cc string, limit int) ([]models.Suggestion, error) {
	items, err := s.storeSearch(ctx, query, cc)
	if err != nil {
		return nil, err
	}
	if len(items) > limit {
		items = items[:limit]
	}

	suggestions := make([]models.Suggestion, 0, len(items))
	for _, item := range items {
		suggestions = append(suggestions, models.Suggestion{
			AppID:     item.ID,
			Title:     item.Name,
			Thumbnail: item.TinyImage,
		})
	}
	return suggestions, nil
}

// Details fetches the app details document. A response without success means
// the app has no store page in that region and is reported as no results.
func (s *Scraper) Details(ctx context.Context, appID int, cc string) (*AppDetails, error) {
	id := strconv.Itoa(appID)

	var envelope map[string]appDetailsEnvelope
	err := s.Client.GetJSON(ctx, httpclient.Request{
		URL:     s.BaseURL + "/api/appdetails",
		Params:  url.Values{"appids": {id}, "cc": {s.region(cc)}, "l": {"en"}},
		Timeout: s.Timeout,
	}, &envelope)
	if err != nil {
		return nil, fmt.Errorf("%s app details %d: %w: %w", Source, appID, models.ErrSourceUnavailable, err)
	}

	entry, ok := envelope[id]
	if !ok || !entry.Success {
		return nil, fmt.Errorf("%s app details %d: %w", Source, appID, models.ErrNoResults)
	}

	var details AppDetails
	if err := json.Unmarshal(entry.Data, &details); err != nil {
		return nil, fmt.Errorf("%s app details %d: %w", Source, appID, err)
	}
	return &details, nil
}

func (s *Scraper) appURL(appID int) string {
	return fmt.Sprintf("%s/app/%d/", s.BaseURL, appID)
}

func thumbnail(appID int, candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return fmt.Sprintf("https://cdn.akamai.steamstatic.com/steam/apps/%d/capsule_184x69.jpg", appID)
}

func (s *Scraper) record(appID int, title string, details *AppDetails, overview *priceOverview, cc string, thumb string) (models.PriceRecord, bool) {
	rec := models.PriceRecord{
		AppID:     appID,
		Title:     title,
		URL:       s.appURL(appID),
		Thumbnail: thumb,
		Source:    Source,
		Currency:  price.RegionCurrency(s.region(cc)),
	}

	if details != nil && details.IsFree {
		if overview != nil && overview.Currency != "" {
			rec.Currency = overview.Currency
		}
		rec.IsFree = true
		return rec, true
	}

	if overview == nil {
		return models.PriceRecord{}, false
	}

	final := price.Round2(float64(overview.Final) / 100)
	initial := price.Round2(float64(overview.Initial) / 100)
	rec.FinalPrice = final
	rec.OriginalPrice, rec.DiscountPercent = price.Discount(final, &initial, overview.DiscountPercent)
	if overview.Currency != "" {
		rec.Currency = overview.Currency
	}
	return rec, true
}

// Quote prices one search hit. When the details call fails the price embedded
// in the search hit is used instead.
func (s *Scraper) Quote(ctx context.Context, item Item, cc string) (models.PriceRecord, bool) {
	details, err := s.Details(ctx, item.ID, cc)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"component": "steam", "appid": item.ID}).Debug("App details unavailable, using search price")
		details = nil
	}

	overview := item.Price
	var header, capsule string
	if details != nil {
		if details.PriceOverview != nil {
			overview = details.PriceOverview
		}
		header, capsule = details.HeaderImage, details.CapsuleImage
	}

	return s.record(item.ID, item.Name, details, overview, cc, thumbnail(item.ID, item.TinyImage, header, capsule))
}

// Preview prices a single app by id.
func (s *Scraper) Preview(ctx context.Context, appID int, cc string) (*models.PriceRecord, error) {
	details, err := s.Details(ctx, appID, cc)
	if err != nil {
		return nil, err
	}

	rec, ok := s.record(appID, details.Name, details, details.PriceOverview, cc,
		thumbnail(appID, details.HeaderImage, details.CapsuleImage))
	if !ok {
		return nil, fmt.Errorf("%s app %d has no price: %w", Source, appID, models.ErrNoResults)
	}
	return &rec, nil
}

// Search finds and prices up to limit matching apps in the default region.
func (s *Scraper) Search(ctx context.Context, query string, limit int) ([]models.PriceRecord, error) {
	items, err := s.Find(ctx, query, "", limit)
	if err != nil {
		return nil, err
	}

	records := make([]models.PriceRecord, 0, len(items))
	for _, item := range items {
		if rec, ok := s.Quote(ctx, item, ""); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}
