// Package cheapshark looks up Fanatical deals through the CheapShark deals API.
package cheapshark

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"game-hunter/pkg/cache"
	"game-hunter/pkg/httpclient"
	"game-hunter/pkg/logger"
	"game-hunter/pkg/match"
	"game-hunter/pkg/models"
	"game-hunter/pkg/price"
	"game-hunter/pkg/textnorm"
)

const (
	Source      = "Fanatical"
	CacheSource = "cheapshark"
	BaseURL     = "https://www.cheapshark.com/api/1.0"
	RedirectURL = "https://www.cheapshark.com/redirect?dealID="
	// FanaticalStoreID is CheapShark's identifier for the Fanatical store.
	FanaticalStoreID = "15"

	lookupLimit = 20
)

var DefaultPolicy = match.Policy{Words: match.WordsHalf, MinSimilarity: 0.35}

type Scraper struct {
	Client  *httpclient.Client
	Cache   cache.Store
	BaseURL string
	StoreID string
	Policy  match.Policy
	Timeout time.Duration
}

func NewScraper(client *httpclient.Client, store cache.Store) *Scraper {
	if store == nil {
		store = cache.Nop{}
	}
	return &Scraper{
		Client:  client,
		Cache:   store,
		BaseURL: BaseURL,
		StoreID: FanaticalStoreID,
		Policy:  DefaultPolicy,
		Timeout: 15 * time.Second,
	}
}

type gameSummary struct {
	GameID   string `json:"gameID"`
	External string `json:"external"`
	Thumb    string `json:"thumb"`
}

type deal struct {
	StoreID     string `json:"storeID"`
	DealID      string `json:"dealID"`
	Price       string `json:"price"`
	RetailPrice string `json:"retailPrice"`
	Savings     string `json:"savings"`
}

type gameDetails struct {
	Info struct {
		Title string `json:"title"`
		Thumb string `json:"thumb"`
	} `json:"info"`
	Deals []deal `json:"deals"`
}

func cacheKey(query string, limit int) string {
	return fmt.Sprintf("%s:%d", strings.ToLower(strings.TrimSpace(query)), limit)
}

// Search returns up to limit Fanatical deals whose titles match query.
// Non-empty results are cached for the cache TTL.
func (s *Scraper) Search(ctx context.Context, query string, limit int) ([]models.PriceRecord, error) {
	key := cacheKey(query, limit)
	if cached, ok := s.Cache.Get(ctx, CacheSource, key); ok {
		logger.Dedup("Cache hit for %s/%s", CacheSource, key)
		return cached, nil
	}

	var games []gameSummary
	err := s.Client.GetJSON(ctx, httpclient.Request{
		URL:     s.BaseURL + "/games",
		Params:  url.Values{"title": {query}, "limit": {strconv.Itoa(lookupLimit)}, "exact": {"0"}},
		Timeout: s.Timeout,
	}, &games)
	if err != nil {
		return nil, fmt.Errorf("cheapshark title lookup: %w: %w", models.ErrSourceUnavailable, err)
	}

	log := logrus.WithFields(logrus.Fields{"component": "cheapshark", "query": query})
	qnorm := textnorm.Normalize(query)
	records := make([]models.PriceRecord, 0, limit)

	for _, game := range games {
		if len(records) >= limit {
			break
		}
		if game.GameID == "" {
			continue
		}
		rec, err := s.bestDeal(ctx, qnorm, game)
		if err != nil {
			log.WithError(err).WithField("game_id", game.GameID).Debug("Skipped game")
			continue
		}
		records = append(records, rec)
	}

	if len(records) > 0 {
		s.Cache.Set(ctx, CacheSource, key, records)
	}
	return records, nil
}

func (s *Scraper) bestDeal(ctx context.Context, qnorm string, game gameSummary) (models.PriceRecord, error) {
	var details gameDetails
	err := s.Client.GetJSON(ctx, httpclient.Request{
		URL:     s.BaseURL + "/games",
		Params:  url.Values{"id": {game.GameID}},
		Timeout: s.Timeout,
	}, &details)
	if err != nil {
		return models.PriceRecord{}, err
	}

	title := strings.TrimSpace(details.Info.Title)
	if title == "" {
		title = strings.TrimSpace(game.External)
	}
	if title == "" {
		return models.PriceRecord{}, fmt.Errorf("game %s has no title", game.GameID)
	}
	if !s.Policy.Matches(qnorm, title) {
		return models.PriceRecord{}, fmt.Errorf("title %q does not match", title)
	}

	var best *deal
	bestPrice := 0.0
	for i := range details.Deals {
		d := &details.Deals[i]
		if d.StoreID != s.StoreID {
			continue
		}
		p, err := strconv.ParseFloat(d.Price, 64)
		if err != nil {
			continue
		}
		if best == nil || p < bestPrice {
			best, bestPrice = d, p
		}
	}
	if best == nil {
		return models.PriceRecord{}, fmt.Errorf("no store %s deal for %q", s.StoreID, title)
	}

	rec := models.PriceRecord{
		Title:      title,
		FinalPrice: price.Round2(bestPrice),
		Currency:   "USD",
		URL:        RedirectURL + url.QueryEscape(best.DealID),
		Thumbnail:  details.Info.Thumb,
		Source:     Source,
	}
	if rec.Thumbnail == "" {
		rec.Thumbnail = game.Thumb
	}

	var original *float64
	if retail, err := strconv.ParseFloat(best.RetailPrice, 64); err == nil {
		original = &retail
	}
	savings := 0
	if v, err := strconv.ParseFloat(best.Savings, 64); err == nil {
		savings = int(v)
	}
	rec.OriginalPrice, rec.DiscountPercent = price.Discount(rec.FinalPrice, original, savings)

	return rec, nil
}
