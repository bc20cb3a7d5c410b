// Package aggregate combines the store adapters into the search surfaces the
// API serves: the official-store search merged with Instant Gaming, and one
// surface per secondary store.
package aggregate

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"game-hunter/pkg/models"
	"game-hunter/pkg/scrapers/steam"
	"game-hunter/pkg/textnorm"
)

// Primary is the official store: it finds matching apps first and prices them
// in a second call.
type Primary interface {
	Find(ctx context.Context, query, cc string, limit int) ([]steam.Item, error)
	Quote(ctx context.Context, item steam.Item, cc string) (models.PriceRecord, bool)
	Suggest(ctx context.Context, query, cc string, limit int) ([]models.Suggestion, error)
	Preview(ctx context.Context, appID int, cc string) (*models.PriceRecord, error)
}

type Source interface {
	Search(ctx context.Context, query string, limit int) ([]models.PriceRecord, error)
}

type RegionalSource interface {
	SearchRegion(ctx context.Context, query, cc string, limit int) ([]models.PriceRecord, error)
}

type Engine struct {
	Primary        Primary
	InstantGaming  Source
	Fanatical      Source
	GreenManGaming Source
	Nuuvem         RegionalSource
	// QuoteConcurrency bounds the parallel price lookups for primary matches.
	QuoteConcurrency int
}

const defaultQuoteConcurrency = 4

func (e *Engine) quoteConcurrency() int {
	if e.QuoteConcurrency > 0 {
		return e.QuoteConcurrency
	}
	return defaultQuoteConcurrency
}

// resultSet accumulates records in order, dropping invalid ones and, when
// dedup is set, records whose normalized title was already added.
type resultSet struct {
	limit   int
	dedup   bool
	seen    map[string]bool
	records []models.PriceRecord
}

func newResultSet(limit int, dedup bool) *resultSet {
	return &resultSet{limit: limit, dedup: dedup, seen: map[string]bool{}}
}

func (r *resultSet) add(recs ...models.PriceRecord) {
	for i := range recs {
		rec := recs[i]
		if !rec.Valid() {
			continue
		}
		if r.dedup {
			key := textnorm.Normalize(rec.Title)
			if key == "" || r.seen[key] {
				continue
			}
			r.seen[key] = true
		}
		r.records = append(r.records, rec)
	}
}

func (r *resultSet) result() []models.PriceRecord {
	if len(r.records) > r.limit {
		return r.records[:r.limit]
	}
	return r.records
}

func unavailable(err error) bool {
	return errors.Is(err, models.ErrSourceUnavailable)
}

// Search runs the fallback cascade. Official-store matches are priced and
// merged with Instant Gaming listings that are not already present. When the
// official store has no match, Instant Gaming results are returned alone.
func (e *Engine) Search(ctx context.Context, query, cc string, limit int) ([]models.PriceRecord, error) {
	log := logrus.WithFields(logrus.Fields{"component": "aggregate", "query": query, "cc": cc})

	items, err := e.Primary.Find(ctx, query, cc, limit)
	primaryDown := err != nil
	if err != nil {
		log.WithError(err).Warn("Official store search failed")
	}

	set := newResultSet(limit, true)

	if len(items) == 0 {
		supp, suppErr := e.InstantGaming.Search(ctx, query, limit)
		if suppErr != nil {
			log.WithError(suppErr).Warn("Instant Gaming search failed")
		}
		set.add(supp...)
		out := set.result()
		if len(out) == 0 {
			if primaryDown && unavailable(err) && unavailable(suppErr) {
				return nil, models.ErrSourceUnavailable
			}
			return nil, models.ErrNoResults
		}
		return out, nil
	}

	var (
		supp    []models.PriceRecord
		suppErr error
		side    errgroup.Group
	)
	side.Go(func() error {
		supp, suppErr = e.InstantGaming.Search(ctx, query, limit)
		return nil
	})

	quotes := make([]models.PriceRecord, len(items))
	priced := make([]bool, len(items))
	var g errgroup.Group
	g.SetLimit(e.quoteConcurrency())
	for i, item := range items {
		g.Go(func() error {
			quotes[i], priced[i] = e.Primary.Quote(ctx, item, cc)
			return nil
		})
	}
	_ = g.Wait()
	_ = side.Wait()

	for i := range quotes {
		if priced[i] {
			set.add(quotes[i])
		}
	}
	if suppErr != nil {
		log.WithError(suppErr).Warn("Instant Gaming search failed")
	}
	set.add(supp...)

	out := set.result()
	if len(out) == 0 {
		return nil, models.ErrNoResults
	}
	log.Debugf("Merged %d results", len(out))
	return out, nil
}

// single applies the shared result rules to one adapter's output.
func single(records []models.PriceRecord, err error, limit int) ([]models.PriceRecord, error) {
	set := newResultSet(limit, false)
	set.add(records...)
	out := set.result()
	if len(out) == 0 {
		if unavailable(err) {
			return nil, err
		}
		return nil, models.ErrNoResults
	}
	return out, nil
}

func (e *Engine) SearchNuuvem(ctx context.Context, query, cc string, limit int) ([]models.PriceRecord, error) {
	recs, err := e.Nuuvem.SearchRegion(ctx, query, cc, limit)
	return single(recs, err, limit)
}

func (e *Engine) SearchGreenManGaming(ctx context.Context, query string, limit int) ([]models.PriceRecord, error) {
	recs, err := e.GreenManGaming.Search(ctx, query, limit)
	return single(recs, err, limit)
}

func (e *Engine) SearchInstantGaming(ctx context.Context, query string, limit int) ([]models.PriceRecord, error) {
	recs, err := e.InstantGaming.Search(ctx, query, limit)
	return single(recs, err, limit)
}

// SearchFanatical looks up Fanatical deals and falls back to Instant Gaming
// when the deals API yields nothing usable.
func (e *Engine) SearchFanatical(ctx context.Context, query string, limit int) ([]models.PriceRecord, error) {
	recs, err := e.Fanatical.Search(ctx, query, limit)
	out, err := single(recs, err, limit)
	if err == nil {
		return out, nil
	}
	logrus.WithFields(logrus.Fields{"component": "aggregate", "query": query}).
		WithError(err).Info("No Fanatical deals, falling back to Instant Gaming")

	fallback, fbErr := e.SearchInstantGaming(ctx, query, limit)
	if fbErr == nil {
		return fallback, nil
	}
	if unavailable(err) && unavailable(fbErr) {
		return nil, models.ErrSourceUnavailable
	}
	return nil, models.ErrNoResults
}

// RawGreenManGaming returns the adapter output without validation or limit.
func (e *Engine) RawGreenManGaming(ctx context.Context, query string, limit int) ([]models.PriceRecord, error) {
	recs, err := e.GreenManGaming.Search(ctx, query, limit)
	if recs == nil {
		recs = []models.PriceRecord{}
	}
	return recs, err
}

// RawInstantGaming returns the adapter output without validation or limit.
func (e *Engine) RawInstantGaming(ctx context.Context, query string, limit int) ([]models.PriceRecord, error) {
	recs, err := e.InstantGaming.Search(ctx, query, limit)
	if recs == nil {
		recs = []models.PriceRecord{}
	}
	return recs, err
}

func (e *Engine) Suggest(ctx context.Context, query, cc string, limit int) ([]models.Suggestion, error) {
	return e.Primary.Suggest(ctx, query, cc, limit)
}

func (e *Engine) Preview(ctx context.Context, appID int, cc string) (*models.PriceRecord, error) {
	return e.Primary.Preview(ctx, appID, cc)
}
