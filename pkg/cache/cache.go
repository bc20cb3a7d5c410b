// Package cache keeps recent search results per source so repeated queries
// inside the TTL window do not hit the upstream store again.
package cache

import (
	"context"

	"game-hunter/pkg/models"
)

type Store interface {
	Get(ctx context.Context, source, key string) ([]models.PriceRecord, bool)
	Set(ctx context.Context, source, key string, records []models.PriceRecord)
	Close() error
}

// Nop never stores anything. Used when caching is disabled.
type Nop struct{}

func (Nop) Get(context.Context, string, string) ([]models.PriceRecord, bool) { return nil, false }
func (Nop) Set(context.Context, string, string, []models.PriceRecord)        {}
func (Nop) Close() error                                                     { return nil }
