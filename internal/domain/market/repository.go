package market

import (
	"context"
	"time"
)

// Vendor fetches raw history from an external data source
type Vendor interface {
	Name() string
	FetchHistory(ctx context.Context, ticker string, from, to time.Time) (PriceSeries, error)
}

// SeriesStore persists fetched series between process restarts.
// Get returns ErrSeriesNotCached on a miss; TTL is enforced by the caller.
type SeriesStore interface {
	Get(ctx context.Context, key SeriesKey) (*CachedSeries, error)
	Put(ctx context.Context, entry CachedSeries) error
}
