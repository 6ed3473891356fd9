package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hamsalma/finance-site/internal/domain/market"
)

// =============================================================================
// Series Repository
// =============================================================================

// SeriesRepository is a market.SeriesStore on PostgreSQL
type SeriesRepository struct {
	pool *pgxpool.Pool
}

// NewSeriesRepository creates a new series repository
func NewSeriesRepository(pool *pgxpool.Pool) *SeriesRepository {
	return &SeriesRepository{pool: pool}
}

const seriesSchema = `
	CREATE SCHEMA IF NOT EXISTS market;

	CREATE TABLE IF NOT EXISTS market.series_cache (
		ticker     TEXT        NOT NULL,
		date_from  DATE        NOT NULL,
		date_to    DATE        NOT NULL,
		points     JSONB       NOT NULL,
		clamped    BOOLEAN     NOT NULL DEFAULT FALSE,
		fetched_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (ticker, date_from, date_to)
	);
`

// EnsureSchema creates the cache table when missing
func (r *SeriesRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, seriesSchema); err != nil {
		return fmt.Errorf("ensure series schema: %w", err)
	}
	return nil
}

// Get returns the cached series for key, market.ErrSeriesNotCached on a miss
func (r *SeriesRepository) Get(ctx context.Context, key market.SeriesKey) (*market.CachedSeries, error) {
	query := `
		SELECT points, clamped, fetched_at
		FROM market.series_cache
		WHERE ticker = $1 AND date_from = $2 AND date_to = $3
	`

	var (
		pointsJSON []byte
		entry      = market.CachedSeries{Key: key}
	)

	err := r.pool.QueryRow(ctx, query, key.Ticker, key.From, key.To).Scan(
		&pointsJSON,
		&entry.Clamped,
		&entry.FetchedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", market.ErrSeriesNotCached, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get series %s: %w", key, err)
	}

	if err := json.Unmarshal(pointsJSON, &entry.Series); err != nil {
		return nil, fmt.Errorf("decode series %s: %w", key, err)
	}

	return &entry, nil
}

// Put upserts entry
func (r *SeriesRepository) Put(ctx context.Context, entry market.CachedSeries) error {
	pointsJSON, err := json.Marshal(entry.Series)
	if err != nil {
		return fmt.Errorf("encode series %s: %w", entry.Key, err)
	}

	query := `
		INSERT INTO market.series_cache (
			ticker, date_from, date_to, points, clamped, fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ticker, date_from, date_to) DO UPDATE SET
			points = EXCLUDED.points,
			clamped = EXCLUDED.clamped,
			fetched_at = EXCLUDED.fetched_at
	`

	_, err = r.pool.Exec(ctx, query,
		entry.Key.Ticker,
		entry.Key.From,
		entry.Key.To,
		pointsJSON,
		entry.Clamped,
		entry.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("put series %s: %w", entry.Key, err)
	}
	return nil
}

// DeleteOlderThan removes entries fetched before cutoff
func (r *SeriesRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM market.series_cache WHERE fetched_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge series cache: %w", err)
	}
	return tag.RowsAffected(), nil
}
