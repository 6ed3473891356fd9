// Package sqlite is an embedded market.SeriesStore for single-node runs
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/hamsalma/finance-site/internal/domain/market"
)

const schema = `CREATE TABLE IF NOT EXISTS series_cache (
	ticker     TEXT    NOT NULL,
	date_from  TEXT    NOT NULL,
	date_to    TEXT    NOT NULL,
	points     TEXT    NOT NULL,
	clamped    INTEGER NOT NULL DEFAULT 0,
	fetched_at INTEGER NOT NULL,
	PRIMARY KEY (ticker, date_from, date_to)
)`

// SeriesStore persists price series in a SQLite file
type SeriesStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and its schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*SeriesStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one writer; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	log.Info().Str("path", path).Msg("✅ SQLite series cache opened")
	return &SeriesStore{db: db}, nil
}

// Get returns the cached series for key, market.ErrSeriesNotCached on a miss
func (s *SeriesStore) Get(ctx context.Context, key market.SeriesKey) (*market.CachedSeries, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT points, clamped, fetched_at FROM series_cache WHERE ticker=? AND date_from=? AND date_to=?`,
		key.Ticker, key.From.Format(market.DateLayout), key.To.Format(market.DateLayout))

	var (
		pointsJSON string
		clamped    bool
		fetchedAt  int64
	)
	err := row.Scan(&pointsJSON, &clamped, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", market.ErrSeriesNotCached, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get series %s: %w", key, err)
	}

	entry := &market.CachedSeries{
		Key:       key,
		Clamped:   clamped,
		FetchedAt: time.UnixMilli(fetchedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(pointsJSON), &entry.Series); err != nil {
		return nil, fmt.Errorf("decode series %s: %w", key, err)
	}
	return entry, nil
}

// Put upserts entry
func (s *SeriesStore) Put(ctx context.Context, entry market.CachedSeries) error {
	pointsJSON, err := json.Marshal(entry.Series)
	if err != nil {
		return fmt.Errorf("encode series %s: %w", entry.Key, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO series_cache(ticker, date_from, date_to, points, clamped, fetched_at)
		 VALUES(?,?,?,?,?,?)
		 ON CONFLICT(ticker, date_from, date_to) DO UPDATE SET
			points=excluded.points, clamped=excluded.clamped, fetched_at=excluded.fetched_at`,
		entry.Key.Ticker,
		entry.Key.From.Format(market.DateLayout),
		entry.Key.To.Format(market.DateLayout),
		string(pointsJSON),
		entry.Clamped,
		entry.FetchedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put series %s: %w", entry.Key, err)
	}
	return nil
}

// DeleteOlderThan removes entries fetched before cutoff
func (s *SeriesStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM series_cache WHERE fetched_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge series cache: %w", err)
	}
	return res.RowsAffected()
}

// Ping checks the database is reachable
func (s *SeriesStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SeriesStore) Close() error {
	return s.db.Close()
}
