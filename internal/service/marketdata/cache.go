package marketdata

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hamsalma/finance-site/internal/domain/market"
)

// ==============================================================================
// SeriesCache - in-memory first level of the price series cache
// ==============================================================================

// SeriesCache holds fetched series for TTL. Expired entries are treated as
// misses and removed by Prune.
type SeriesCache struct {
	mu      sync.RWMutex
	entries map[string]*market.CachedSeries // SeriesKey.String() → entry
	ttl     time.Duration
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats holds cache statistics
type CacheStats struct {
	Size    int     `json:"size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"` // percentage
}

// NewSeriesCache creates a cache; now defaults to time.Now
func NewSeriesCache(ttl time.Duration, now func() time.Time) *SeriesCache {
	if now == nil {
		now = time.Now
	}
	return &SeriesCache{
		entries: make(map[string]*market.CachedSeries),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns a fresh entry for key
func (c *SeriesCache) Get(key market.SeriesKey) (*market.CachedSeries, bool) {
	entry, ok := c.peek(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return entry, true
}

// peek is Get without touching the hit/miss counters
func (c *SeriesCache) peek(key market.SeriesKey) (*market.CachedSeries, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key.String()]
	c.mu.RUnlock()

	if !ok || !c.Fresh(entry) {
		return nil, false
	}
	return entry, true
}

// Put stores entry, replacing any previous one for its key.
// Entries are shared read-only after Put.
func (c *SeriesCache) Put(entry *market.CachedSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Key.String()] = entry
}

// Fresh reports whether entry is younger than the TTL
func (c *SeriesCache) Fresh(entry *market.CachedSeries) bool {
	return c.now().Sub(entry.FetchedAt) < c.ttl
}

// Prune drops expired entries and returns how many were removed
func (c *SeriesCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, entry := range c.entries {
		if !c.Fresh(entry) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Run prunes expired entries every interval until ctx is done
func (c *SeriesCache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Prune(); n > 0 {
				log.Debug().Int("removed", n).Msg("Series cache pruned")
			}
		}
	}
}

// GetStats returns cache statistics
func (c *SeriesCache) GetStats() CacheStats {
	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()

	hits, misses := c.hits.Load(), c.misses.Load()
	hitRate := float64(0)
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return CacheStats{
		Size:    size,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
	}
}
