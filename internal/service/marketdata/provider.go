// Package marketdata resolves price series for instruments, in front of a
// vendor, with a two-level TTL cache and per-key single-flight.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/pkg/apperr"
)

// clampTolerance absorbs the gap between a window start and the first
// monthly quotation of a fully covered window
const clampTolerance = 31 * 24 * time.Hour

// Config holds provider settings
type Config struct {
	TTL          time.Duration
	FetchTimeout time.Duration
	RetryBackoff time.Duration
}

// Stats is the provider state reported by the health route
type Stats struct {
	Vendor      string     `json:"vendor"`
	Store       bool       `json:"store"`
	VendorCalls int64      `json:"vendor_calls"`
	Cache       CacheStats `json:"cache"`
}

// Provider serves price series for instruments of a universe
type Provider struct {
	universe *market.Universe
	vendor   market.Vendor
	store    market.SeriesStore // optional second level
	cache    *SeriesCache
	sf       singleflight.Group
	cfg      Config
	now      func() time.Time

	vendorCalls atomic.Int64
}

// Option customizes a Provider
type Option func(*Provider)

// WithStore adds a durable second-level cache
func WithStore(store market.SeriesStore) Option {
	return func(p *Provider) { p.store = store }
}

// WithClock replaces time.Now (tests)
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// NewProvider creates a new Provider
func NewProvider(universe *market.Universe, vendor market.Vendor, cfg Config, opts ...Option) *Provider {
	p := &Provider{
		universe: universe,
		vendor:   vendor,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cache = NewSeriesCache(cfg.TTL, p.now)
	return p
}

// Cache exposes the first-level cache (pruning loop, stats)
func (p *Provider) Cache() *SeriesCache {
	return p.cache
}

// GetPriceSeries returns the series of inst over [1 Jan dateDebut, 1 Jan
// dateFin]. When the vendor's history starts later the window is clamped
// and reported through Clamped/Warning.
//
// Concurrent calls for one key share a single vendor call. That call is
// detached from ctx: a caller that gives up returns ctx's error while the
// fetch still completes and fills the cache.
func (p *Provider) GetPriceSeries(ctx context.Context, inst market.Instrument, dateDebut, dateFin int) (*market.SeriesResult, error) {
	info, ok := p.universe.Lookup(inst.Ticker)
	if !ok {
		return nil, apperr.DataUnavailable(market.ErrUnknownTicker, false, "ticker inconnu: %s", inst.Ticker)
	}
	if inst.AssetClass != market.AssetClassUnknown && inst.AssetClass != info.AssetClass {
		return nil, apperr.DataUnavailable(market.ErrTickerClassMismatch, false, "%s n'appartient pas à la classe %s", info.Ticker, inst.AssetClass)
	}
	inst = market.Instrument{AssetClass: info.AssetClass, Ticker: info.Ticker}

	key := market.SeriesKey{Ticker: info.Ticker, From: market.YearStart(dateDebut), To: market.YearStart(dateFin)}

	if entry, ok := p.cache.Get(key); ok {
		return p.result(inst, entry, market.SourceMemory), nil
	}

	detached := context.WithoutCancel(ctx)
	ch := p.sf.DoChan(key.String(), func() (interface{}, error) {
		return p.loadShared(detached, key)
	})

	select {
	case <-ctx.Done():
		return nil, apperr.DataUnavailable(ctx.Err(), true, "requête interrompue pendant le chargement de %s", key.Ticker)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		loaded := res.Val.(*loadResult)
		return p.result(inst, loaded.entry, loaded.source), nil
	}
}

type loadResult struct {
	entry  *market.CachedSeries
	source market.Source
}

// loadShared is the body of a flight. A flight that ended between the
// caller's cache miss and this one starting has already filled the cache.
func (p *Provider) loadShared(ctx context.Context, key market.SeriesKey) (*loadResult, error) {
	if entry, ok := p.cache.peek(key); ok {
		return &loadResult{entry: entry, source: market.SourceMemory}, nil
	}
	return p.load(ctx, key)
}

// load runs once per key at a time: store first, then the vendor
func (p *Provider) load(ctx context.Context, key market.SeriesKey) (*loadResult, error) {
	if p.store != nil {
		entry, err := p.store.Get(ctx, key)
		switch {
		case err == nil && p.cache.Fresh(entry):
			p.cache.Put(entry)
			return &loadResult{entry: entry, source: market.SourceStore}, nil
		case err != nil && !errors.Is(err, market.ErrSeriesNotCached):
			log.Warn().Err(err).Str("key", key.String()).Msg("Series store read failed, falling back to vendor")
		}
	}

	series, err := p.fetchWithRetry(ctx, key)
	if err != nil {
		return nil, err
	}

	series = market.Normalize(series).Window(key.From, key.To)
	if len(series) == 0 {
		return nil, apperr.DataUnavailable(market.ErrNoDataInWindow, false,
			"aucune donnée pour %s entre %s et %s", key.Ticker, key.From.Format(market.DateLayout), key.To.Format(market.DateLayout))
	}

	entry := &market.CachedSeries{
		Key:       key,
		Series:    series,
		Clamped:   series[0].Date.Sub(key.From) > clampTolerance,
		FetchedAt: p.now(),
	}
	p.cache.Put(entry)

	if p.store != nil {
		if err := p.store.Put(ctx, *entry); err != nil {
			log.Warn().Err(err).Str("key", key.String()).Msg("Series store write failed")
		}
	}

	log.Info().
		Str("ticker", key.Ticker).
		Str("vendor", p.vendor.Name()).
		Int("points", len(series)).
		Bool("clamped", entry.Clamped).
		Msg("Price series fetched")

	return &loadResult{entry: entry, source: market.SourceVendor}, nil
}

// fetchWithRetry retries a retryable failure once after RetryBackoff
func (p *Provider) fetchWithRetry(ctx context.Context, key market.SeriesKey) (market.PriceSeries, error) {
	series, err := p.fetchOnce(ctx, key)
	if err == nil || !apperr.IsRetryable(err) {
		return series, err
	}

	log.Warn().Err(err).Str("ticker", key.Ticker).Dur("backoff", p.cfg.RetryBackoff).Msg("Vendor fetch failed, retrying")

	timer := time.NewTimer(p.cfg.RetryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, apperr.DataUnavailable(ctx.Err(), true, "chargement de %s annulé", key.Ticker)
	case <-timer.C:
	}

	return p.fetchOnce(ctx, key)
}

func (p *Provider) fetchOnce(ctx context.Context, key market.SeriesKey) (market.PriceSeries, error) {
	p.vendorCalls.Add(1)

	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()

	series, err := p.vendor.FetchHistory(fetchCtx, key.Ticker, key.From, key.To)
	if err != nil {
		return nil, classify(err, key.Ticker)
	}
	return series, nil
}

// classify maps vendor errors onto the error taxonomy
func classify(err error, ticker string) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, market.ErrVendorTimeout):
		return apperr.DataUnavailable(fmt.Errorf("%w: %v", market.ErrVendorTimeout, err), true, "délai dépassé pour %s", ticker)
	case errors.Is(err, market.ErrUnknownTicker), errors.Is(err, market.ErrNoDataInWindow):
		return apperr.DataUnavailable(err, false, "données indisponibles pour %s", ticker)
	case errors.Is(err, market.ErrVendorResponse):
		return apperr.DataUnavailable(err, false, "réponse invalide du fournisseur pour %s", ticker)
	default:
		// vendor 5xx, 429 and transport errors
		return apperr.DataUnavailable(err, true, "fournisseur de données indisponible pour %s", ticker)
	}
}

func (p *Provider) result(inst market.Instrument, entry *market.CachedSeries, source market.Source) *market.SeriesResult {
	res := &market.SeriesResult{
		Instrument:    inst,
		Series:        entry.Series,
		RequestedFrom: entry.Key.From,
		RequestedTo:   entry.Key.To,
		EffectiveFrom: entry.Key.From,
		Clamped:       entry.Clamped,
		Source:        source,
	}
	if entry.Clamped && len(entry.Series) > 0 {
		res.EffectiveFrom = entry.Series[0].Date
		res.Warning = fmt.Sprintf("historique de %s disponible à partir du %s seulement: la période a été ajustée",
			inst.Ticker, res.EffectiveFrom.Format(market.DateLayout))
	}
	return res
}

// Warm loads every instrument's window concurrently (at most limit fetches
// at once) and returns the first error
func (p *Provider) Warm(ctx context.Context, instruments []market.Instrument, dateDebut, dateFin, limit int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, inst := range instruments {
		inst := inst
		g.Go(func() error {
			if _, err := p.GetPriceSeries(gctx, inst, dateDebut, dateFin); err != nil {
				return fmt.Errorf("warm %s: %w", inst.Ticker, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// GetStats reports provider and cache statistics
func (p *Provider) GetStats() Stats {
	return Stats{
		Vendor:      p.vendor.Name(),
		Store:       p.store != nil,
		VendorCalls: p.vendorCalls.Load(),
		Cache:       p.cache.GetStats(),
	}
}
