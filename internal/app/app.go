// Package app assembles the engine from configuration: vendor, cache store,
// provider and simulation service. Both the HTTP server and the CLI build
// on it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hamsalma/finance-site/internal/api"
	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/infra/csvfeed"
	"github.com/hamsalma/finance-site/internal/infra/database/postgres"
	"github.com/hamsalma/finance-site/internal/infra/database/sqlite"
	"github.com/hamsalma/finance-site/internal/infra/yahoo"
	"github.com/hamsalma/finance-site/internal/pkg/config"
	"github.com/hamsalma/finance-site/internal/service/marketdata"
	"github.com/hamsalma/finance-site/internal/service/simulation"
)

// durableStore is a SeriesStore the maintenance loop can purge
type durableStore interface {
	market.SeriesStore
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
}

// App holds the wired components
type App struct {
	Config     *config.Config
	Universe   *market.Universe
	Provider   *marketdata.Provider
	Simulation *simulation.Service

	store   durableStore // nil with the memory backend
	closers []func()
}

// New wires every component described by cfg
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Universe: market.DefaultUniverse()}

	bench, err := a.Universe.Instrument(cfg.MarketData.BenchmarkTicker)
	if err != nil {
		return nil, fmt.Errorf("benchmark ticker: %w", err)
	}

	vendor, err := newVendor(cfg)
	if err != nil {
		return nil, err
	}

	if err := a.openStore(ctx, cfg); err != nil {
		return nil, err
	}

	opts := []marketdata.Option{}
	if a.store != nil {
		opts = append(opts, marketdata.WithStore(a.store))
	}
	a.Provider = marketdata.NewProvider(a.Universe, vendor, marketdata.Config{
		TTL:          cfg.Cache.TTL,
		FetchTimeout: cfg.MarketData.FetchTimeout,
		RetryBackoff: cfg.MarketData.RetryBackoff,
	}, opts...)

	a.Simulation = simulation.NewService(a.Provider, simulation.Config{
		FeeRate:         cfg.Simulation.FeeRate,
		RiskFreeRate:    cfg.Simulation.RiskFreeRate,
		RollingWindow:   cfg.Simulation.RollingWindow,
		ConfidenceLevel: cfg.Simulation.ConfidenceLevel,
		ForecastHorizon: cfg.Simulation.ForecastHorizon,
		Benchmark:       bench,
	})

	log.Info().
		Str("vendor", vendor.Name()).
		Str("cache_backend", cfg.Cache.Backend).
		Dur("cache_ttl", cfg.Cache.TTL).
		Str("benchmark", bench.Ticker).
		Msg("✅ Simulation engine ready")

	return a, nil
}

func newVendor(cfg *config.Config) (market.Vendor, error) {
	switch cfg.MarketData.Source {
	case "yahoo":
		return yahoo.NewClient(cfg.MarketData.YahooBaseURL, cfg.MarketData.YahooPageURL, cfg.MarketData.FetchTimeout), nil
	case "csv":
		return csvfeed.New(cfg.MarketData.CSVDir), nil
	default:
		return nil, fmt.Errorf("unknown market data source %q", cfg.MarketData.Source)
	}
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.Cache.Backend {
	case "memory":
		return nil

	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect series cache database: %w", err)
		}
		repo := postgres.NewSeriesRepository(pool.Pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return err
		}
		a.store = pgStore{SeriesRepository: repo, pool: pool}
		a.closers = append(a.closers, pool.Close)
		return nil

	case "sqlite":
		store, err := sqlite.Open(cfg.Cache.SQLitePath)
		if err != nil {
			return err
		}
		a.store = store
		a.closers = append(a.closers, func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close SQLite series cache")
			}
		})
		return nil

	default:
		return fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// pgStore adds the pool's health check to the repository
type pgStore struct {
	*postgres.SeriesRepository
	pool *postgres.Pool
}

func (s pgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Health reports the pool counters on /api/health
func (s pgStore) Health(ctx context.Context) *postgres.HealthStatus {
	return s.pool.Health(ctx)
}

// Deps returns what the HTTP router needs
func (a *App) Deps() api.Deps {
	deps := api.Deps{
		Simulation: a.Simulation,
		Provider:   a.Provider,
		Universe:   a.Universe,
	}
	if a.store != nil {
		deps.Store = a.store
	}
	return deps
}

// RunMaintenance prunes the memory cache and purges old durable entries
// until ctx is done
func (a *App) RunMaintenance(ctx context.Context) {
	interval := a.Config.Cache.PruneInterval

	go a.Provider.Cache().Run(ctx, interval)

	if a.store == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.PurgeStore(ctx)
		}
	}
}

// PurgeStore deletes durable entries older than the configured retention
func (a *App) PurgeStore(ctx context.Context) {
	if a.store == nil {
		return
	}

	cutoff := time.Now().Add(-a.Config.Cache.StoreRetention)
	n, err := a.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to purge series cache store")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("🧹 Purged expired series from cache store")
	}
}

// Close releases the store connections
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
