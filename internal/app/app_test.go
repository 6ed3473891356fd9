package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/domain/simulation"
	"github.com/hamsalma/finance-site/internal/pkg/config"
)

// writePrices writes a monthly CSV from 2010 to 2024 with price(i)
func writePrices(t *testing.T, dir, ticker string, price func(i int) float64) {
	t.Helper()

	var b strings.Builder
	b.WriteString("date,close\n")
	for i, d := 0, market.YearStart(2010); d.Year() < 2025; i, d = i+1, d.AddDate(0, 1, 0) {
		fmt.Fprintf(&b, "%s,%.4f\n", d.Format(market.DateLayout), price(i))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ticker+".csv"), []byte(b.String()), 0o644))
}

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	writePrices(t, dir, "ACWI", func(i int) float64 { return 50 + 0.5*float64(i) })
	writePrices(t, dir, "^GSPC", func(i int) float64 { return 1000 + 10*float64(i%12) })

	return &config.Config{
		Cache: config.CacheConfig{
			Backend:        backend,
			TTL:            time.Hour,
			SQLitePath:     filepath.Join(dir, "cache.db"),
			PruneInterval:  time.Minute,
			StoreRetention: 24 * time.Hour,
		},
		MarketData: config.MarketDataConfig{
			Source:          "csv",
			CSVDir:          dir,
			FetchTimeout:    time.Second,
			BenchmarkTicker: "ACWI",
		},
		Simulation: config.SimulationConfig{
			ConfidenceLevel: 0.95,
			RollingWindow:   12,
			ForecastHorizon: 12,
		},
	}
}

func TestNew_MemoryBackend(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, "memory"))
	require.NoError(t, err)
	defer a.Close()

	deps := a.Deps()
	assert.Nil(t, deps.Store)
	assert.NotNil(t, deps.Simulation)
	assert.Equal(t, "csv", a.Provider.GetStats().Vendor)

	out, err := a.Simulation.Simulate(context.Background(), simulation.Inputs{
		MontantInitial: decimal.NewFromInt(1000),
		Contribution:   decimal.NewFromInt(100),
		Frequence:      simulation.Mensuelle,
		DateDebut:      2015,
		DateFin:        2020,
		Instrument:     market.Instrument{AssetClass: market.ETF, Ticker: "ACWI"},
	})
	require.NoError(t, err)
	assert.Len(t, out.Resultats.Historique, 61)
	assert.Greater(t, out.Resultats.RendementTotal, 0.0)

	// second request is served from memory
	_, err = a.Simulation.Simulate(context.Background(), out.Inputs)
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.Provider.GetStats().VendorCalls)
}

func TestNew_SQLiteBackend(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, "sqlite"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer a.Close()

	require.NotNil(t, a.Deps().Store)
	assert.True(t, a.Provider.GetStats().Store)
	assert.NoError(t, a.Deps().Store.Ping(context.Background()))

	_, err = a.Simulation.CompareStrategies(context.Background(),
		market.Instrument{AssetClass: market.Actions, Ticker: "^GSPC"}, decimal.NewFromInt(5000), 2012, 2018)
	require.NoError(t, err)

	a.PurgeStore(context.Background())
}

func TestNew_UnknownBenchmark(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.MarketData.BenchmarkTicker = "NOPE"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
