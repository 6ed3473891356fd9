package benchmark

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/domain/simulation"
	"github.com/hamsalma/finance-site/internal/pkg/apperr"
	"github.com/hamsalma/finance-site/internal/service/portfolio"
)

func series(start time.Time, months int, price func(i int) float64) market.PriceSeries {
	s := make(market.PriceSeries, months)
	for i := range s {
		s[i] = market.PricePoint{Date: start.AddDate(0, i, 0), Price: price(i)}
	}
	return s
}

type fixture struct {
	start, end time.Time
	schedule   []simulation.ContributionEvent
	sim        *portfolio.Simulator
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	start, end := market.YearStart(2018), market.YearStart(2021)
	schedule, err := portfolio.GenerateSchedule(start, end, simulation.Trimestrielle, decimal.NewFromInt(5000), decimal.NewFromInt(250))
	require.NoError(t, err)
	return fixture{start: start, end: end, schedule: schedule, sim: portfolio.NewSimulator(0)}
}

func TestCompare_IdenticalSeriesHasNoSpread(t *testing.T) {
	f := newFixture(t)
	prices := series(f.start, 37, func(i int) float64 { return 100 + 3*float64(i%7) })

	user, err := f.sim.Simulate(f.schedule, prices, f.end)
	require.NoError(t, err)

	res, err := NewComparator(f.sim).Compare(user, f.schedule, prices, f.end)
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Ecart)
	assert.Equal(t, simulation.InLine, res.Classification)
	assert.Equal(t, res.RendementPortefeuille, res.RendementBenchmark)
	require.Len(t, res.Rows, len(user))
	for _, row := range res.Rows {
		assert.Equal(t, row.Portefeuille, row.Benchmark)
	}
	assert.InDelta(t, 5000+12*250, res.Invested, 1e-9)
}

func TestCompare_Bands(t *testing.T) {
	f := newFixture(t)
	flat := series(f.start, 37, func(int) float64 { return 100 })
	rising := series(f.start, 37, func(i int) float64 { return 100 + 2*float64(i) })

	userFlat, err := f.sim.Simulate(f.schedule, flat, f.end)
	require.NoError(t, err)
	userRising, err := f.sim.Simulate(f.schedule, rising, f.end)
	require.NoError(t, err)

	c := NewComparator(f.sim)

	under, err := c.Compare(userFlat, f.schedule, rising, f.end)
	require.NoError(t, err)
	assert.Less(t, under.Ecart, -5.0)
	assert.Equal(t, simulation.StrongUnderperformance, under.Classification)

	over, err := c.Compare(userRising, f.schedule, flat, f.end)
	require.NoError(t, err)
	assert.InDelta(t, -under.Ecart, over.Ecart, 1e-9)
	assert.Equal(t, simulation.StrongOutperformance, over.Classification)
}

func TestCompare_NoOverlap(t *testing.T) {
	f := newFixture(t)
	prices := series(f.start, 37, func(int) float64 { return 100 })

	user := []simulation.ValuationPoint{{Date: market.YearStart(1990), Value: 1}}
	_, err := NewComparator(f.sim).Compare(user, f.schedule, prices, f.end)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientData))
}

func TestAlign_MatchesByMonth(t *testing.T) {
	user := []simulation.ValuationPoint{
		{Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Value: 10},
		{Date: time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), Value: 11},
		{Date: time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), Value: 12},
	}
	bench := []simulation.ValuationPoint{
		{Date: time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC), Value: 20},
		{Date: time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC), Value: 22},
	}

	rows := Align(user, bench)
	require.Len(t, rows, 2)
	assert.Equal(t, 20.0, rows[0].Benchmark)
	assert.Equal(t, 22.0, rows[1].Benchmark)
	assert.Equal(t, user[2].Date, rows[1].Date)
}
