package simulation

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/domain/simulation"
	"github.com/hamsalma/finance-site/internal/pkg/apperr"
	"github.com/hamsalma/finance-site/internal/service/analytics"
)

// ==============================================================================
// fake price source
// ==============================================================================

type fakePrices struct {
	mu      sync.Mutex
	calls   []string
	price   map[string]func(i int) float64 // ticker → monthly price
	startAt map[string]time.Time           // ticker → first quotation
	warning string
}

func newFakePrices() *fakePrices {
	return &fakePrices{price: map[string]func(int) float64{}, startAt: map[string]time.Time{}}
}

func (f *fakePrices) GetPriceSeries(_ context.Context, inst market.Instrument, dateDebut, dateFin int) (*market.SeriesResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, inst.Ticker)
	f.mu.Unlock()

	price, ok := f.price[inst.Ticker]
	if !ok {
		price = func(int) float64 { return 100 }
	}

	from, to := market.YearStart(dateDebut), market.YearStart(dateFin)
	first, warning := from, f.warning
	if at, ok := f.startAt[inst.Ticker]; ok && at.After(from) {
		first, warning = at, "historique de "+inst.Ticker+" ajusté"
	}

	var s market.PriceSeries
	for i, d := 0, first; !d.After(to); i, d = i+1, d.AddDate(0, 1, 0) {
		s = append(s, market.PricePoint{Date: d, Price: price(i)})
	}
	return &market.SeriesResult{
		Instrument:    inst,
		Series:        s,
		RequestedFrom: from,
		RequestedTo:   to,
		EffectiveFrom: first,
		Clamped:       warning != "",
		Warning:       warning,
		Source:        market.SourceVendor,
	}, nil
}

func (f *fakePrices) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

var (
	acwi = market.Instrument{AssetClass: market.ETF, Ticker: "ACWI"}
	gspc = market.Instrument{AssetClass: market.Actions, Ticker: "^GSPC"}
)

func testConfig() Config {
	return Config{
		RollingWindow:   12,
		ConfidenceLevel: 0.95,
		ForecastHorizon: 12,
		Benchmark:       acwi,
	}
}

func newTestService(prices PriceSource) *Service {
	s := NewService(prices, testConfig())
	s.now = func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }
	return s
}

func inputs(initial, contribution int64, freq simulation.Frequency, debut, fin int) simulation.Inputs {
	return simulation.Inputs{
		MontantInitial: decimal.NewFromInt(initial),
		Contribution:   decimal.NewFromInt(contribution),
		Frequence:      freq,
		DateDebut:      debut,
		DateFin:        fin,
		Instrument:     gspc,
	}
}

// ==============================================================================
// Simulate
// ==============================================================================

func TestSimulate_FlatScenario(t *testing.T) {
	s := newTestService(newFakePrices())

	out, err := s.Simulate(context.Background(), inputs(1000, 0, simulation.Mensuelle, 2020, 2021))
	require.NoError(t, err)
	r := out.Resultats

	require.Len(t, r.Historique, 13)
	for _, p := range r.Historique {
		assert.InDelta(t, 1000, p.Value, 1e-9)
	}
	assert.Equal(t, 0.0, r.RendementTotal)
	assert.Equal(t, 0.0, r.CAGR)
	require.NotNil(t, r.Volatilite)
	assert.Equal(t, 0.0, *r.Volatilite)
	require.NotNil(t, r.RatioSharpe)
	assert.Equal(t, 0.0, *r.RatioSharpe)
	assert.True(t, decimal.NewFromInt(1000).Equal(r.MontantTotalInvesti))
	assert.Equal(t, simulation.BandLow, r.Analyse.Volatilite)
	assert.Len(t, r.SharpeRolling, 1)
	assert.Empty(t, r.Avertissements)
}

func TestSimulate_ConstantPriceKeepsCapital(t *testing.T) {
	prices := newFakePrices()
	prices.price["^GSPC"] = func(int) float64 { return 37.3 }
	s := newTestService(prices)

	for _, freq := range simulation.Frequencies {
		t.Run(freq.String(), func(t *testing.T) {
			in := inputs(2500, 0, freq, 2010, 2016)
			in.Contribution = decimal.RequireFromString("33.33")

			out, err := s.Simulate(context.Background(), in)
			require.NoError(t, err)
			r := out.Resultats

			contributions := 6 * 12 / freq.Months()
			want := decimal.NewFromInt(2500).Add(decimal.RequireFromString("33.33").Mul(decimal.NewFromInt(int64(contributions))))
			assert.True(t, want.Equal(r.MontantTotalInvesti), "invested %s", r.MontantTotalInvesti)
			assert.True(t, r.MontantTotalInvesti.Equal(r.PortefeuilleFinal), "final %s, invested %s", r.PortefeuilleFinal, r.MontantTotalInvesti)

			assert.Equal(t, 0.0, r.RendementTotal)
			assert.Equal(t, 0.0, r.CAGR)
			assert.NotEqual(t, simulation.BandNegative, r.Analyse.CAGR)
			require.NotNil(t, r.Volatilite)
			assert.Equal(t, 0.0, *r.Volatilite)
		})
	}
}

func TestSimulate_LateHistoryMovesStart(t *testing.T) {
	prices := newFakePrices()
	prices.startAt["^GSPC"] = time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC)
	prices.price["^GSPC"] = func(i int) float64 { return 100 * math.Pow(1.01, float64(i)) }
	s := newTestService(prices)

	out, err := s.Simulate(context.Background(), inputs(1000, 0, simulation.Mensuelle, 2010, 2020))
	require.NoError(t, err)
	r := out.Resultats

	assert.Equal(t, 2010, out.Inputs.DateDebut)
	assert.Equal(t, "2018-03-01", out.Inputs.DateDebutEffective)

	require.Len(t, r.Historique, 23)
	assert.Equal(t, time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC), r.Historique[0].Date)
	assert.InDelta(t, 1000, r.Historique[0].Value, 1e-9)

	require.Len(t, r.Rendements, 22)
	for _, ret := range r.Rendements {
		assert.InDelta(t, 1.0, ret.Rendement, 1e-9, ret.Date)
	}
	// final value is rounded to the cent
	assert.InDelta(t, (math.Pow(1.01, 12)-1)*100, r.CAGR, 1e-3)
	require.Len(t, r.Avertissements, 1)
	assert.Contains(t, r.Avertissements[0], "^GSPC")
}

func TestEffectiveStart(t *testing.T) {
	requested := market.YearStart(2010)
	late := &market.SeriesResult{Clamped: true, EffectiveFrom: time.Date(2018, 3, 5, 0, 0, 0, 0, time.UTC)}
	later := &market.SeriesResult{Clamped: true, EffectiveFrom: time.Date(2019, 7, 2, 0, 0, 0, 0, time.UTC)}
	onTime := &market.SeriesResult{EffectiveFrom: requested}

	assert.Equal(t, requested, effectiveStart(requested, onTime, nil))
	assert.Equal(t, time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC), effectiveStart(requested, late, onTime))
	assert.Equal(t, time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC), effectiveStart(requested, late, later))
}

func TestSimulate_RejectsBadRangeBeforeFetch(t *testing.T) {
	prices := newFakePrices()
	s := newTestService(prices)

	for _, fin := range []int{2020, 2019} {
		_, err := s.Simulate(context.Background(), inputs(1000, 0, simulation.Mensuelle, 2020, fin))
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
	}
	assert.Empty(t, prices.Calls())
}

func TestSimulate_Duree(t *testing.T) {
	s := newTestService(newFakePrices())

	in := inputs(1000, 100, simulation.Annuelle, 0, 0)
	in.Duree = 5

	out, err := s.Simulate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2019, out.Inputs.DateDebut)
	assert.Equal(t, 2024, out.Inputs.DateFin)
}

func TestSimulate_FeeOverride(t *testing.T) {
	s := newTestService(newFakePrices())

	in := inputs(1000, 0, simulation.Mensuelle, 2020, 2021)
	in.FraisGestion = 1.2

	out, err := s.Simulate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "988.00", out.Resultats.PortefeuilleFinal.StringFixed(2))
	assert.Less(t, out.Resultats.RendementTotal, 0.0)
}

func TestSimulate_Warnings(t *testing.T) {
	prices := newFakePrices()
	prices.warning = "historique ajusté"
	s := newTestService(prices)
	s.cfg.RollingWindow = 36

	out, err := s.Simulate(context.Background(), inputs(1000, 0, simulation.Mensuelle, 2020, 2021))
	require.NoError(t, err)

	r := out.Resultats
	assert.Empty(t, r.SharpeRolling)
	require.Len(t, r.Avertissements, 2)
	assert.Equal(t, "historique ajusté", r.Avertissements[0])
	assert.Contains(t, r.Avertissements[1], "36")
}

// ==============================================================================
// Predict
// ==============================================================================

func TestPredict(t *testing.T) {
	prices := newFakePrices()
	prices.price["ACWI"] = func(i int) float64 { return 100 + float64(i%5) }
	s := newTestService(prices)

	out, err := s.Predict(context.Background(), acwi, 2018, 2021, decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, 36, out.Observations)
	assert.Len(t, out.Historique, 36)
	assert.Equal(t, "95%", out.IntervalleConfiance.Niveau)
	assert.Greater(t, out.EcartsTypes.Sigma1, 0.0)
	assert.Equal(t, acwi, out.Instrument)
}

func TestPredict_LateHistoryMovesStart(t *testing.T) {
	prices := newFakePrices()
	prices.startAt["ACWI"] = time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC)
	prices.price["ACWI"] = func(i int) float64 { return 100 * math.Pow(1.01, float64(i)) }
	s := newTestService(prices)

	out, err := s.Predict(context.Background(), acwi, 2010, 2020, decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, "2018-03-01", out.DateDebutEffective)
	assert.Equal(t, 22, out.Observations)
	require.Len(t, out.Historique, 22)
	assert.Equal(t, "2018-04-01", out.Historique[0].Date)
	for _, p := range out.Historique {
		assert.InDelta(t, 1.0, p.Rendement, 1e-9, p.Date)
	}
	assert.InDelta(t, 0, out.Beta, 1e-9)
}

func TestPredict_RejectsBadInput(t *testing.T) {
	prices := newFakePrices()
	s := newTestService(prices)

	_, err := s.Predict(context.Background(), acwi, 2021, 2021, decimal.Zero)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))

	_, err = s.Predict(context.Background(), acwi, 2018, 2021, decimal.NewFromInt(-1))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))

	assert.Empty(t, prices.Calls())
}

// ==============================================================================
// Strategies
// ==============================================================================

func TestCompareStrategies(t *testing.T) {
	prices := newFakePrices()
	prices.price["ACWI"] = func(i int) float64 { return 50 + float64(i) }
	s := newTestService(prices)

	capital := decimal.NewFromInt(12000)
	out, err := s.CompareStrategies(context.Background(), acwi, capital, 2015, 2020)
	require.NoError(t, err)

	require.Len(t, out.Comparison.Outcomes, 5)
	for _, o := range out.Comparison.Outcomes {
		assert.True(t, capital.Equal(o.TotalInvested))
	}
	assert.Equal(t, simulation.LumpSum, out.Comparison.Ranking[0])

	_, err = s.CompareStrategies(context.Background(), acwi, decimal.Zero, 2015, 2020)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestCompareStrategies_LateHistoryMovesStart(t *testing.T) {
	prices := newFakePrices()
	prices.startAt["ACWI"] = time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC)
	prices.price["ACWI"] = func(i int) float64 { return 100 * math.Pow(1.01, float64(i)) }
	s := newTestService(prices)

	out, err := s.CompareStrategies(context.Background(), acwi, decimal.NewFromInt(12000), 2010, 2020)
	require.NoError(t, err)

	assert.Equal(t, "2018-03-01", out.DateDebutEffective)
	for name, o := range out.Comparison.Outcomes {
		require.NotEmpty(t, o.Points, name)
		assert.Equal(t, time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC), o.Points[0].Date, name)
		assert.Equal(t, time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC), o.Events[0].Date, name)
		for _, ret := range analytics.PeriodicReturns(o.Points) {
			assert.InDelta(t, 1.0, ret.Rendement, 1e-9, "%s %s", name, ret.Date)
		}
	}
	assert.Equal(t, simulation.LumpSum, out.Comparison.Ranking[0])
}

// ==============================================================================
// Benchmark
// ==============================================================================

func TestCompareBenchmark_SameSeriesHasNoSpread(t *testing.T) {
	prices := newFakePrices()
	wavy := func(i int) float64 { return 100 + 10*float64(i%4) }
	prices.price["ACWI"] = wavy
	prices.price["^GSPC"] = wavy
	s := newTestService(prices)

	out, err := s.CompareBenchmark(context.Background(), BenchmarkRequest{
		Inputs: inputs(1000, 100, simulation.Trimestrielle, 2016, 2020),
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, out.Comparison.Ecart)
	assert.Equal(t, simulation.InLine, out.Comparison.Classification)
	assert.Equal(t, acwi, out.Benchmark)
	assert.ElementsMatch(t, []string{"ACWI", "^GSPC"}, prices.Calls())
}

func TestCompareBenchmark_UsesSuppliedHistory(t *testing.T) {
	prices := newFakePrices()
	s := newTestService(prices)

	in := inputs(1000, 0, simulation.Annuelle, 2020, 2021)
	user := []simulation.ValuationPoint{
		{Date: market.YearStart(2020), Value: 1000},
		{Date: market.YearStart(2021), Value: 1100},
	}

	out, err := s.CompareBenchmark(context.Background(), BenchmarkRequest{Inputs: in, Historique: user})
	require.NoError(t, err)

	assert.Equal(t, []string{"ACWI"}, prices.Calls())
	require.Len(t, out.Comparison.Rows, 2)
	assert.InDelta(t, 10.0, out.Comparison.RendementPortefeuille, 1e-9)
	assert.InDelta(t, 0.0, out.Comparison.RendementBenchmark, 1e-9)
	assert.Equal(t, simulation.StrongOutperformance, out.Comparison.Classification)
}

func TestCompareBenchmark_RejectsBadRangeBeforeFetch(t *testing.T) {
	prices := newFakePrices()
	s := newTestService(prices)

	_, err := s.CompareBenchmark(context.Background(), BenchmarkRequest{Inputs: inputs(1000, 0, simulation.Annuelle, 2021, 2020)})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
	assert.Empty(t, prices.Calls())
}

func TestCompareBenchmark_LateBenchmarkMovesStart(t *testing.T) {
	prices := newFakePrices()
	prices.startAt["ACWI"] = time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC)
	prices.price["ACWI"] = func(i int) float64 { return 100 * math.Pow(1.01, float64(i)) }
	s := newTestService(prices)

	out, err := s.CompareBenchmark(context.Background(), BenchmarkRequest{
		Inputs: inputs(1000, 0, simulation.Mensuelle, 2010, 2020),
	})
	require.NoError(t, err)

	assert.Equal(t, "2018-03-01", out.DateDebutEffective)
	rows := out.Comparison.Rows
	require.Len(t, rows, 23)
	assert.Equal(t, time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.InDelta(t, 1000, rows[0].Portefeuille, 1e-9)
	assert.InDelta(t, 1000, rows[0].Benchmark, 1e-9)
	for i := 1; i < len(rows); i++ {
		assert.InDelta(t, 1.01, rows[i].Benchmark/rows[i-1].Benchmark, 1e-12, rows[i].Date)
	}
	assert.InDelta(t, (math.Pow(1.01, 22)-1)*100, out.Comparison.RendementBenchmark, 1e-6)
	assert.Equal(t, 0.0, out.Comparison.RendementPortefeuille)
	require.Len(t, out.Avertissements, 1)
	assert.Contains(t, out.Avertissements[0], "ACWI")
}
