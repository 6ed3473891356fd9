package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/domain/simulation"
	"github.com/hamsalma/finance-site/internal/pkg/apperr"
)

func month(i int) time.Time {
	return time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0)
}

// points builds a series of values with the given inflow at each step
func points(values []float64, flows []float64) []simulation.ValuationPoint {
	out := make([]simulation.ValuationPoint, len(values))
	for i, v := range values {
		out[i] = simulation.ValuationPoint{Date: month(i), Value: v, Price: v}
		if flows != nil {
			out[i].Flow = flows[i]
		}
	}
	return out
}

func returnsOf(rs ...float64) []simulation.PeriodicReturn {
	out := make([]simulation.PeriodicReturn, len(rs))
	for i, r := range rs {
		out[i] = simulation.PeriodicReturn{Date: month(i + 1), Rendement: r}
	}
	return out
}

func TestTotalReturnAndCAGR(t *testing.T) {
	assert.InDelta(t, 10.0, TotalReturn(1100, 1000), 1e-9)
	assert.Equal(t, 0.0, TotalReturn(1100, 0))

	// doubling over 10 years
	assert.InDelta(t, 7.1773, CAGR(2000, 1000, 10), 1e-4)
	assert.Equal(t, 0.0, CAGR(2000, 1000, 0))
	assert.Equal(t, 0.0, CAGR(2000, 0, 5))
	assert.Equal(t, -100.0, CAGR(0, 1000, 5))
}

func TestYears(t *testing.T) {
	assert.Equal(t, 1.0, Years(points(make([]float64, 13), nil)))
	assert.Equal(t, 0.0, Years(points([]float64{1}, nil)))
}

func TestPeriodicReturns_FlowAdjusted(t *testing.T) {
	// 1000 -> 1100 with 100 contributed is a flat step
	rs := PeriodicReturns(points([]float64{1000, 1100, 1210}, []float64{1000, 100, 0}))
	require.Len(t, rs, 2)
	assert.Equal(t, 0.0, rs[0].Rendement)
	assert.InDelta(t, 10.0, rs[1].Rendement, 1e-9)
	assert.Equal(t, month(2), rs[1].Date)
}

func TestPeriodicReturns_SkipsZeroBase(t *testing.T) {
	rs := PeriodicReturns(points([]float64{0, 100, 110}, []float64{0, 100, 0}))
	require.Len(t, rs, 1)
	assert.InDelta(t, 10.0, rs[0].Rendement, 1e-9)
}

func TestVolatility(t *testing.T) {
	t.Run("constant returns", func(t *testing.T) {
		vol, err := Volatility(returnsOf(1, 1, 1, 1), 12)
		require.NoError(t, err)
		assert.Equal(t, 0.0, vol)
	})

	t.Run("annualized", func(t *testing.T) {
		vol, err := Volatility(returnsOf(1, -1), 12)
		require.NoError(t, err)
		assert.InDelta(t, math.Sqrt2*math.Sqrt(12), vol, 1e-9)
	})

	t.Run("too few returns", func(t *testing.T) {
		_, err := Volatility(returnsOf(1), 12)
		assert.True(t, apperr.IsKind(err, apperr.KindInsufficientData))
	})
}

func TestSharpe(t *testing.T) {
	s, err := Sharpe(returnsOf(0, 0, 0), 12, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s, "zero volatility gives zero sharpe")

	rs := returnsOf(2, 0, 2, 0)
	vol, _ := Volatility(rs, 12)
	s, err = Sharpe(rs, 12, 0.02)
	require.NoError(t, err)
	assert.InDelta(t, (1.0*12-2)/vol, s, 1e-9)
}

func TestRollingSharpe(t *testing.T) {
	assert.Empty(t, RollingSharpe(returnsOf(1, 2), 3, 12, 0))

	rs := returnsOf(1, 2, 3, 4, 5)
	rolling := RollingSharpe(rs, 3, 12, 0)
	require.Len(t, rolling, 3)
	assert.Equal(t, rs[2].Date, rolling[0].Date)
	assert.Equal(t, rs[4].Date, rolling[2].Date)

	full, _ := Sharpe(rs[2:], 12, 0)
	assert.InDelta(t, full, rolling[2].Sharpe, 1e-9)
}

func TestMaxDrawdown(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown(returnsOf(1, 2, 3)))
	// 100 -> 110 -> 55 -> 66
	assert.InDelta(t, 50.0, MaxDrawdown(returnsOf(10, -50, 20)), 1e-9)
}

func TestPERSeries(t *testing.T) {
	flat := PERSeries(points([]float64{100, 100, 100}, nil), market.Actions)
	require.Len(t, flat, 3)
	for _, p := range flat {
		assert.InDelta(t, BasePER(market.Actions), p.PER, 1e-9)
	}

	rising := PERSeries(points([]float64{100, 200}, nil), market.Actions)
	require.Len(t, rising, 2)
	assert.Greater(t, rising[1].PER, BasePER(market.Actions), "price ahead of trend lifts the ratio")

	assert.Empty(t, PERSeries(nil, market.Actions))
	assert.Len(t, PERSeries(points([]float64{0, 100}, nil), market.Actions), 1, "non-positive proxy skipped")
}
