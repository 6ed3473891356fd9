// Package benchmark compares a simulated portfolio with the same cash flows
// invested in a reference index.
package benchmark

import (
	"time"

	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/domain/simulation"
	"github.com/hamsalma/finance-site/internal/pkg/apperr"
	"github.com/hamsalma/finance-site/internal/service/analytics"
	"github.com/hamsalma/finance-site/internal/service/portfolio"
)

// Comparator replays user schedules on a benchmark series
type Comparator struct {
	simulator *portfolio.Simulator
}

// NewComparator creates a Comparator
func NewComparator(simulator *portfolio.Simulator) *Comparator {
	return &Comparator{simulator: simulator}
}

// Compare invests schedule in benchmark and aligns the result with the
// user's valuation by date. Both returns are measured on the capital of
// schedule; Ecart is portfolio minus benchmark in percentage points.
func (c *Comparator) Compare(user []simulation.ValuationPoint, schedule []simulation.ContributionEvent, benchmark market.PriceSeries, end time.Time) (*simulation.BenchmarkComparison, error) {
	bench, err := c.simulator.Simulate(schedule, benchmark, end)
	if err != nil {
		return nil, err
	}

	rows := Align(user, bench)
	if len(rows) == 0 {
		return nil, apperr.InsufficientData(simulation.ErrNoOverlap, "aucune date commune entre le portefeuille et l'indice de référence")
	}

	invested := simulation.TotalAmount(schedule).InexactFloat64()
	last := rows[len(rows)-1]

	result := &simulation.BenchmarkComparison{
		Rows:                  rows,
		Invested:              invested,
		RendementPortefeuille: analytics.TotalReturn(last.Portefeuille, invested),
		RendementBenchmark:    analytics.TotalReturn(last.Benchmark, invested),
	}
	result.Ecart = result.RendementPortefeuille - result.RendementBenchmark
	result.Classification = analytics.ClassifySpread(result.Ecart)

	return result, nil
}

// Align pairs user and benchmark valuations falling in the same month
func Align(user, bench []simulation.ValuationPoint) []simulation.BenchmarkRow {
	byMonth := make(map[time.Time]float64, len(bench))
	for _, p := range bench {
		byMonth[monthKey(p.Date)] = p.Value
	}

	rows := make([]simulation.BenchmarkRow, 0, len(user))
	for _, p := range user {
		v, ok := byMonth[monthKey(p.Date)]
		if !ok {
			continue
		}
		rows = append(rows, simulation.BenchmarkRow{Date: p.Date, Portefeuille: p.Value, Benchmark: v})
	}
	return rows
}

func monthKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
