// Package analytics derives risk/return statistics from valuation series.
// Returns are expressed in percent, rates in fractions unless noted.
package analytics

import (
	"math"

	"github.com/hamsalma/finance-site/internal/domain/simulation"
	"github.com/hamsalma/finance-site/internal/pkg/apperr"
)

// zeroTolerance snaps float noise (e.g. flat prices with contributions) to 0
const zeroTolerance = 1e-9

// TotalReturn is (final - invested) / invested in percent, 0 without capital
func TotalReturn(final, invested float64) float64 {
	if invested <= 0 {
		return 0
	}
	return snap((final - invested) / invested * 100)
}

// CAGR is the constant annual rate compounding invested into final, percent.
// Defined as 0 when nothing was invested or the span is empty.
func CAGR(final, invested, years float64) float64 {
	if invested <= 0 || years <= 0 {
		return 0
	}
	if final <= 0 {
		return -100
	}
	return snap((math.Pow(final/invested, 1/years) - 1) * 100)
}

func snap(x float64) float64 {
	if math.Abs(x) < zeroTolerance {
		return 0
	}
	return x
}

// Years returns the span of a monthly valuation series in years
func Years(points []simulation.ValuationPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	first, last := points[0].Date, points[len(points)-1].Date
	months := (last.Year()-first.Year())*12 + int(last.Month()) - int(first.Month())
	return float64(months) / 12
}

// PeriodicReturns computes step returns net of the inflow of each step:
// (V_i - F_i - V_{i-1}) / V_{i-1}. Steps following a zero valuation are
// skipped.
func PeriodicReturns(points []simulation.ValuationPoint) []simulation.PeriodicReturn {
	if len(points) < 2 {
		return []simulation.PeriodicReturn{}
	}

	out := make([]simulation.PeriodicReturn, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Value
		if prev == 0 {
			continue
		}
		r := snap((points[i].Value - points[i].Flow - prev) / prev * 100)
		out = append(out, simulation.PeriodicReturn{Date: points[i].Date, Rendement: r})
	}
	return out
}

// Mean of xs, 0 when empty
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev is the sample standard deviation, 0 below two observations
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	sd := math.Sqrt(ss / float64(len(xs)-1))
	if sd < zeroTolerance {
		return 0
	}
	return sd
}

// Values extracts the return percentages
func Values(returns []simulation.PeriodicReturn) []float64 {
	out := make([]float64, len(returns))
	for i, r := range returns {
		out[i] = r.Rendement
	}
	return out
}

// Volatility is the annualized standard deviation of returns, percent
func Volatility(returns []simulation.PeriodicReturn, periodsPerYear int) (float64, error) {
	if len(returns) < 2 {
		return 0, apperr.InsufficientData(nil, "volatilité: %d rendement(s), 2 requis", len(returns))
	}
	return StdDev(Values(returns)) * math.Sqrt(float64(periodsPerYear)), nil
}

// Sharpe is (annualized mean return - riskFree) / annualized volatility.
// riskFree is an annual fraction. Returns 0 when volatility is 0.
func Sharpe(returns []simulation.PeriodicReturn, periodsPerYear int, riskFree float64) (float64, error) {
	vol, err := Volatility(returns, periodsPerYear)
	if err != nil {
		return 0, err
	}
	return sharpe(Values(returns), vol, periodsPerYear, riskFree), nil
}

func sharpe(values []float64, vol float64, periodsPerYear int, riskFree float64) float64 {
	if vol == 0 {
		return 0
	}
	annualMean := Mean(values) * float64(periodsPerYear)
	return (annualMean - riskFree*100) / vol
}

// RollingSharpe computes the Sharpe ratio over each trailing window of
// returns, one point per period once the window is full. Shorter series
// give an empty result.
func RollingSharpe(returns []simulation.PeriodicReturn, window, periodsPerYear int, riskFree float64) []simulation.RollingPoint {
	if window < 2 || len(returns) < window {
		return []simulation.RollingPoint{}
	}

	values := Values(returns)
	out := make([]simulation.RollingPoint, 0, len(returns)-window+1)
	for i := window; i <= len(values); i++ {
		sub := values[i-window : i]
		vol := StdDev(sub) * math.Sqrt(float64(periodsPerYear))
		out = append(out, simulation.RollingPoint{
			Date:   returns[i-1].Date,
			Sharpe: sharpe(sub, vol, periodsPerYear, riskFree),
		})
	}
	return out
}

// MaxDrawdown is the largest peak-to-trough fall of the return index built
// from flow-adjusted returns, as a positive percent
func MaxDrawdown(returns []simulation.PeriodicReturn) float64 {
	index, peak, worst := 1.0, 1.0, 0.0
	for _, r := range returns {
		index *= 1 + r.Rendement/100
		if index > peak {
			peak = index
		}
		if dd := (peak - index) / peak; dd > worst {
			worst = dd
		}
	}
	return worst * 100
}
