package analytics

import "github.com/hamsalma/finance-site/internal/domain/simulation"

// Thresholds of the narrative bands, in the unit of each metric
const (
	cagrLow      = 3.0
	cagrModerate = 7.0
	cagrHigh     = 12.0

	volLow      = 5.0
	volModerate = 12.0
	volHigh     = 20.0

	sharpeLow      = 0.5
	sharpeModerate = 1.0
	sharpeHigh     = 2.0

	// SpreadInLine and SpreadStrong bound the benchmark spread bands (pp)
	SpreadInLine = 1.0
	SpreadStrong = 5.0
)

// ClassifyCAGR bands an annual growth rate in percent
func ClassifyCAGR(cagr float64) simulation.Band {
	switch {
	case cagr < 0:
		return simulation.BandNegative
	case cagr < cagrLow:
		return simulation.BandLow
	case cagr < cagrModerate:
		return simulation.BandModerate
	case cagr < cagrHigh:
		return simulation.BandHigh
	default:
		return simulation.BandVeryHigh
	}
}

// ClassifyVolatility bands an annualized volatility in percent
func ClassifyVolatility(vol float64) simulation.Band {
	switch {
	case vol < volLow:
		return simulation.BandLow
	case vol < volModerate:
		return simulation.BandModerate
	case vol < volHigh:
		return simulation.BandHigh
	default:
		return simulation.BandVeryHigh
	}
}

// ClassifySharpe bands a Sharpe ratio
func ClassifySharpe(s float64) simulation.Band {
	switch {
	case s < 0:
		return simulation.BandNegative
	case s < sharpeLow:
		return simulation.BandLow
	case s < sharpeModerate:
		return simulation.BandModerate
	case s < sharpeHigh:
		return simulation.BandHigh
	default:
		return simulation.BandVeryHigh
	}
}

// ClassifySpread bands a portfolio-minus-benchmark spread in percentage points
func ClassifySpread(ecart float64) simulation.PerformanceBand {
	switch {
	case ecart > SpreadStrong:
		return simulation.StrongOutperformance
	case ecart > SpreadInLine:
		return simulation.Outperformance
	case ecart >= -SpreadInLine:
		return simulation.InLine
	case ecart >= -SpreadStrong:
		return simulation.Underperformance
	default:
		return simulation.StrongUnderperformance
	}
}
