package analytics

import (
	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/domain/simulation"
)

// perSmoothingSpan is the EMA span (months) of the earnings proxy
const perSmoothingSpan = 12

// BasePER is the long-run multiple the pedagogical ratio oscillates around
func BasePER(class market.AssetClass) float64 {
	switch class {
	case market.Actions:
		return 16
	case market.Obligations:
		return 12
	case market.ETF:
		return 18
	default:
		return 15
	}
}

// PERSeries is a pedagogical valuation ratio, NOT a fundamental PER:
// earnings are proxied by an EMA of the price divided by BasePER, so the
// ratio rises above BasePER when prices run ahead of their trend.
// Points with a non-positive earnings proxy are skipped.
func PERSeries(points []simulation.ValuationPoint, class market.AssetClass) []simulation.PERPoint {
	out := make([]simulation.PERPoint, 0, len(points))
	if len(points) == 0 {
		return out
	}

	base := BasePER(class)
	alpha := 2.0 / (perSmoothingSpan + 1)
	ema := points[0].Price

	for i, p := range points {
		if i > 0 {
			ema = alpha*p.Price + (1-alpha)*ema
		}
		earnings := ema / base
		if earnings <= 0 {
			continue
		}
		out = append(out, simulation.PERPoint{Date: p.Date, PER: p.Price / earnings})
	}
	return out
}
