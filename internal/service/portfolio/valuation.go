package portfolio

import (
	"math"
	"sort"
	"time"

	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/domain/simulation"
	"github.com/hamsalma/finance-site/internal/pkg/apperr"
)

// PeriodsPerYear is the density of the valuation grid (month starts)
const PeriodsPerYear = 12

// Simulator replays a contribution schedule against a price series.
// FeeRate is the annual management fee as a fraction, charged monthly as a
// drag on the unit count.
type Simulator struct {
	FeeRate float64
}

// NewSimulator creates a Simulator
func NewSimulator(feeRate float64) *Simulator {
	return &Simulator{FeeRate: feeRate}
}

// Simulate values the portfolio at every month start from the first event
// to end. Each event buys units at the first quotation on/after its
// boundary; boundaries past the data use the last quotation.
func (s *Simulator) Simulate(schedule []simulation.ContributionEvent, series market.PriceSeries, end time.Time) ([]simulation.ValuationPoint, error) {
	if len(schedule) == 0 {
		return nil, apperr.InvalidInput(simulation.ErrEmptySchedule, "aucune contribution à simuler")
	}

	usable := make(market.PriceSeries, 0, len(series))
	for _, p := range series {
		if p.Price > 0 {
			usable = append(usable, p)
		}
	}
	if len(usable) < 2 {
		return nil, apperr.InsufficientData(simulation.ErrTooFewPrices, "série de prix insuffisante (%d points)", len(usable))
	}

	events := make([]simulation.ContributionEvent, len(schedule))
	copy(events, schedule)
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })

	grid := MonthGrid(events[0].Date, end)
	drag := s.monthlyDrag()

	points := make([]simulation.ValuationPoint, 0, len(grid))
	var units, invested float64
	next := 0

	for i, boundary := range grid {
		if i > 0 {
			units *= drag
		}

		quote, _ := usable.PriceOnOrAfter(boundary)

		flow := 0.0
		for next < len(events) && !events[next].Date.After(boundary) {
			flow += events[next].Amount.InexactFloat64()
			next++
		}
		units += flow / quote.Price
		invested += flow

		points = append(points, simulation.ValuationPoint{
			Date:     boundary,
			Value:    units * quote.Price,
			Flow:     flow,
			Invested: invested,
			Units:    units,
			Price:    quote.Price,
		})
	}

	// events dated after end still count, on the last boundary
	if next < len(events) {
		last := &points[len(points)-1]
		for ; next < len(events); next++ {
			amount := events[next].Amount.InexactFloat64()
			last.Flow += amount
			last.Invested += amount
			last.Units += amount / last.Price
		}
		last.Value = last.Units * last.Price
	}

	return points, nil
}

func (s *Simulator) monthlyDrag() float64 {
	if s.FeeRate <= 0 {
		return 1
	}
	return math.Pow(1-s.FeeRate, 1.0/PeriodsPerYear)
}

// MonthGrid returns every month start from start's month to end inclusive
func MonthGrid(start, end time.Time) []time.Time {
	start = market.Day(start)
	b := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	if b.Before(start) {
		b = b.AddDate(0, 1, 0)
	}

	grid := []time.Time{b}
	for {
		b = b.AddDate(0, 1, 0)
		if b.After(end) {
			return grid
		}
		grid = append(grid, b)
	}
}

// FinalValue returns the last valuation, 0 for an empty series
func FinalValue(points []simulation.ValuationPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	return points[len(points)-1].Value
}

// TotalInvested returns the cumulative inflows of a valuation series
func TotalInvested(points []simulation.ValuationPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	return points[len(points)-1].Invested
}
