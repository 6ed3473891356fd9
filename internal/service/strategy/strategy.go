// Package strategy replays the same capital under lump-sum and DCA timing
// and ranks the outcomes.
package strategy

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/domain/simulation"
	"github.com/hamsalma/finance-site/internal/service/analytics"
	"github.com/hamsalma/finance-site/internal/service/portfolio"
)

// returns closer than this rank as a tie
const tieTolerance = 1e-9

// Comparator runs every strategy through one Simulator
type Comparator struct {
	simulator *portfolio.Simulator
}

// NewComparator creates a Comparator
func NewComparator(simulator *portfolio.Simulator) *Comparator {
	return &Comparator{simulator: simulator}
}

// Compare invests capital over [start, end] as a lump sum at start and as
// an even DCA at every frequency. All strategies deploy exactly capital.
func (c *Comparator) Compare(series market.PriceSeries, capital decimal.Decimal, start, end time.Time) (*simulation.StrategyComparison, error) {
	comparison := &simulation.StrategyComparison{
		Outcomes: make(map[simulation.StrategyName]*simulation.StrategyOutcome, len(simulation.StrategyNames)),
	}

	lump := []simulation.ContributionEvent{{Date: market.Day(start), Amount: capital, Initial: true}}
	if err := c.run(comparison, simulation.LumpSum, lump, series, end); err != nil {
		return nil, err
	}

	for _, freq := range simulation.Frequencies {
		events, err := portfolio.GenerateEvenSchedule(start, end, freq, capital)
		if err != nil {
			return nil, err
		}
		if err := c.run(comparison, simulation.DCAStrategy(freq), events, series, end); err != nil {
			return nil, err
		}
	}

	comparison.Ranking = Rank(comparison.Outcomes)
	return comparison, nil
}

func (c *Comparator) run(comp *simulation.StrategyComparison, name simulation.StrategyName, events []simulation.ContributionEvent, series market.PriceSeries, end time.Time) error {
	points, err := c.simulator.Simulate(events, series, end)
	if err != nil {
		return fmt.Errorf("strategy %s: %w", name, err)
	}

	invested := simulation.TotalAmount(events)
	outcome := &simulation.StrategyOutcome{
		Name:           name,
		Events:         events,
		Points:         points,
		TotalInvested:  invested,
		RendementTotal: analytics.TotalReturn(portfolio.FinalValue(points), invested.InexactFloat64()),
	}

	// a single return has no spread; treat as riskless for tie-breaking
	if vol, err := analytics.Volatility(analytics.PeriodicReturns(points), portfolio.PeriodsPerYear); err == nil {
		outcome.Volatilite = vol
	}

	comp.Outcomes[name] = outcome
	return nil
}

// Rank orders strategies by total return, best first; ties go to the lower
// volatility, then to wire order
func Rank(outcomes map[simulation.StrategyName]*simulation.StrategyOutcome) []simulation.StrategyName {
	ranking := make([]simulation.StrategyName, 0, len(outcomes))
	for _, name := range simulation.StrategyNames {
		if _, ok := outcomes[name]; ok {
			ranking = append(ranking, name)
		}
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		a, b := outcomes[ranking[i]], outcomes[ranking[j]]
		if math.Abs(a.RendementTotal-b.RendementTotal) > tieTolerance {
			return a.RendementTotal > b.RendementTotal
		}
		return a.Volatilite < b.Volatilite
	})
	return ranking
}

// =============================================================================
// Chart rows
// =============================================================================

// Row is one date of the strategy chart: the value of every strategy
type Row struct {
	Date   time.Time
	Values map[simulation.StrategyName]float64
}

func (r Row) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Values)+1)
	m["date"] = r.Date.Format(market.DateLayout)
	for name, v := range r.Values {
		m[string(name)] = math.Round(v*100) / 100
	}
	return json.Marshal(m)
}

// Rows aligns the strategy valuations by date. Dates missing for a
// strategy carry its previous value.
func Rows(comp *simulation.StrategyComparison) []Row {
	dates := map[time.Time]struct{}{}
	for _, o := range comp.Outcomes {
		for _, p := range o.Points {
			dates[p.Date] = struct{}{}
		}
	}

	ordered := make([]time.Time, 0, len(dates))
	for d := range dates {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	rows := make([]Row, len(ordered))
	for i, d := range ordered {
		rows[i] = Row{Date: d, Values: make(map[simulation.StrategyName]float64, len(comp.Outcomes))}
	}

	for name, o := range comp.Outcomes {
		j, last := 0, 0.0
		for i, d := range ordered {
			for j < len(o.Points) && !o.Points[j].Date.After(d) {
				last = o.Points[j].Value
				j++
			}
			rows[i].Values[name] = last
		}
	}
	return rows
}

// Returns maps each strategy to its total return in percent
func Returns(comp *simulation.StrategyComparison) map[simulation.StrategyName]float64 {
	out := make(map[simulation.StrategyName]float64, len(comp.Outcomes))
	for name, o := range comp.Outcomes {
		out[name] = o.RendementTotal
	}
	return out
}
