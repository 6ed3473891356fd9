package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/domain/simulation"
	"github.com/hamsalma/finance-site/internal/pkg/apperr"
)

// GenerateSchedule returns the initial investment at start followed by one
// contribution at every period boundary start+k*period (k >= 1) up to and
// including end. end == start yields only the initial event.
func GenerateSchedule(start, end time.Time, freq simulation.Frequency, initial, contribution decimal.Decimal) ([]simulation.ContributionEvent, error) {
	months := freq.Months()
	if months == 0 {
		return nil, apperr.InvalidInput(simulation.ErrUnknownFrequency, "fréquence inconnue")
	}
	start, end = market.Day(start), market.Day(end)
	if end.Before(start) {
		return nil, apperr.InvalidInput(simulation.ErrInvalidDateRange, "end %s before start %s",
			end.Format(market.DateLayout), start.Format(market.DateLayout))
	}

	events := []simulation.ContributionEvent{{Date: start, Amount: initial, Initial: true}}

	for k := 1; ; k++ {
		// always offset from start so month-end dates never drift
		date := start.AddDate(0, k*months, 0)
		if date.After(end) {
			break
		}
		events = append(events, simulation.ContributionEvent{Date: date, Amount: contribution})
	}

	return events, nil
}

// GenerateEvenSchedule spreads total evenly over the boundaries
// start+k*period (k >= 0) strictly before end. Amounts are truncated to the
// cent and the last event absorbs the remainder, so the schedule always sums
// to exactly total.
func GenerateEvenSchedule(start, end time.Time, freq simulation.Frequency, total decimal.Decimal) ([]simulation.ContributionEvent, error) {
	months := freq.Months()
	if months == 0 {
		return nil, apperr.InvalidInput(simulation.ErrUnknownFrequency, "fréquence inconnue")
	}
	start, end = market.Day(start), market.Day(end)
	if !end.After(start) {
		return []simulation.ContributionEvent{{Date: start, Amount: total, Initial: true}}, nil
	}

	var dates []time.Time
	for k := 0; ; k++ {
		date := start.AddDate(0, k*months, 0)
		if !date.Before(end) {
			break
		}
		dates = append(dates, date)
	}

	n := decimal.NewFromInt(int64(len(dates)))
	share := total.Div(n).Truncate(2)

	events := make([]simulation.ContributionEvent, len(dates))
	allocated := decimal.Zero
	for i, date := range dates {
		amount := share
		if i == len(dates)-1 {
			amount = total.Sub(allocated)
		}
		allocated = allocated.Add(amount)
		events[i] = simulation.ContributionEvent{Date: date, Amount: amount, Initial: i == 0}
	}

	return events, nil
}
