package strategy

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/domain/simulation"
	"github.com/hamsalma/finance-site/internal/service/portfolio"
)

func linearSeries(start time.Time, months int, first, step float64) market.PriceSeries {
	s := make(market.PriceSeries, months)
	for i := range s {
		s[i] = market.PricePoint{Date: start.AddDate(0, i, 0), Price: first + step*float64(i)}
	}
	return s
}

func compare(t *testing.T, series market.PriceSeries, capital decimal.Decimal, from, to int) *simulation.StrategyComparison {
	t.Helper()
	comp, err := NewComparator(portfolio.NewSimulator(0)).Compare(series, capital, market.YearStart(from), market.YearStart(to))
	require.NoError(t, err)
	return comp
}

func TestCompare_AllStrategiesDeploySameCapital(t *testing.T) {
	capitals := []string{"1000", "10000", "1234.57", "999.99"}
	series := linearSeries(market.YearStart(2015), 61, 100, 1)

	for _, c := range capitals {
		t.Run(c, func(t *testing.T) {
			capital := decimal.RequireFromString(c)
			comp := compare(t, series, capital, 2015, 2020)

			require.Len(t, comp.Outcomes, len(simulation.StrategyNames))
			for name, o := range comp.Outcomes {
				assert.True(t, capital.Equal(o.TotalInvested), "%s invested %s", name, o.TotalInvested)
				assert.True(t, capital.Equal(simulation.TotalAmount(o.Events)), "%s", name)
			}
		})
	}
}

func TestCompare_EventCounts(t *testing.T) {
	comp := compare(t, linearSeries(market.YearStart(2015), 61, 100, 1), decimal.NewFromInt(6000), 2015, 2020)

	assert.Len(t, comp.Outcomes[simulation.LumpSum].Events, 1)
	assert.Len(t, comp.Outcomes[simulation.DCAMensuel].Events, 60)
	assert.Len(t, comp.Outcomes[simulation.DCATrimestriel].Events, 20)
	assert.Len(t, comp.Outcomes[simulation.DCASemestriel].Events, 10)
	assert.Len(t, comp.Outcomes[simulation.DCAAnnuel].Events, 5)
}

func TestCompare_Ranking(t *testing.T) {
	start := market.YearStart(2015)

	t.Run("rising market favours lump sum", func(t *testing.T) {
		comp := compare(t, linearSeries(start, 61, 100, 2), decimal.NewFromInt(1000), 2015, 2020)
		assert.Equal(t, simulation.LumpSum, comp.Ranking[0])
	})

	t.Run("falling market puts lump sum last", func(t *testing.T) {
		comp := compare(t, linearSeries(start, 61, 200, -2), decimal.NewFromInt(1000), 2015, 2020)
		assert.Equal(t, simulation.LumpSum, comp.Ranking[len(comp.Ranking)-1])
	})

	t.Run("flat market keeps wire order", func(t *testing.T) {
		comp := compare(t, linearSeries(start, 61, 100, 0), decimal.NewFromInt(1000), 2015, 2020)
		assert.Equal(t, simulation.StrategyNames, comp.Ranking)
		for _, r := range Returns(comp) {
			assert.InDelta(t, 0, r, 1e-9)
		}
	})
}

func TestRank_TieBrokenByVolatility(t *testing.T) {
	outcomes := map[simulation.StrategyName]*simulation.StrategyOutcome{
		simulation.LumpSum:    {RendementTotal: 5, Volatilite: 12},
		simulation.DCAMensuel: {RendementTotal: 5, Volatilite: 8},
		simulation.DCAAnnuel:  {RendementTotal: 7, Volatilite: 20},
	}
	assert.Equal(t,
		[]simulation.StrategyName{simulation.DCAAnnuel, simulation.DCAMensuel, simulation.LumpSum},
		Rank(outcomes))
}

func TestRows(t *testing.T) {
	comp := compare(t, linearSeries(market.YearStart(2020), 13, 100, 0), decimal.NewFromInt(1200), 2020, 2021)

	rows := Rows(comp)
	require.Len(t, rows, 13)
	for _, row := range rows {
		assert.Len(t, row.Values, len(simulation.StrategyNames))
	}
	assert.InDelta(t, 1200, rows[12].Values[simulation.LumpSum], 1e-9)
	assert.InDelta(t, 100, rows[0].Values[simulation.DCAMensuel], 1e-9)

	b, err := json.Marshal(rows[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2020-01-01","LumpSum":1200,"DCA_mensuel":100,"DCA_trimestriel":300,"DCA_semestriel":600,"DCA_annuel":1200}`, string(b))
}
