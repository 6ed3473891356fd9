package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamsalma/finance-site/internal/domain/simulation"
	"github.com/hamsalma/finance-site/internal/pkg/apperr"
)

func series(values ...float64) []simulation.PeriodicReturn {
	start := time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC)
	out := make([]simulation.PeriodicReturn, len(values))
	for i, v := range values {
		out[i] = simulation.PeriodicReturn{Date: start.AddDate(0, i, 0), Rendement: v}
	}
	return out
}

func TestForecast_LinearSeries(t *testing.T) {
	// y = 0.5 + 0.25x
	values := make([]float64, 24)
	for i := range values {
		values[i] = 0.5 + 0.25*float64(i+1)
	}

	f := NewForecaster(0.95, 12)
	p, err := f.Forecast(series(values...))
	require.NoError(t, err)

	assert.InDelta(t, 0.25, p.Beta, 1e-9)
	assert.InDelta(t, 0.5, p.Intercept, 1e-9)
	assert.Equal(t, 0.0, p.EcartsTypes.Sigma1)
	assert.Equal(t, 0.0, p.EcartsTypes.Sigma3)
	assert.InDelta(t, p.IntervalleConfiance.BorneInf, p.IntervalleConfiance.BorneSup, 1e-9)

	// mean of the line over x = 25..36
	assert.InDelta(t, (0.5+0.25*30.5)/100, p.RendementPrevuMoyen, 1e-9)
	assert.InDelta(t, (0.5+0.25*12.5)/100, p.RendementMoyen, 1e-9)

	require.Len(t, p.Historique, 24)
	assert.Equal(t, 1, p.Historique[0].Periode)
	assert.Equal(t, "2020-02-01", p.Historique[0].Date)
	assert.InDelta(t, values[23], p.Historique[23].Tendance, 1e-9)
}

func TestForecast_NoisySeries(t *testing.T) {
	f := NewForecaster(0.95, 6)
	p, err := f.Forecast(series(1, -2, 3, -1, 2, 0, 1.5, -0.5))
	require.NoError(t, err)

	s := p.EcartsTypes.Sigma1
	assert.Greater(t, s, 0.0)
	assert.InDelta(t, 2*s, p.EcartsTypes.Sigma2, 1e-12)
	assert.InDelta(t, 3*s, p.EcartsTypes.Sigma3, 1e-12)

	prevu := p.RendementPrevuMoyen * 100
	assert.Less(t, p.IntervalleConfiance.BorneInf, prevu)
	assert.Greater(t, p.IntervalleConfiance.BorneSup, prevu)
	assert.InDelta(t, prevu-p.IntervalleConfiance.BorneInf, p.IntervalleConfiance.BorneSup-prevu, 1e-9)
	assert.Equal(t, "95%", p.IntervalleConfiance.Niveau)
}

func TestForecast_WiderLevelWidensInterval(t *testing.T) {
	rs := series(1, -2, 3, -1, 2, 0)

	p90, err := NewForecaster(0.90, 12).Forecast(rs)
	require.NoError(t, err)
	p99, err := NewForecaster(0.99, 12).Forecast(rs)
	require.NoError(t, err)

	w90 := p90.IntervalleConfiance.BorneSup - p90.IntervalleConfiance.BorneInf
	w99 := p99.IntervalleConfiance.BorneSup - p99.IntervalleConfiance.BorneInf
	assert.Greater(t, w99, w90)
	assert.Equal(t, "99%", p99.IntervalleConfiance.Niveau)
}

func TestForecast_InsufficientData(t *testing.T) {
	_, err := NewForecaster(0.95, 12).Forecast(series(1, 2))
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientData))
}

func TestNewForecaster_Defaults(t *testing.T) {
	f := NewForecaster(1.5, 0)
	assert.Equal(t, DefaultConfidenceLevel, f.ConfidenceLevel)
	assert.Equal(t, DefaultHorizon, f.Horizon)
	assert.InDelta(t, 1.959964, f.z(), 1e-5)
}
