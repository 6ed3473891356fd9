// Package forecast fits a linear trend to periodic returns and bounds the
// forecast mean.
package forecast

import (
	"math"
	"strconv"

	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/domain/simulation"
	"github.com/hamsalma/finance-site/internal/pkg/apperr"
	"github.com/hamsalma/finance-site/internal/service/analytics"
)

const (
	// MinObservations is the smallest sample a trend is fitted on
	MinObservations = 3

	DefaultConfidenceLevel = 0.95
	DefaultHorizon         = 12
)

// Forecaster fits an OLS line of return vs period index.
// ConfidenceLevel is in (0, 1); Horizon is the number of future periods
// averaged into the forecast mean.
type Forecaster struct {
	ConfidenceLevel float64
	Horizon         int
}

// NewForecaster creates a Forecaster, substituting defaults for
// out-of-range values
func NewForecaster(level float64, horizon int) *Forecaster {
	if level <= 0 || level >= 1 {
		level = DefaultConfidenceLevel
	}
	if horizon < 1 {
		horizon = DefaultHorizon
	}
	return &Forecaster{ConfidenceLevel: level, Horizon: horizon}
}

// Forecast fits the trend and derives sigma bands and the confidence
// interval of the forecast mean
func (f *Forecaster) Forecast(returns []simulation.PeriodicReturn) (simulation.Prediction, error) {
	n := len(returns)
	if n < MinObservations {
		return simulation.Prediction{}, apperr.InsufficientData(simulation.ErrTooFewReturns,
			"au moins %d rendements sont nécessaires pour une tendance (%d disponibles)", MinObservations, n)
	}

	y := analytics.Values(returns)
	beta, intercept := fitLine(y)

	historique := make([]simulation.TrendPoint, n)
	residuals := make([]float64, n)
	for i, r := range returns {
		x := float64(i + 1)
		trend := intercept + beta*x
		historique[i] = simulation.TrendPoint{
			Periode:   i + 1,
			Date:      r.Date.Format(market.DateLayout),
			Rendement: r.Rendement,
			Tendance:  trend,
		}
		residuals[i] = r.Rendement - trend
	}

	sigma := residualStd(residuals) // percent

	// mean of the fitted line over periods n+1 .. n+Horizon
	prevu := intercept + beta*(float64(n)+float64(f.Horizon+1)/2)

	halfWidth := f.z() * sigma / math.Sqrt(float64(n))

	return simulation.Prediction{
		Historique:          historique,
		Beta:                beta,
		Intercept:           intercept,
		RendementMoyen:      analytics.Mean(y) / 100,
		RendementPrevuMoyen: prevu / 100,
		EcartsTypes: simulation.SigmaBands{
			Sigma1: sigma / 100,
			Sigma2: 2 * sigma / 100,
			Sigma3: 3 * sigma / 100,
		},
		IntervalleConfiance: simulation.ConfidenceInterval{
			BorneInf: prevu - halfWidth,
			BorneSup: prevu + halfWidth,
			Niveau:   levelLabel(f.ConfidenceLevel),
		},
		Observations: n,
		Horizon:      f.Horizon,
	}, nil
}

// z is the two-sided normal quantile of the confidence level
func (f *Forecaster) z() float64 {
	return math.Sqrt2 * math.Erfinv(f.ConfidenceLevel)
}

// fitLine regresses y on x = 1..n
func fitLine(y []float64) (beta, intercept float64) {
	n := float64(len(y))
	meanX := (n + 1) / 2
	meanY := analytics.Mean(y)

	var sxy, sxx float64
	for i, v := range y {
		dx := float64(i+1) - meanX
		sxy += dx * (v - meanY)
		sxx += dx * dx
	}
	if sxx == 0 {
		return 0, meanY
	}
	beta = sxy / sxx
	return beta, meanY - beta*meanX
}

// residualStd uses n-2 degrees of freedom (two fitted parameters)
func residualStd(residuals []float64) float64 {
	ss := 0.0
	for _, r := range residuals {
		ss += r * r
	}
	sd := math.Sqrt(ss / float64(len(residuals)-2))
	if sd < 1e-9 {
		return 0
	}
	return sd
}

func levelLabel(level float64) string {
	pct := math.Round(level*1000) / 10
	return strconv.FormatFloat(pct, 'f', -1, 64) + "%"
}
