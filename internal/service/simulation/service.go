// Package simulation orchestrates one request: market data, schedule,
// valuation, then statistics, forecast or comparisons.
package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/domain/simulation"
	"github.com/hamsalma/finance-site/internal/pkg/apperr"
	"github.com/hamsalma/finance-site/internal/service/analytics"
	"github.com/hamsalma/finance-site/internal/service/benchmark"
	"github.com/hamsalma/finance-site/internal/service/forecast"
	"github.com/hamsalma/finance-site/internal/service/portfolio"
	"github.com/hamsalma/finance-site/internal/service/strategy"
)

// defaultPredictCapital is invested when predict_returns gets no amount;
// lump-sum returns do not depend on it
var defaultPredictCapital = decimal.NewFromInt(1000)

// PriceSource resolves price series (marketdata.Provider)
type PriceSource interface {
	GetPriceSeries(ctx context.Context, inst market.Instrument, dateDebut, dateFin int) (*market.SeriesResult, error)
}

// Config holds the named analytics parameters
type Config struct {
	FeeRate         float64 // annual fraction
	RiskFreeRate    float64 // annual fraction
	RollingWindow   int     // periods
	ConfidenceLevel float64
	ForecastHorizon int // periods
	Benchmark       market.Instrument
}

// Service implements the four simulation operations
type Service struct {
	prices PriceSource
	cfg    Config
	now    func() time.Time
}

// NewService creates a new simulation service
func NewService(prices PriceSource, cfg Config) *Service {
	return &Service{prices: prices, cfg: cfg, now: time.Now}
}

// SimulateOutput echoes the resolved inputs with the results
type SimulateOutput struct {
	Inputs    simulation.Inputs `json:"inputs"`
	Resultats *simulation.Result `json:"resultats"`
}

// =============================================================================
// Simulate
// =============================================================================

// Simulate replays the user's schedule on the instrument's history
func (s *Service) Simulate(ctx context.Context, in simulation.Inputs) (*SimulateOutput, error) {
	in, err := s.prepare(in)
	if err != nil {
		return nil, err
	}

	res, err := s.prices.GetPriceSeries(ctx, in.Instrument, in.DateDebut, in.DateFin)
	if err != nil {
		return nil, err
	}
	in = clampInputs(in, res)

	schedule, err := portfolio.GenerateSchedule(in.Start(), in.End(), in.Frequence, in.MontantInitial, in.Contribution)
	if err != nil {
		return nil, err
	}

	points, err := s.simulator(in).Simulate(schedule, res.Series, in.End())
	if err != nil {
		return nil, err
	}

	result := s.analyze(points, schedule, in.AssetClass)
	if res.Warning != "" {
		result.Avertissements = append([]string{res.Warning}, result.Avertissements...)
	}

	log.Info().
		Str("ticker", in.Ticker).
		Int("date_debut", in.DateDebut).
		Int("date_fin", in.DateFin).
		Str("frequence", in.Frequence.String()).
		Int("points", len(points)).
		Float64("rendement_total", result.RendementTotal).
		Msg("Simulation completed")

	return &SimulateOutput{Inputs: in, Resultats: result}, nil
}

// prepare resolves the window from duree and validates; it never touches
// market data
func (s *Service) prepare(in simulation.Inputs) (simulation.Inputs, error) {
	in, err := ResolveWindow(in, s.now())
	if err != nil {
		return in, err
	}
	if err := in.Validate(); err != nil {
		return in, err
	}
	return in, nil
}

// simulator applies the per-request fee override (percent) when given
func (s *Service) simulator(in simulation.Inputs) *portfolio.Simulator {
	fee := s.cfg.FeeRate
	if in.FraisGestion > 0 {
		fee = in.FraisGestion / 100
	}
	return portfolio.NewSimulator(fee)
}

// effectiveStart moves requested to the month of the first quotation of
// every clamped result, so no month is valued before its data exists
func effectiveStart(requested time.Time, results ...*market.SeriesResult) time.Time {
	start := requested
	for _, r := range results {
		if r == nil || !r.Clamped {
			continue
		}
		from := r.EffectiveFrom
		if m := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC); m.After(start) {
			start = m
		}
	}
	return start
}

func clampInputs(in simulation.Inputs, results ...*market.SeriesResult) simulation.Inputs {
	if start := effectiveStart(in.Start(), results...); start.After(in.Start()) {
		return in.WithEffectiveStart(start)
	}
	return in
}

// effectiveLabel is the wire date of start when it differs from requested
func effectiveLabel(start, requested time.Time) string {
	if start.Equal(requested) {
		return ""
	}
	return start.Format(market.DateLayout)
}

// =============================================================================
// Predict
// =============================================================================

// PredictOutput is the forecast with the resolved instrument
type PredictOutput struct {
	simulation.Prediction
	Instrument         market.Instrument `json:"-"`
	DateDebutEffective string            `json:"date_debut_effective,omitempty"`
	Avertissements     []string          `json:"avertissements"`
}

// Predict fits a trend to the lump-sum periodic returns of the instrument
func (s *Service) Predict(ctx context.Context, inst market.Instrument, dateDebut, dateFin int, capital decimal.Decimal) (*PredictOutput, error) {
	if err := simulation.ValidateRange(dateDebut, dateFin); err != nil {
		return nil, err
	}
	if capital.IsNegative() {
		return nil, apperr.InvalidInput(simulation.ErrNegativeAmount, "montant_initial doit être positif ou nul")
	}
	if capital.IsZero() {
		capital = defaultPredictCapital
	}

	res, err := s.prices.GetPriceSeries(ctx, inst, dateDebut, dateFin)
	if err != nil {
		return nil, err
	}

	requested, end := market.YearStart(dateDebut), market.YearStart(dateFin)
	start := effectiveStart(requested, res)
	schedule := []simulation.ContributionEvent{{Date: start, Amount: capital, Initial: true}}

	points, err := portfolio.NewSimulator(s.cfg.FeeRate).Simulate(schedule, res.Series, end)
	if err != nil {
		return nil, err
	}

	prediction, err := forecast.NewForecaster(s.cfg.ConfidenceLevel, s.cfg.ForecastHorizon).
		Forecast(analytics.PeriodicReturns(points))
	if err != nil {
		return nil, err
	}

	out := &PredictOutput{
		Prediction:         prediction,
		Instrument:         res.Instrument,
		DateDebutEffective: effectiveLabel(start, requested),
		Avertissements:     []string{},
	}
	if res.Warning != "" {
		out.Avertissements = append(out.Avertissements, res.Warning)
	}
	return out, nil
}

// =============================================================================
// Compare strategies
// =============================================================================

// StrategiesOutput is the ranked comparison with the resolved instrument
type StrategiesOutput struct {
	Comparison         *simulation.StrategyComparison
	Instrument         market.Instrument
	DateDebutEffective string // empty unless the history starts late
	Avertissements     []string
}

// CompareStrategies invests capital as a lump sum and as DCA at every
// frequency over the same history
func (s *Service) CompareStrategies(ctx context.Context, inst market.Instrument, capital decimal.Decimal, dateDebut, dateFin int) (*StrategiesOutput, error) {
	if err := simulation.ValidateRange(dateDebut, dateFin); err != nil {
		return nil, err
	}
	if !capital.IsPositive() {
		return nil, apperr.InvalidInput(simulation.ErrNegativeAmount, "montant_initial doit être strictement positif")
	}

	res, err := s.prices.GetPriceSeries(ctx, inst, dateDebut, dateFin)
	if err != nil {
		return nil, err
	}

	requested := market.YearStart(dateDebut)
	start := effectiveStart(requested, res)

	comparator := strategy.NewComparator(portfolio.NewSimulator(s.cfg.FeeRate))
	comparison, err := comparator.Compare(res.Series, capital, start, market.YearStart(dateFin))
	if err != nil {
		return nil, err
	}

	out := &StrategiesOutput{
		Comparison:         comparison,
		Instrument:         res.Instrument,
		DateDebutEffective: effectiveLabel(start, requested),
		Avertissements:     []string{},
	}
	if res.Warning != "" {
		out.Avertissements = append(out.Avertissements, res.Warning)
	}
	return out, nil
}

// =============================================================================
// Compare to benchmark
// =============================================================================

// BenchmarkRequest carries the user's simulation and, optionally, its
// already computed valuation series
type BenchmarkRequest struct {
	Inputs     simulation.Inputs
	Historique []simulation.ValuationPoint
	Benchmark  market.Instrument // zero value selects the configured benchmark
}

// BenchmarkOutput is the comparison with the benchmark used
type BenchmarkOutput struct {
	Comparison         *simulation.BenchmarkComparison
	Benchmark          market.Instrument
	DateDebutEffective string // empty unless either history starts late
	Avertissements     []string
}

// CompareBenchmark invests the user's schedule in the benchmark and aligns
// both valuations. The user series is re-simulated when not supplied; both
// histories are fetched concurrently. A late history on either side moves
// the start of both.
func (s *Service) CompareBenchmark(ctx context.Context, req BenchmarkRequest) (*BenchmarkOutput, error) {
	in, err := s.prepare(req.Inputs)
	if err != nil {
		return nil, err
	}

	bench := req.Benchmark
	if bench.Ticker == "" {
		bench = s.cfg.Benchmark
	}

	var (
		userRes, benchRes *market.SeriesResult
		needUser          = len(req.Historique) == 0
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.prices.GetPriceSeries(gctx, bench, in.DateDebut, in.DateFin)
		if err != nil {
			return fmt.Errorf("benchmark %s: %w", bench.Ticker, err)
		}
		benchRes = r
		return nil
	})
	if needUser {
		g.Go(func() error {
			r, err := s.prices.GetPriceSeries(gctx, in.Instrument, in.DateDebut, in.DateFin)
			if err != nil {
				return err
			}
			userRes = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	in = clampInputs(in, userRes, benchRes)

	schedule, err := portfolio.GenerateSchedule(in.Start(), in.End(), in.Frequence, in.MontantInitial, in.Contribution)
	if err != nil {
		return nil, err
	}

	sim := s.simulator(in)
	user := req.Historique
	if needUser {
		if user, err = sim.Simulate(schedule, userRes.Series, in.End()); err != nil {
			return nil, err
		}
	}

	comparison, err := benchmark.NewComparator(sim).Compare(user, schedule, benchRes.Series, in.End())
	if err != nil {
		return nil, err
	}

	out := &BenchmarkOutput{
		Comparison:         comparison,
		Benchmark:          benchRes.Instrument,
		DateDebutEffective: in.DateDebutEffective,
		Avertissements:     []string{},
	}
	for _, r := range []*market.SeriesResult{userRes, benchRes} {
		if r != nil && r.Warning != "" {
			out.Avertissements = append(out.Avertissements, r.Warning)
		}
	}
	return out, nil
}
