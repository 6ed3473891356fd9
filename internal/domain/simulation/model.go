package simulation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/pkg/apperr"
)

// MinYear is the earliest simulated year
const MinYear = 1950

// =============================================================================
// Frequency
// =============================================================================

// Frequency is the contribution period
type Frequency int

const (
	FrequencyUnknown Frequency = iota
	Mensuelle
	Trimestrielle
	Semestrielle
	Annuelle
)

// Frequencies lists every valid frequency, shortest period first
var Frequencies = []Frequency{Mensuelle, Trimestrielle, Semestrielle, Annuelle}

// ParseFrequency maps the wire name to a Frequency.
// "semistrielle" is the spelling the web form sends.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mensuelle":
		return Mensuelle, nil
	case "trimestrielle":
		return Trimestrielle, nil
	case "semestrielle", "semistrielle":
		return Semestrielle, nil
	case "annuelle":
		return Annuelle, nil
	default:
		return FrequencyUnknown, fmt.Errorf("%w: %q", ErrUnknownFrequency, s)
	}
}

// Months returns the period length in months, 0 when unknown
func (f Frequency) Months() int {
	switch f {
	case Mensuelle:
		return 1
	case Trimestrielle:
		return 3
	case Semestrielle:
		return 6
	case Annuelle:
		return 12
	default:
		return 0
	}
}

func (f Frequency) String() string {
	switch f {
	case Mensuelle:
		return "mensuelle"
	case Trimestrielle:
		return "trimestrielle"
	case Semestrielle:
		return "semestrielle"
	case Annuelle:
		return "annuelle"
	default:
		return "unknown"
	}
}

func (f Frequency) MarshalText() ([]byte, error) {
	if f == FrequencyUnknown {
		return nil, ErrUnknownFrequency
	}
	return []byte(f.String()), nil
}

func (f *Frequency) UnmarshalText(b []byte) error {
	parsed, err := ParseFrequency(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// =============================================================================
// Inputs
// =============================================================================

// Inputs are the validated parameters of one simulation
type Inputs struct {
	MontantInitial decimal.Decimal `json:"montant_initial"`
	Contribution   decimal.Decimal `json:"contribution"`
	Frequence      Frequency       `json:"frequence"`
	DateDebut      int             `json:"date_debut"`
	DateFin        int             `json:"date_fin"`
	Duree          int             `json:"duree"`
	FraisGestion   float64         `json:"frais_gestion"` // percent per year
	market.Instrument

	// DateDebutEffective is set when the history starts after 1 January of
	// DateDebut; the simulation then starts on this month
	DateDebutEffective string `json:"date_debut_effective,omitempty"`
	start              time.Time
}

// Validate enforces every input invariant; it runs before any data fetch
func (in Inputs) Validate() error {
	if in.MontantInitial.IsNegative() {
		return apperr.InvalidInput(ErrNegativeAmount, "montant_initial doit être positif ou nul")
	}
	if in.Contribution.IsNegative() {
		return apperr.InvalidInput(ErrNegativeAmount, "contribution doit être positive ou nulle")
	}
	if in.Frequence.Months() == 0 {
		return apperr.InvalidInput(ErrUnknownFrequency, "fréquence inconnue")
	}
	if in.DateDebut < MinYear {
		return apperr.InvalidInput(ErrYearOutOfRange, "date_debut doit être >= %d", MinYear)
	}
	if in.DateFin <= in.DateDebut {
		return apperr.InvalidInput(ErrInvalidDateRange, "l'année de fin (%d) doit être supérieure à l'année de début (%d)", in.DateFin, in.DateDebut)
	}
	if in.FraisGestion < 0 || in.FraisGestion >= 100 {
		return apperr.InvalidInput(nil, "frais_gestion doit être compris entre 0 et 100")
	}
	if in.Ticker == "" || in.AssetClass == market.AssetClassUnknown {
		return apperr.InvalidInput(ErrNoInstrument, "actif et ticker sont requis")
	}
	return nil
}

// Start is 1 January of DateDebut, or the effective start once clamped
func (in Inputs) Start() time.Time {
	if !in.start.IsZero() {
		return in.start
	}
	return market.YearStart(in.DateDebut)
}

// WithEffectiveStart moves the start of the simulation to start (a month
// start after 1 January of DateDebut)
func (in Inputs) WithEffectiveStart(start time.Time) Inputs {
	in.start = start
	in.DateDebutEffective = start.Format(market.DateLayout)
	return in
}

// End is 1 January of DateFin
func (in Inputs) End() time.Time { return market.YearStart(in.DateFin) }

// ValidateRange checks a bare year window (endpoints without cash flows)
func ValidateRange(debut, fin int) error {
	if debut < MinYear {
		return apperr.InvalidInput(ErrYearOutOfRange, "date_debut doit être >= %d", MinYear)
	}
	if fin <= debut {
		return apperr.InvalidInput(ErrInvalidDateRange, "l'année de fin (%d) doit être supérieure à l'année de début (%d)", fin, debut)
	}
	return nil
}

// =============================================================================
// Schedules and series
// =============================================================================

// ContributionEvent is one cash inflow
type ContributionEvent struct {
	Date    time.Time
	Amount  decimal.Decimal
	Initial bool
}

// TotalAmount sums the amounts of a schedule
func TotalAmount(events []ContributionEvent) decimal.Decimal {
	total := decimal.Zero
	for _, e := range events {
		total = total.Add(e.Amount)
	}
	return total
}

// ValuationPoint is the portfolio state at one boundary
type ValuationPoint struct {
	Date     time.Time
	Value    float64
	Flow     float64 // inflow applied at this boundary
	Invested float64 // cumulative inflows
	Units    float64
	Price    float64
}

type valuationPointJSON struct {
	Date     string  `json:"date"`
	Value    float64 `json:"value"`
	Flow     float64 `json:"flux"`
	Invested float64 `json:"investi"`
}

func (p ValuationPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(valuationPointJSON{
		Date:     p.Date.Format(market.DateLayout),
		Value:    round(p.Value, 2),
		Flow:     round(p.Flow, 2),
		Invested: round(p.Invested, 2),
	})
}

func (p *ValuationPoint) UnmarshalJSON(b []byte) error {
	var raw valuationPointJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	date, err := parseDate(raw.Date)
	if err != nil {
		return err
	}
	*p = ValuationPoint{Date: date, Value: raw.Value, Flow: raw.Flow, Invested: raw.Invested}
	return nil
}

// PeriodicReturn is a period-over-period return in percent
type PeriodicReturn struct {
	Date      time.Time
	Rendement float64
}

func (r PeriodicReturn) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date      string  `json:"date"`
		Rendement float64 `json:"rendement"`
	}{r.Date.Format(market.DateLayout), round(r.Rendement, 4)})
}

// RollingPoint is one trailing-window Sharpe ratio
type RollingPoint struct {
	Date   time.Time
	Sharpe float64
}

func (r RollingPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date   string  `json:"date"`
		Sharpe float64 `json:"sharpe"`
	}{r.Date.Format(market.DateLayout), round(r.Sharpe, 4)})
}

// PERPoint is one value of the pedagogical valuation ratio
type PERPoint struct {
	Date time.Time
	PER  float64
}

func (r PERPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date string  `json:"date"`
		PER  float64 `json:"per"`
	}{r.Date.Format(market.DateLayout), round(r.PER, 2)})
}

// =============================================================================
// Results
// =============================================================================

// Band is a coarse classification used by the client's narrative text
type Band string

const (
	BandLow      Band = "low"
	BandModerate Band = "moderate"
	BandHigh     Band = "high"
	BandVeryHigh Band = "very_high"
	BandNegative Band = "negative"
)

// Analysis groups the bands of the headline metrics
type Analysis struct {
	CAGR       Band `json:"cagr"`
	Volatilite Band `json:"volatilite,omitempty"`
	Sharpe     Band `json:"ratio_sharpe,omitempty"`
}

// Result is the payload of /simulate. Nil pointers are metrics that could
// not be computed; the reason is in Avertissements.
type Result struct {
	MontantTotalInvesti decimal.Decimal  `json:"montant_total_investi"`
	PortefeuilleFinal   decimal.Decimal  `json:"portefeuille_final_estime"`
	Volatilite          *float64         `json:"volatilite"`
	RatioSharpe         *float64         `json:"ratio_sharpe"`
	CAGR                float64          `json:"cagr"`
	RendementTotal      float64          `json:"rendement_total"`
	MaxDrawdown         *float64         `json:"max_drawdown"`
	Historique          []ValuationPoint `json:"historique"`
	Rendements          []PeriodicReturn `json:"rendements"`
	SharpeRolling       []RollingPoint   `json:"sharpe_rolling"`
	PERSeries           []PERPoint       `json:"per_series"`
	Analyse             Analysis         `json:"analyse"`
	Avertissements      []string         `json:"avertissements"`
}

// StrategyName identifies an investment timing strategy
type StrategyName string

const (
	LumpSum        StrategyName = "LumpSum"
	DCAMensuel     StrategyName = "DCA_mensuel"
	DCATrimestriel StrategyName = "DCA_trimestriel"
	DCASemestriel  StrategyName = "DCA_semestriel"
	DCAAnnuel      StrategyName = "DCA_annuel"
)

// StrategyNames lists every strategy in wire order
var StrategyNames = []StrategyName{LumpSum, DCAMensuel, DCATrimestriel, DCASemestriel, DCAAnnuel}

// DCAStrategy returns the DCA strategy for a frequency
func DCAStrategy(f Frequency) StrategyName {
	switch f {
	case Mensuelle:
		return DCAMensuel
	case Trimestrielle:
		return DCATrimestriel
	case Semestrielle:
		return DCASemestriel
	case Annuelle:
		return DCAAnnuel
	default:
		return ""
	}
}

// StrategyOutcome is one strategy replayed over the window
type StrategyOutcome struct {
	Name           StrategyName
	Events         []ContributionEvent
	Points         []ValuationPoint
	TotalInvested  decimal.Decimal
	RendementTotal float64
	Volatilite     float64
}

// StrategyComparison holds every outcome and their ranking (best first)
type StrategyComparison struct {
	Outcomes map[StrategyName]*StrategyOutcome
	Ranking  []StrategyName
}

// TrendPoint is one observation with its fitted trend value
type TrendPoint struct {
	Periode   int     `json:"periode"`
	Date      string  `json:"date"`
	Rendement float64 `json:"rendement"`
	Tendance  float64 `json:"tendance"`
}

// SigmaBands are the 1, 2 and 3 standard deviation widths (fractions)
type SigmaBands struct {
	Sigma1 float64 `json:"σ"`
	Sigma2 float64 `json:"2σ"`
	Sigma3 float64 `json:"3σ"`
}

// ConfidenceInterval bounds the forecast mean, in percent
type ConfidenceInterval struct {
	BorneInf float64 `json:"borne_inf"`
	BorneSup float64 `json:"borne_sup"`
	Niveau   string  `json:"niveau"`
}

// Prediction is the linear-trend forecast of periodic returns.
// RendementMoyen and RendementPrevuMoyen are fractions, Beta and the
// Historique values are percent per period.
type Prediction struct {
	Historique          []TrendPoint       `json:"historique"`
	Beta                float64            `json:"beta"`
	Intercept           float64            `json:"intercept"`
	RendementMoyen      float64            `json:"rendement_moyen"`
	RendementPrevuMoyen float64            `json:"rendement_prevu_moyen"`
	EcartsTypes         SigmaBands         `json:"ecarts_types"`
	IntervalleConfiance ConfidenceInterval `json:"intervalle_confiance"`
	Observations        int                `json:"observations"`
	Horizon             int                `json:"horizon"`
}

// PerformanceBand classifies the spread against a benchmark
type PerformanceBand string

const (
	StrongOutperformance   PerformanceBand = "strong_outperformance"
	Outperformance         PerformanceBand = "outperformance"
	InLine                 PerformanceBand = "in_line"
	Underperformance       PerformanceBand = "underperformance"
	StrongUnderperformance PerformanceBand = "strong_underperformance"
)

// BenchmarkRow is one aligned date of the comparison chart
type BenchmarkRow struct {
	Date         time.Time
	Portefeuille float64
	Benchmark    float64
}

func (r BenchmarkRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date         string  `json:"date"`
		Portefeuille float64 `json:"portefeuille"`
		Benchmark    float64 `json:"acwi"`
	}{r.Date.Format(market.DateLayout), round(r.Portefeuille, 2), round(r.Benchmark, 2)})
}

// BenchmarkComparison is the user portfolio against a reference index
type BenchmarkComparison struct {
	Rows                  []BenchmarkRow
	Invested              float64
	RendementPortefeuille float64
	RendementBenchmark    float64
	Ecart                 float64 // percentage points
	Classification        PerformanceBand
}

// =============================================================================
// helpers
// =============================================================================

func parseDate(s string) (time.Time, error) {
	if len(s) > len(market.DateLayout) {
		s = s[:len(market.DateLayout)]
	}
	t, err := time.Parse(market.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	d := decimal.NewFromFloat(v).Round(int32(places))
	f, _ := d.Float64()
	return f
}
