package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/hamsalma/finance-site/internal/api/response"
	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/domain/simulation"
	simsvc "github.com/hamsalma/finance-site/internal/service/simulation"
	"github.com/hamsalma/finance-site/internal/service/strategy"
)

// SimulationService interface for service layer
type SimulationService interface {
	Simulate(ctx context.Context, in simulation.Inputs) (*simsvc.SimulateOutput, error)
	Predict(ctx context.Context, inst market.Instrument, dateDebut, dateFin int, capital decimal.Decimal) (*simsvc.PredictOutput, error)
	CompareStrategies(ctx context.Context, inst market.Instrument, capital decimal.Decimal, dateDebut, dateFin int) (*simsvc.StrategiesOutput, error)
	CompareBenchmark(ctx context.Context, req simsvc.BenchmarkRequest) (*simsvc.BenchmarkOutput, error)
}

// SimulationHandler handles the four computation endpoints
type SimulationHandler struct {
	service  SimulationService
	universe *market.Universe
}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler(service SimulationService, universe *market.Universe) *SimulationHandler {
	return &SimulationHandler{service: service, universe: universe}
}

// Simulate handles POST /simulate
func (h *SimulationHandler) Simulate(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	in, err := req.inputs(h.universe)
	if err != nil {
		response.Error(c, err)
		return
	}

	out, err := h.service.Simulate(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, out)
}

// =============================================================================
// Benchmark
// =============================================================================

type compareResponse struct {
	Comparaison           []simulation.BenchmarkRow  `json:"comparaison"`
	Interpretation        string                     `json:"interpretation"`
	Classification        simulation.PerformanceBand `json:"classification"`
	RendementPortefeuille float64                    `json:"rendement_portefeuille"`
	RendementACWI         float64                    `json:"rendement_acwi"`
	Ecart                 float64                    `json:"ecart"`
	Benchmark             string                     `json:"benchmark"`
	DateDebutEffective    string                     `json:"date_debut_effective,omitempty"`
	Avertissements        []string                   `json:"avertissements"`
}

// CompareACWI handles POST /compare_acwi
func (h *SimulationHandler) CompareACWI(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	in, err := req.inputs(h.universe)
	if err != nil {
		response.Error(c, err)
		return
	}

	var bench market.Instrument
	if req.Benchmark != "" {
		if bench, err = h.universe.Instrument(req.Benchmark); err != nil {
			response.Error(c, err)
			return
		}
	}

	out, err := h.service.CompareBenchmark(c.Request.Context(), simsvc.BenchmarkRequest{
		Inputs:     in,
		Historique: req.HistoriquePortefeuille,
		Benchmark:  bench,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	cmp := out.Comparison
	response.Success(c, compareResponse{
		Comparaison:           cmp.Rows,
		Interpretation:        interpretSpread(cmp.Classification, cmp.Ecart, out.Benchmark.Ticker),
		Classification:        cmp.Classification,
		RendementPortefeuille: round2(cmp.RendementPortefeuille),
		RendementACWI:         round2(cmp.RendementBenchmark),
		Ecart:                 round2(cmp.Ecart),
		Benchmark:             out.Benchmark.Ticker,
		DateDebutEffective:    out.DateDebutEffective,
		Avertissements:        out.Avertissements,
	})
}

// =============================================================================
// Forecast
// =============================================================================

type predictResponse struct {
	simulation.Prediction
	Actif              string   `json:"actif"`
	Ticker             string   `json:"ticker"`
	DateDebutEffective string   `json:"date_debut_effective,omitempty"`
	Avertissements     []string `json:"avertissements"`
}

// PredictReturns handles POST /predict_returns
func (h *SimulationHandler) PredictReturns(c *gin.Context) {
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	inst, err := h.universe.Resolve(req.Actif, req.Ticker)
	if err != nil {
		response.Error(c, err)
		return
	}
	debut, fin, err := req.window()
	if err != nil {
		response.Error(c, err)
		return
	}

	out, err := h.service.Predict(c.Request.Context(), inst, debut, fin, req.MontantInitial.Amount())
	if err != nil {
		response.Error(c, err)
		return
	}

	actif := req.Actif
	if actif == "" {
		actif = out.Instrument.AssetClass.String()
	}

	response.Success(c, predictResponse{
		Prediction:         out.Prediction,
		Actif:              actif,
		Ticker:             out.Instrument.Ticker,
		DateDebutEffective: out.DateDebutEffective,
		Avertissements:     out.Avertissements,
	})
}

// =============================================================================
// Strategies
// =============================================================================

type rankEntry struct {
	Strategie  simulation.StrategyName `json:"strategie"`
	Rendement  float64                 `json:"rendement"`
	Volatilite float64                 `json:"volatilite"`
}

type strategiesResponse struct {
	Strategies         []strategy.Row                      `json:"strategies"`
	Rendements         map[simulation.StrategyName]float64 `json:"rendements"`
	Classement         []rankEntry                         `json:"classement"`
	Actif              market.AssetClass                   `json:"actif"`
	Ticker             string                              `json:"ticker"`
	DateDebutEffective string                              `json:"date_debut_effective,omitempty"`
	Avertissements     []string                            `json:"avertissements"`
}

// CompareStrategies handles POST /compare_strategies
func (h *SimulationHandler) CompareStrategies(c *gin.Context) {
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	inst, err := h.universe.Resolve(req.Actif, req.Ticker)
	if err != nil {
		response.Error(c, err)
		return
	}
	debut, fin, err := req.window()
	if err != nil {
		response.Error(c, err)
		return
	}

	out, err := h.service.CompareStrategies(c.Request.Context(), inst, req.MontantInitial.Amount(), debut, fin)
	if err != nil {
		response.Error(c, err)
		return
	}

	cmp := out.Comparison
	rendements := strategy.Returns(cmp)
	for name, v := range rendements {
		rendements[name] = round2(v)
	}

	classement := make([]rankEntry, 0, len(cmp.Ranking))
	for _, name := range cmp.Ranking {
		o := cmp.Outcomes[name]
		classement = append(classement, rankEntry{
			Strategie:  name,
			Rendement:  round2(o.RendementTotal),
			Volatilite: round2(o.Volatilite),
		})
	}

	response.Success(c, strategiesResponse{
		Strategies:         strategy.Rows(cmp),
		Rendements:         rendements,
		Classement:         classement,
		Actif:              out.Instrument.AssetClass,
		Ticker:             out.Instrument.Ticker,
		DateDebutEffective: out.DateDebutEffective,
		Avertissements:     out.Avertissements,
	})
}
