package simulation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hamsalma/finance-site/internal/domain/market"
	"github.com/hamsalma/finance-site/internal/domain/simulation"
	"github.com/hamsalma/finance-site/internal/service/analytics"
	"github.com/hamsalma/finance-site/internal/service/portfolio"
)

// analyze derives every statistic of a valuation series. A statistic that
// needs more data than available is nulled with a warning.
func (s *Service) analyze(points []simulation.ValuationPoint, schedule []simulation.ContributionEvent, class market.AssetClass) *simulation.Result {
	invested := simulation.TotalAmount(schedule)
	investedF := invested.InexactFloat64()
	final := decimal.NewFromFloat(portfolio.FinalValue(points)).Round(2)
	finalF := final.InexactFloat64()
	returns := analytics.PeriodicReturns(points)

	result := &simulation.Result{
		MontantTotalInvesti: invested,
		PortefeuilleFinal:   final,
		CAGR:                analytics.CAGR(finalF, investedF, analytics.Years(points)),
		RendementTotal:      analytics.TotalReturn(finalF, investedF),
		Historique:          points,
		Rendements:          returns,
		SharpeRolling:       analytics.RollingSharpe(returns, s.cfg.RollingWindow, portfolio.PeriodsPerYear, s.cfg.RiskFreeRate),
		PERSeries:           analytics.PERSeries(points, class),
		Avertissements:      []string{},
	}
	result.Analyse.CAGR = analytics.ClassifyCAGR(result.CAGR)

	if vol, err := analytics.Volatility(returns, portfolio.PeriodsPerYear); err == nil {
		result.Volatilite = &vol
		result.Analyse.Volatilite = analytics.ClassifyVolatility(vol)
	} else {
		result.Avertissements = append(result.Avertissements, err.Error())
	}

	if sharpe, err := analytics.Sharpe(returns, portfolio.PeriodsPerYear, s.cfg.RiskFreeRate); err == nil {
		result.RatioSharpe = &sharpe
		result.Analyse.Sharpe = analytics.ClassifySharpe(sharpe)
	} else {
		result.Avertissements = append(result.Avertissements, "ratio de Sharpe non calculé: "+err.Error())
	}

	if len(returns) > 0 {
		dd := analytics.MaxDrawdown(returns)
		result.MaxDrawdown = &dd
	}

	if len(returns) > 0 && len(result.SharpeRolling) == 0 {
		result.Avertissements = append(result.Avertissements,
			fmt.Sprintf("Sharpe glissant indisponible: %d périodes requises, %d disponibles", s.cfg.RollingWindow, len(returns)))
	}

	return result
}
