package handlers

import (
	"fmt"

	"github.com/hamsalma/finance-site/internal/domain/simulation"
)

// interpretSpread renders the sentence shown under the benchmark chart
func interpretSpread(band simulation.PerformanceBand, ecart float64, benchmark string) string {
	ref := "l'indice " + benchmark
	if benchmark == "ACWI" {
		ref = "l'ACWI"
	}

	switch band {
	case simulation.StrongOutperformance:
		return fmt.Sprintf("Votre portefeuille a nettement surperformé %s (%+.2f points).", ref, ecart)
	case simulation.Outperformance:
		return fmt.Sprintf("Votre portefeuille a fait mieux que %s (%+.2f points).", ref, ecart)
	case simulation.InLine:
		return fmt.Sprintf("Votre portefeuille a évolué en ligne avec %s (%+.2f points).", ref, ecart)
	case simulation.Underperformance:
		return fmt.Sprintf("Votre portefeuille a fait moins bien que %s (%+.2f points).", ref, ecart)
	case simulation.StrongUnderperformance:
		return fmt.Sprintf("Votre portefeuille a nettement sous-performé %s (%+.2f points).", ref, ecart)
	default:
		return ""
	}
}
