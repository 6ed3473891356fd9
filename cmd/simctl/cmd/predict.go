package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var predictFlags struct {
	actif, ticker string
	montant       string
	debut, fin    int
}

// predictCmd predict subcommand
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Fit a return trend and forecast the next periods",
	Long: `Fit a linear trend to the monthly returns of a lump-sum investment
and report the expected mean return with its confidence interval.

Examples:
  go run ./cmd/simctl predict --actif ACWI --debut 2015 --fin 2025`,
	RunE: runPredict,
}

func init() {
	f := predictCmd.Flags()
	f.StringVar(&predictFlags.actif, "actif", "etf", "asset class, or a ticker")
	f.StringVar(&predictFlags.ticker, "ticker", "", "ticker (default: the class default)")
	f.StringVar(&predictFlags.montant, "montant", "", "invested amount (default 1000)")
	f.IntVar(&predictFlags.debut, "debut", 2015, "start year")
	f.IntVar(&predictFlags.fin, "fin", 2025, "end year")
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	engine, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	inst, err := engine.Universe.Resolve(predictFlags.actif, predictFlags.ticker)
	if err != nil {
		return err
	}
	capital, err := parseAmount("montant", predictFlags.montant)
	if err != nil {
		return err
	}

	out, err := engine.Simulation.Predict(ctx, inst, predictFlags.debut, predictFlags.fin, capital)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(out)
	}

	p := out.Prediction
	fmt.Printf("🔮 %s %d → %d (%d observations)\n", inst.Ticker, predictFlags.debut, predictFlags.fin, p.Observations)
	fmt.Printf("   Tendance (beta)        : %+.4f %% / période\n", p.Beta)
	fmt.Printf("   Rendement moyen        : %.2f %%\n", p.RendementMoyen*100)
	fmt.Printf("   Rendement prévu moyen  : %.2f %% sur %d périodes\n", p.RendementPrevuMoyen*100, p.Horizon)
	fmt.Printf("   Intervalle %s        : [%.2f %% ; %.2f %%]\n",
		p.IntervalleConfiance.Niveau, p.IntervalleConfiance.BorneInf, p.IntervalleConfiance.BorneSup)
	fmt.Printf("   σ / 2σ / 3σ            : %.2f / %.2f / %.2f %%\n",
		p.EcartsTypes.Sigma1*100, p.EcartsTypes.Sigma2*100, p.EcartsTypes.Sigma3*100)
	printWarnings(out.Avertissements)
	return nil
}
