package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var strategiesFlags struct {
	actif, ticker string
	capital       string
	debut, fin    int
}

// strategiesCmd strategies subcommand
var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "Compare lump sum and DCA at every frequency",
	Long: `Invest the same capital as a lump sum and as dollar-cost averaging
(monthly, quarterly, half-yearly, yearly), then rank by total return.

Examples:
  go run ./cmd/simctl strategies --actif actions --ticker ^GSPC --capital 10000 --debut 2010 --fin 2020`,
	RunE: runStrategies,
}

func init() {
	f := strategiesCmd.Flags()
	f.StringVar(&strategiesFlags.actif, "actif", "etf", "asset class, or a ticker")
	f.StringVar(&strategiesFlags.ticker, "ticker", "", "ticker (default: the class default)")
	f.StringVar(&strategiesFlags.capital, "capital", "10000", "capital to deploy")
	f.IntVar(&strategiesFlags.debut, "debut", 2015, "start year")
	f.IntVar(&strategiesFlags.fin, "fin", 2025, "end year")
}

func runStrategies(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	engine, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	inst, err := engine.Universe.Resolve(strategiesFlags.actif, strategiesFlags.ticker)
	if err != nil {
		return err
	}
	capital, err := parseAmount("capital", strategiesFlags.capital)
	if err != nil {
		return err
	}

	out, err := engine.Simulation.CompareStrategies(ctx, inst, capital, strategiesFlags.debut, strategiesFlags.fin)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(out.Comparison.Ranking)
	}

	fmt.Printf("🏁 %s %d → %d, capital %s\n", inst.Ticker, strategiesFlags.debut, strategiesFlags.fin, capital.StringFixed(2))
	for i, name := range out.Comparison.Ranking {
		o := out.Comparison.Outcomes[name]
		fmt.Printf("   %d. %-16s %8.2f %%   volatilité %6.2f %%\n", i+1, name, o.RendementTotal, o.Volatilite)
	}
	printWarnings(out.Avertissements)
	return nil
}
