package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hamsalma/finance-site/internal/domain/simulation"
)

var simulateFlags struct {
	actif, ticker         string
	initial, contribution string
	frequence             string
	debut, fin, duree     int
	frais                 float64
}

// simulateCmd simulate subcommand
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay a contribution plan on an instrument's history",
	Long: `Invest an initial amount then a periodic contribution, and report
the final value, CAGR, volatility and Sharpe ratio.

Examples:
  go run ./cmd/simctl simulate --actif etf --initial 1000 --contribution 100 --debut 2015 --fin 2024
  go run ./cmd/simctl simulate --actif actions --ticker AAPL --initial 5000 --duree 10 --frequence annuelle`,
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simulateFlags.actif, "actif", "etf", "asset class (actions, obligations, etf)")
	f.StringVar(&simulateFlags.ticker, "ticker", "", "ticker (default: the class default)")
	f.StringVar(&simulateFlags.initial, "initial", "1000", "initial amount")
	f.StringVar(&simulateFlags.contribution, "contribution", "0", "periodic contribution")
	f.StringVar(&simulateFlags.frequence, "frequence", "mensuelle", "mensuelle, trimestrielle, semestrielle, annuelle")
	f.IntVar(&simulateFlags.debut, "debut", 0, "start year")
	f.IntVar(&simulateFlags.fin, "fin", 0, "end year")
	f.IntVar(&simulateFlags.duree, "duree", 0, "duration in years (instead of --debut/--fin)")
	f.Float64Var(&simulateFlags.frais, "frais", 0, "management fee override, percent per year")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	engine, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	inst, err := engine.Universe.Resolve(simulateFlags.actif, simulateFlags.ticker)
	if err != nil {
		return err
	}
	freq, err := simulation.ParseFrequency(simulateFlags.frequence)
	if err != nil {
		return err
	}
	initial, err := parseAmount("initial", simulateFlags.initial)
	if err != nil {
		return err
	}
	contribution, err := parseAmount("contribution", simulateFlags.contribution)
	if err != nil {
		return err
	}

	out, err := engine.Simulation.Simulate(ctx, simulation.Inputs{
		MontantInitial: initial,
		Contribution:   contribution,
		Frequence:      freq,
		DateDebut:      simulateFlags.debut,
		DateFin:        simulateFlags.fin,
		Duree:          simulateFlags.duree,
		FraisGestion:   simulateFlags.frais,
		Instrument:     inst,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(out)
	}

	r := out.Resultats
	fmt.Printf("📈 %s %d → %d (%s)\n", out.Inputs.Ticker, out.Inputs.DateDebut, out.Inputs.DateFin, out.Inputs.Frequence)
	fmt.Printf("   Investi           : %s\n", r.MontantTotalInvesti.StringFixed(2))
	fmt.Printf("   Valeur finale     : %s\n", r.PortefeuilleFinal.StringFixed(2))
	fmt.Printf("   Rendement total   : %.2f %%\n", r.RendementTotal)
	fmt.Printf("   CAGR              : %.2f %% (%s)\n", r.CAGR, r.Analyse.CAGR)
	if r.Volatilite != nil {
		fmt.Printf("   Volatilité        : %.2f %% (%s)\n", *r.Volatilite, r.Analyse.Volatilite)
	}
	if r.RatioSharpe != nil {
		fmt.Printf("   Ratio de Sharpe   : %.2f (%s)\n", *r.RatioSharpe, r.Analyse.Sharpe)
	}
	if r.MaxDrawdown != nil {
		fmt.Printf("   Perte max.        : %.2f %%\n", *r.MaxDrawdown)
	}
	printWarnings(r.Avertissements)
	return nil
}
