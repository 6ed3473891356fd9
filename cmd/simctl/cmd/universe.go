package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hamsalma/finance-site/internal/domain/market"
)

// universeCmd universe subcommand
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "List the supported tickers",
	RunE: func(cmd *cobra.Command, args []string) error {
		u := market.DefaultUniverse()

		if jsonOutput {
			return printJSON(u.All())
		}

		for _, class := range market.AssetClasses {
			fmt.Printf("%s (défaut %s)\n", class, u.Default(class))
			for _, info := range u.Tickers(class) {
				fmt.Printf("   %-10s %s\n", info.Ticker, info.Name)
			}
		}
		return nil
	},
}
