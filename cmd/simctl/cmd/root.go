// Package cmd - simctl CLI commands
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hamsalma/finance-site/internal/app"
	"github.com/hamsalma/finance-site/internal/pkg/config"
	"github.com/hamsalma/finance-site/internal/pkg/logger"
)

var (
	// common flags
	cfgFile    string
	verbose    bool
	jsonOutput bool
)

// rootCmd root command
var rootCmd = &cobra.Command{
	Use:   "simctl",
	Short: "Portfolio simulation engine - CLI",
	Long: `Portfolio simulation engine - CLI

Usage:
    go run ./cmd/simctl [command]

Commands:
    simulate      - replay a contribution plan on an instrument's history
    predict       - fit a return trend and forecast the next periods
    strategies    - compare lump sum and DCA at every frequency
    warm-cache    - preload price series into the cache
    universe      - list the supported tickers
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print the raw JSON result")

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(strategiesCmd)
	rootCmd.AddCommand(warmCacheCmd)
	rootCmd.AddCommand(universeCmd)
}

// initConfig reads the env file named by --config, if any
func initConfig() error {
	if cfgFile == "" {
		return nil
	}
	if err := godotenv.Load(cfgFile); err != nil {
		return fmt.Errorf("load %s: %w", cfgFile, err)
	}
	return nil
}

// newEngine loads configuration and wires the engine. Logs go to stderr
// so stdout stays clean for results.
func newEngine(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	if err := logger.Init(logger.Config{
		Level:          level,
		Format:         "pretty",
		ServiceName:    "simctl",
		ServiceVersion: "1.0.0",
	}); err != nil {
		return nil, err
	}

	return app.New(ctx, cfg)
}

func parseAmount(flag, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: invalid amount %q", flag, value)
	}
	return d, nil
}

func printJSON(v any) error {
	decimal.MarshalJSONWithoutQuotes = true

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Printf("⚠️  %s\n", w)
	}
}
