package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamsalma/finance-site/internal/domain/market"
)

var warmFlags struct {
	debut, fin  int
	concurrency int
}

// warmCacheCmd warm-cache subcommand
var warmCacheCmd = &cobra.Command{
	Use:   "warm-cache [ticker...]",
	Short: "Preload price series into the cache",
	Long: `Fetch the given tickers (default: the whole universe) so later
requests hit the cache. Only useful with a durable cache backend
(CACHE_BACKEND=postgres or sqlite).

Examples:
  go run ./cmd/simctl warm-cache --debut 2000 --fin 2025
  go run ./cmd/simctl warm-cache ACWI ^GSPC`,
	RunE: runWarmCache,
}

func init() {
	f := warmCacheCmd.Flags()
	f.IntVar(&warmFlags.debut, "debut", 2000, "start year")
	f.IntVar(&warmFlags.fin, "fin", time.Now().Year(), "end year")
	f.IntVar(&warmFlags.concurrency, "concurrency", 4, "parallel vendor fetches")
}

func runWarmCache(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	engine, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	var instruments []market.Instrument
	if len(args) == 0 {
		for _, info := range engine.Universe.All() {
			instruments = append(instruments, market.Instrument{AssetClass: info.AssetClass, Ticker: info.Ticker})
		}
	} else {
		for _, ticker := range args {
			inst, err := engine.Universe.Instrument(ticker)
			if err != nil {
				return err
			}
			instruments = append(instruments, inst)
		}
	}

	fmt.Printf("🔥 Warming %d series (%d → %d)...\n", len(instruments), warmFlags.debut, warmFlags.fin)
	start := time.Now()

	if err := engine.Provider.Warm(ctx, instruments, warmFlags.debut, warmFlags.fin, warmFlags.concurrency); err != nil {
		return err
	}

	stats := engine.Provider.GetStats()
	fmt.Printf("✅ Done in %s (%d vendor calls, store: %v)\n", time.Since(start).Round(time.Millisecond), stats.VendorCalls, stats.Store)
	return nil
}
