package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sawpanic/paperdex/internal/clock"
	"github.com/sawpanic/paperdex/internal/config"
	"github.com/sawpanic/paperdex/internal/market"
	"github.com/sawpanic/paperdex/internal/orchestrator"
	"github.com/sawpanic/paperdex/internal/storage/memstore"
	"github.com/sawpanic/paperdex/internal/types"
	"github.com/sawpanic/paperdex/internal/xrand"
)

// runSelfTest exercises one full cycle with no network and no database: a
// fake feed seeded with a single hot pool, an in-memory store, a fixed
// clock and a seeded RNG. It fails if any phase records a Logic error.
func runSelfTest(cmd *cobra.Command, args []string) error {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	feed := market.NewFakeFeed()
	feed.SentimentScore, feed.BTCDominance = 65, 48
	feed.Trending["base"] = []types.PoolSnapshot{{
		TokenAddress: "0xselftest",
		Symbol:       "SELF",
		Network:      "base",
		PriceUSD:     1.5,
		LiquidityUSD: 500_000,
		CreatedAt:    now.Add(-72 * time.Hour),
		H1:           types.WindowStats{Volume: 50_000, PriceChangePct: 5, Buys: 40, Sells: 10, UniqueBuyers: 30, UniqueSellers: 8},
		H6:           types.WindowStats{Volume: 200_000, PriceChangePct: 15, Buys: 200, Sells: 60},
		H24:          types.WindowStats{Volume: 600_000, PriceChangePct: 25, Buys: 800, Sells: 200, UniqueBuyers: 500, UniqueSellers: 150},
	}}
	feed.SetPair("base", "0xselftest", types.Quote{
		TokenAddress: "0xselftest", Network: "base", PriceUSD: 1.5, LiquidityUSD: 500_000,
		Volume24h: 600_000, H24Buys: 800, H24Sells: 200, UniqueBuyers24h: 500, UniqueSellers24h: 150,
	})

	store := memstore.New()
	cfg := config.Default()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	orch := orchestrator.New(cfg, store.Repository(), feed, feed, feed, feed, feed,
		clock.Fixed{At: now}, xrand.New(1), log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summary := orch.Run(ctx, []string{"selftest-user"}, 1)
	if len(summary.Cycles) != 1 {
		return fmt.Errorf("selftest: expected exactly one cycle result, got %d", len(summary.Cycles))
	}

	result := summary.Cycles[0]
	fmt.Printf("regime=%s signals=%d opened=%d closed=%d errors=%v\n",
		summary.Regime.Regime, result.SignalsEvaluated, result.TradesOpened, result.TradesClosed, result.Errors)

	if result.Partial {
		return fmt.Errorf("selftest: cycle ended partial (a Logic error aborted it): %v", result.Errors)
	}

	return nil
}
