package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/paperdex/internal/clock"
	"github.com/sawpanic/paperdex/internal/config"
	"github.com/sawpanic/paperdex/internal/market"
	"github.com/sawpanic/paperdex/internal/regime"
	"github.com/sawpanic/paperdex/internal/storage/memstore"
	"github.com/sawpanic/paperdex/internal/types"
	"github.com/sawpanic/paperdex/internal/xrand"
)

func neutralRegime(o *Orchestrator, now time.Time) regime.Result {
	return o.regimeDetector.Detect(now, regime.Inputs{SentimentScore: 50, BTCDominance: 50})
}

func newTestOrchestrator(t *testing.T, feed *market.FakeFeed, at time.Time) (*Orchestrator, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	cfg := config.Default()
	o := New(cfg, store.Repository(), feed, feed, feed, feed, feed, clock.Fixed{At: at}, xrand.New(1), zerolog.Nop())
	return o, store
}

func hotPool(tokenAddress string) types.PoolSnapshot {
	return types.PoolSnapshot{
		TokenAddress: tokenAddress,
		Symbol:       "FOO",
		Network:      "base",
		PriceUSD:     1.5,
		LiquidityUSD: 500_000,
		CreatedAt:    time.Time{},
		H1:           types.WindowStats{Volume: 50_000, PriceChangePct: 5, Buys: 40, Sells: 10, UniqueBuyers: 30, UniqueSellers: 8},
		H6:           types.WindowStats{Volume: 200_000, PriceChangePct: 15, Buys: 200, Sells: 60},
		H24:          types.WindowStats{Volume: 600_000, PriceChangePct: 25, Buys: 800, Sells: 200, UniqueBuyers: 500, UniqueSellers: 150},
	}
}

func TestRunCycle_HappyPathOpensATrade(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	feed := market.NewFakeFeed()
	feed.SentimentScore, feed.BTCDominance = 65, 48

	pool := hotPool("0xabc")
	pool.CreatedAt = now.Add(-72 * time.Hour)
	feed.Trending["base"] = []types.PoolSnapshot{pool}
	feed.SetPair("base", "0xabc", types.Quote{
		TokenAddress: "0xabc", Network: "base", PriceUSD: 1.5, LiquidityUSD: 500_000,
		Volume24h: 600_000, H24Buys: 800, H24Sells: 200, UniqueBuyers24h: 500, UniqueSellers24h: 150,
	})

	o, store := newTestOrchestrator(t, feed, now)
	summary := o.Run(context.Background(), []string{"user-1"}, 2)

	if len(summary.Cycles) != 1 {
		t.Fatalf("expected 1 cycle result, got %d", len(summary.Cycles))
	}
	result := summary.Cycles[0]
	if result.SignalsEvaluated == 0 {
		t.Fatalf("expected at least one signal evaluated, got result=%+v", result)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}

	open, err := store.Repository().Trades.ListOpen(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TradesOpened > 0 && len(open) != result.TradesOpened {
		t.Fatalf("expected %d open trades persisted, got %d", result.TradesOpened, len(open))
	}
}

func TestRunCycle_RiskGateDeniesWhenPaused(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	feed := market.NewFakeFeed()
	pool := hotPool("0xdef")
	pool.CreatedAt = now.Add(-72 * time.Hour)
	feed.Trending["base"] = []types.PoolSnapshot{pool}
	feed.SetPair("base", "0xdef", types.Quote{
		TokenAddress: "0xdef", Network: "base", PriceUSD: 2, LiquidityUSD: 500_000,
		Volume24h: 600_000, H24Buys: 800, H24Sells: 200, UniqueBuyers24h: 500, UniqueSellers24h: 150,
	})

	o, store := newTestOrchestrator(t, feed, now)
	if err := store.Repository().Risk.Upsert(context.Background(), types.RiskState{
		UserID: "user-2", Capital: 10_000, IsPaused: true, PauseUntil: now.Add(24 * time.Hour), PauseReason: "kill switch",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := o.RunCycle(context.Background(), "user-2", neutralRegime(o, now), 50, 50, now)
	if result.TradesOpened != 0 {
		t.Fatalf("expected no trades to open while paused, got %d", result.TradesOpened)
	}
}

func TestRunCycle_ClosesAnOpenTradeOnExit(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	feed := market.NewFakeFeed()
	feed.SetPair("base", "0xopen", types.Quote{
		TokenAddress: "0xopen", Network: "base", PriceUSD: 0.5, LiquidityUSD: 500_000, Volume24h: 600_000,
	})

	o, store := newTestOrchestrator(t, feed, now)
	trade := types.Trade{
		ID: "t1", UserID: "user-3", TokenAddress: "0xopen", Network: "base",
		Side: types.SideBuy, Status: types.TradeOpen, Layer: types.LayerCore,
		Quantity: 100, EntryPrice: 1.0, EnteredAt: now.Add(-200 * time.Hour),
	}
	if err := store.Repository().Trades.Insert(context.Background(), trade); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Repository().Risk.Upsert(context.Background(), types.RiskState{UserID: "user-3", Capital: 10_000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := o.RunCycle(context.Background(), "user-3", neutralRegime(o, now), 50, 50, now)
	if result.TradesClosed != 1 {
		t.Fatalf("expected the losing, stale position to close, got %d closes (errors=%v)", result.TradesClosed, result.Errors)
	}

	open, err := store.Repository().Trades.ListOpen(context.Background(), "user-3", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected no open trades remaining, got %d", len(open))
	}
}

func TestRun_ProcessesMultipleUsersConcurrently(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	feed := market.NewFakeFeed()
	o, _ := newTestOrchestrator(t, feed, now)

	users := []string{"a", "b", "c", "d", "e"}
	summary := o.Run(context.Background(), users, 2)
	if len(summary.Cycles) != len(users) {
		t.Fatalf("expected %d cycle results, got %d", len(users), len(summary.Cycles))
	}
	seen := map[string]bool{}
	for _, c := range summary.Cycles {
		seen[c.UserID] = true
	}
	for _, u := range users {
		if !seen[u] {
			t.Fatalf("missing cycle result for user %q", u)
		}
	}
}

