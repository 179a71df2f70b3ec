package position

import (
	"testing"
	"time"

	"github.com/sawpanic/paperdex/internal/config"
	"github.com/sawpanic/paperdex/internal/types"
)

func testCfg() config.PositionConfig {
	return config.Default().Position
}

func openTrade(layer types.Layer, enteredAt time.Time, entryPrice float64) types.Trade {
	return types.Trade{
		Layer:      layer,
		EntryPrice: entryPrice,
		EnteredAt:  enteredAt,
		Status:     types.TradeOpen,
		Metadata:   map[string]interface{}{},
	}
}

func TestEvaluate_TrailingStopRequiresNegativePnL(t *testing.T) {
	m := New(testCfg())
	trade := openTrade(types.LayerCore, time.Now(), 100)
	trade.Metadata["highest_price"] = 120.0
	snap := Snapshot{CurrentPrice: 85, LiquidityUSD: 100_000, Now: time.Now().Add(time.Hour)}

	eval := m.Evaluate(trade, snap)
	if !eval.ShouldExit || eval.Reason != TrailingStop {
		t.Fatalf("expected trailing stop, got %+v", eval)
	}
}

func TestEvaluate_TrailingStopDoesNotFireOnPositivePnL(t *testing.T) {
	m := New(testCfg())
	trade := openTrade(types.LayerCore, time.Now(), 100)
	trade.Metadata["highest_price"] = 130.0
	// current price dropped from the high-water mark but is still above entry
	snap := Snapshot{CurrentPrice: 110, LiquidityUSD: 100_000, Now: time.Now().Add(time.Hour)}

	eval := m.Evaluate(trade, snap)
	if eval.Reason == TrailingStop {
		t.Fatalf("did not expect trailing stop with positive pnl, got %+v", eval)
	}
}

func TestEvaluate_TimeLimitCoreVsSatellite(t *testing.T) {
	m := New(testCfg())
	enteredAt := time.Now().Add(-50 * time.Hour)
	core := openTrade(types.LayerCore, enteredAt, 100)
	satellite := openTrade(types.LayerSatellite, enteredAt, 100)
	snap := Snapshot{CurrentPrice: 100, LiquidityUSD: 100_000, Now: time.Now()}

	if eval := m.Evaluate(core, snap); !eval.ShouldExit || eval.Reason != TimeLimit {
		t.Fatalf("expected core time-limit exit at 50h, got %+v", eval)
	}
	if eval := m.Evaluate(satellite, snap); eval.ShouldExit {
		t.Fatalf("did not expect satellite time-limit exit at 50h (168h cap), got %+v", eval)
	}
}

func TestEvaluate_VolumeFadeRequiresProfit(t *testing.T) {
	m := New(testCfg())
	trade := openTrade(types.LayerCore, time.Now(), 100)
	trade.Metadata["entry_volume_24h"] = 100_000.0
	snap := Snapshot{CurrentPrice: 110, CurrentVolume: 10_000, LiquidityUSD: 100_000, Now: time.Now().Add(time.Hour)}

	eval := m.Evaluate(trade, snap)
	if !eval.ShouldExit || eval.Reason != VolumeFade {
		t.Fatalf("expected volume fade exit, got %+v", eval)
	}
}

func TestEvaluate_LiquidityFloor(t *testing.T) {
	m := New(testCfg())
	trade := openTrade(types.LayerCore, time.Now(), 100)
	snap := Snapshot{CurrentPrice: 100, LiquidityUSD: 5_000, Now: time.Now().Add(time.Hour)}

	eval := m.Evaluate(trade, snap)
	if !eval.ShouldExit || eval.Reason != LiquidityFloor {
		t.Fatalf("expected liquidity floor exit, got %+v", eval)
	}
}

func TestEvaluate_TakeProfitCoreVsSatellite(t *testing.T) {
	m := New(testCfg())
	core := openTrade(types.LayerCore, time.Now(), 100)
	satellite := openTrade(types.LayerSatellite, time.Now(), 100)
	snap := Snapshot{CurrentPrice: 116, LiquidityUSD: 100_000, Now: time.Now().Add(time.Hour)}

	if eval := m.Evaluate(core, snap); !eval.ShouldExit || eval.Reason != TakeProfit {
		t.Fatalf("expected core take-profit at +16%%, got %+v", eval)
	}
	if eval := m.Evaluate(satellite, snap); eval.ShouldExit {
		t.Fatalf("did not expect satellite take-profit at +16%% (80%% target), got %+v", eval)
	}
}

func TestEvaluate_PrecedenceTrailingStopBeatsTimeLimit(t *testing.T) {
	m := New(testCfg())
	trade := openTrade(types.LayerCore, time.Now().Add(-60*time.Hour), 100)
	trade.Metadata["highest_price"] = 120.0
	snap := Snapshot{CurrentPrice: 85, LiquidityUSD: 100_000, Now: time.Now()}

	eval := m.Evaluate(trade, snap)
	if eval.Reason != TrailingStop {
		t.Fatalf("expected trailing stop to take precedence over time limit, got %s", eval.Reason)
	}
}

func TestClose_WritesInvariantFields(t *testing.T) {
	trade := openTrade(types.LayerCore, time.Now().Add(-time.Hour), 100)
	snap := Snapshot{CurrentPrice: 90, Now: time.Now()}
	eval := Evaluation{ShouldExit: true, Reason: LiquidityFloor, HighestPrice: 105}

	Close(&trade, snap, eval)

	if trade.Status != types.TradeClosed {
		t.Fatalf("expected closed status, got %s", trade.Status)
	}
	if trade.ExitPrice != 90 || trade.ExitReason != "liquidity too low" {
		t.Fatalf("unexpected close fields: %+v", trade)
	}
	if trade.ClosedAt.IsZero() {
		t.Fatal("expected closed_at to be set")
	}
}
