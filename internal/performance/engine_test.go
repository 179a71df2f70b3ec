package performance

import (
	"testing"
	"time"

	"github.com/sawpanic/paperdex/internal/types"
)

func closedTrade(layer types.Layer, pnl, fees float64, closedAt time.Time) types.Trade {
	return types.Trade{
		Status:   types.TradeClosed,
		Layer:    layer,
		PnLAbs:   pnl,
		FeesAbs:  fees,
		ClosedAt: closedAt,
	}
}

func TestCompute_ProfitFactorAndWinRate(t *testing.T) {
	now := time.Now()
	trades := []types.Trade{
		closedTrade(types.LayerCore, 100, 1, now.Add(-2*time.Hour)),
		closedTrade(types.LayerCore, -40, 1, now.Add(-time.Hour)),
	}
	m := Compute(trades, types.LayerCore, 7*24*time.Hour, now)
	if m.TradeCount != 2 {
		t.Fatalf("expected 2 trades, got %d", m.TradeCount)
	}
	wantPF := 99.0 / 41.0
	if diff := m.ProfitFactor - wantPF; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected PF %.4f, got %.4f", wantPF, m.ProfitFactor)
	}
	if m.WinRate != 50 {
		t.Fatalf("expected 50%% win rate, got %.2f", m.WinRate)
	}
}

func TestCompute_NoLossesCapsProfitFactorAtTen(t *testing.T) {
	now := time.Now()
	trades := []types.Trade{
		closedTrade(types.LayerCore, 100, 0, now.Add(-time.Hour)),
	}
	m := Compute(trades, types.LayerCore, 7*24*time.Hour, now)
	if m.ProfitFactor != 10 {
		t.Fatalf("expected PF capped at 10 with no losses, got %.2f", m.ProfitFactor)
	}
}

func TestCompute_NoTradesAndNoProfitGivesZeroProfitFactor(t *testing.T) {
	m := Compute(nil, types.LayerCore, 7*24*time.Hour, time.Now())
	if m.ProfitFactor != 0 || m.TradeCount != 0 {
		t.Fatalf("expected zeroed metrics for no trades, got %+v", m)
	}
}

func TestCompute_DrawdownTracksPeakToTrough(t *testing.T) {
	now := time.Now()
	trades := []types.Trade{
		closedTrade(types.LayerCore, 100, 0, now.Add(-4*time.Hour)),
		closedTrade(types.LayerCore, -60, 0, now.Add(-3*time.Hour)),
		closedTrade(types.LayerCore, 20, 0, now.Add(-2*time.Hour)),
	}
	m := Compute(trades, types.LayerCore, 7*24*time.Hour, now)
	if m.MaxDrawdownPct <= 0 {
		t.Fatalf("expected a positive max drawdown, got %.4f", m.MaxDrawdownPct)
	}
}

func TestCompute_StreaksTrackWinsAndLosses(t *testing.T) {
	now := time.Now()
	trades := []types.Trade{
		closedTrade(types.LayerCore, 10, 0, now.Add(-5*time.Hour)),
		closedTrade(types.LayerCore, 10, 0, now.Add(-4*time.Hour)),
		closedTrade(types.LayerCore, -5, 0, now.Add(-3*time.Hour)),
	}
	m := Compute(trades, types.LayerCore, 7*24*time.Hour, now)
	if m.LongestWinStreak != 2 {
		t.Fatalf("expected longest win streak 2, got %d", m.LongestWinStreak)
	}
	if m.CurrentStreak != -1 {
		t.Fatalf("expected current streak -1 after trailing loss, got %d", m.CurrentStreak)
	}
}

func TestCompute_KellyFractionCappedAtQuarter(t *testing.T) {
	now := time.Now()
	var trades []types.Trade
	for i := 0; i < 9; i++ {
		trades = append(trades, closedTrade(types.LayerCore, 100, 0, now.Add(-time.Duration(i+1)*time.Hour)))
	}
	trades = append(trades, closedTrade(types.LayerCore, -1, 0, now.Add(-10*time.Hour)))
	m := Compute(trades, types.LayerCore, 7*24*time.Hour, now)
	if m.KellyFraction != 0.25 {
		t.Fatalf("expected Kelly fraction capped at 0.25, got %.4f", m.KellyFraction)
	}
}

func TestCompute_ExcludesTradesOutsideWindow(t *testing.T) {
	now := time.Now()
	trades := []types.Trade{
		closedTrade(types.LayerCore, 100, 0, now.Add(-10*24*time.Hour)),
	}
	m := Compute(trades, types.LayerCore, 7*24*time.Hour, now)
	if m.TradeCount != 0 {
		t.Fatalf("expected the stale trade to be excluded, got %d", m.TradeCount)
	}
}

func TestCompute_LayerFilterIsolatesTrades(t *testing.T) {
	now := time.Now()
	trades := []types.Trade{
		closedTrade(types.LayerCore, 100, 0, now.Add(-time.Hour)),
		closedTrade(types.LayerSatellite, -50, 0, now.Add(-time.Hour)),
	}
	m := Compute(trades, types.LayerCore, 7*24*time.Hour, now)
	if m.TradeCount != 1 {
		t.Fatalf("expected only the core trade, got %d", m.TradeCount)
	}
}
