package predictor

import (
	"testing"

	"github.com/sawpanic/paperdex/internal/config"
	"github.com/sawpanic/paperdex/internal/xrand"
)

func TestRun_ProducesOrderedPercentiles(t *testing.T) {
	cfg := config.MonteCarloConfig{Simulations: 500, TradesPerDay: 3}
	in := Inputs{WinRateCore: 60, WinRateSatellite: 50, AvgWin: 50, AvgLoss: 30, AvgSlippagePct: 0.01, AvgGasUSD: 1, Capital: 10_000, Days: 7}
	r := Run(cfg, in, xrand.New(5))

	if !(r.P10 <= r.P25 && r.P25 <= r.P50 && r.P50 <= r.P75 && r.P75 <= r.P90) {
		t.Fatalf("expected ordered percentiles, got %+v", r)
	}
}

func TestRun_ProbabilitiesWithinUnitInterval(t *testing.T) {
	cfg := config.MonteCarloConfig{Simulations: 300, TradesPerDay: 3}
	in := Inputs{WinRateCore: 40, WinRateSatellite: 35, AvgWin: 20, AvgLoss: 40, AvgSlippagePct: 0.02, AvgGasUSD: 2, Capital: 5_000, Days: 7}
	r := Run(cfg, in, xrand.New(9))

	probs := []float64{r.ProbPositivePnL, r.Prob2xDailyTarget, r.ProbDrawdownOver5Pct, r.ProbDrawdownOver10Pct, r.ProbLossStreakOver5, r.ProbRuin}
	for _, p := range probs {
		if p < 0 || p > 1 {
			t.Fatalf("probability %.4f out of [0,1]", p)
		}
	}
}

func TestRun_WeakEdgeTrendsTowardRuin(t *testing.T) {
	cfg := config.MonteCarloConfig{Simulations: 400, TradesPerDay: 3}
	strong := Run(cfg, Inputs{WinRateCore: 80, WinRateSatellite: 75, AvgWin: 50, AvgLoss: 20, Capital: 10_000, Days: 30}, xrand.New(1))
	weak := Run(cfg, Inputs{WinRateCore: 15, WinRateSatellite: 10, AvgWin: 20, AvgLoss: 50, Capital: 10_000, Days: 30}, xrand.New(1))

	if weak.ProbRuin < strong.ProbRuin {
		t.Fatalf("expected the weak-edge scenario to ruin more often: weak=%.3f strong=%.3f", weak.ProbRuin, strong.ProbRuin)
	}
}

func TestWinProbability_Clamped(t *testing.T) {
	if w := winProbability(100, 100); w != 0.9 {
		t.Fatalf("expected 0.9 ceiling, got %.2f", w)
	}
	if w := winProbability(0, 0); w != 0.1 {
		t.Fatalf("expected 0.1 floor, got %.2f", w)
	}
}
