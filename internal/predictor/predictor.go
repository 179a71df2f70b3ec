// Package predictor runs the Monte Carlo forward projection described in
// §4.11: simulate many independent daily-pnl paths from the current rolling
// win rate and average win/loss magnitude, then summarise the distribution.
package predictor

import (
	"math"
	"sort"

	"github.com/sawpanic/paperdex/internal/config"
	"github.com/sawpanic/paperdex/internal/xrand"
)

// Inputs are the rolling statistics the simulation draws from.
type Inputs struct {
	WinRateCore       float64 // percent, 0-100
	WinRateSatellite  float64
	AvgWin            float64 // positive USD magnitude
	AvgLoss           float64 // positive USD magnitude
	AvgSlippagePct    float64
	AvgGasUSD         float64
	Capital           float64
	DailyTargetUSD    float64
	Days              int // window length: 7 or 30
}

// Result summarises the simulated final-pnl distribution across paths.
type Result struct {
	P10, P25, P50, P75, P90 float64
	ProbPositivePnL         float64
	Prob2xDailyTarget       float64
	ProbDrawdownOver5Pct    float64
	ProbDrawdownOver10Pct   float64
	ProbLossStreakOver5     float64
	ProbRuin                float64 // final pnl <= -5% of capital
}

func winProbability(winRateCore, winRateSatellite float64) float64 {
	return clamp((winRateCore+winRateSatellite)/200, 0.1, 0.9)
}

// pathOutcome is one simulated trading path's summary statistics.
type pathOutcome struct {
	finalPnL     float64
	maxDrawdown  float64
	maxLossStreak int
}

func simulatePath(cfg config.MonteCarloConfig, in Inputs, src xrand.Source) pathOutcome {
	winProb := winProbability(in.WinRateCore, in.WinRateSatellite)
	totalTrades := cfg.TradesPerDay * in.Days

	var cumulative, peak, maxDD float64
	var lossStreak, maxLossStreak int

	for i := 0; i < totalTrades; i++ {
		isWin := src.Float64() < winProb

		var pnl float64
		if isWin {
			pnl = in.AvgWin + xrand.StudentT(src, 3)*0.6*in.AvgWin
		} else {
			pnl = -(in.AvgLoss + xrand.StudentT(src, 3)*0.5*in.AvgLoss)
		}

		friction := in.AvgSlippagePct*math.Abs(pnl) + in.AvgGasUSD
		pnl -= friction

		cumulative += pnl
		if cumulative > peak {
			peak = cumulative
		}
		if peak > 0 {
			if dd := (peak - cumulative) / peak; dd > maxDD {
				maxDD = dd
			}
		}

		if pnl < 0 {
			lossStreak++
			if lossStreak > maxLossStreak {
				maxLossStreak = lossStreak
			}
		} else {
			lossStreak = 0
		}
	}

	return pathOutcome{finalPnL: cumulative, maxDrawdown: maxDD, maxLossStreak: maxLossStreak}
}

// Run executes cfg.Simulations independent paths and summarises them.
func Run(cfg config.MonteCarloConfig, in Inputs, src xrand.Source) Result {
	simulations := cfg.Simulations
	if simulations <= 0 {
		simulations = 5000
	}

	paths := make([]pathOutcome, simulations)
	for i := range paths {
		paths[i] = simulatePath(cfg, in, src)
	}

	finals := make([]float64, simulations)
	for i, p := range paths {
		finals[i] = p.finalPnL
	}
	sort.Float64s(finals)

	var positive, hit2xTarget, dd5, dd10, streakOver5, ruin int
	for _, p := range paths {
		if p.finalPnL > 0 {
			positive++
		}
		if in.DailyTargetUSD > 0 && p.finalPnL >= 2*in.DailyTargetUSD*float64(in.Days) {
			hit2xTarget++
		}
		if p.maxDrawdown > 0.05 {
			dd5++
		}
		if p.maxDrawdown > 0.10 {
			dd10++
		}
		if p.maxLossStreak > 5 {
			streakOver5++
		}
		if in.Capital > 0 && p.finalPnL <= -0.05*in.Capital {
			ruin++
		}
	}

	n := float64(simulations)
	return Result{
		P10:                   percentile(finals, 0.10),
		P25:                   percentile(finals, 0.25),
		P50:                   percentile(finals, 0.50),
		P75:                   percentile(finals, 0.75),
		P90:                   percentile(finals, 0.90),
		ProbPositivePnL:       float64(positive) / n,
		Prob2xDailyTarget:     float64(hit2xTarget) / n,
		ProbDrawdownOver5Pct:  float64(dd5) / n,
		ProbDrawdownOver10Pct: float64(dd10) / n,
		ProbLossStreakOver5:   float64(streakOver5) / n,
		ProbRuin:              float64(ruin) / n,
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
