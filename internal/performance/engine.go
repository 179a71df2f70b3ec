// Package performance computes rolling trade-performance statistics over
// closed paper trades per §4.10: profit factor, expectancy, drawdown,
// streaks and Kelly sizing.
package performance

import (
	"math"
	"sort"
	"time"

	"github.com/sawpanic/paperdex/internal/types"
)

// Metrics is one computed rolling-window performance summary.
type Metrics struct {
	TradeCount                 int
	GrossProfit                float64
	GrossLoss                  float64
	ProfitFactor               float64
	WinRate                    float64
	Expectancy                 float64
	SlippageAdjustedExpectancy float64
	MaxDrawdownPct             float64
	CurrentDrawdownPct         float64
	AvgSlippagePct             float64
	AvgGasUSD                  float64
	AvgLatencyMs               float64
	AvgCompetitionPct          float64
	RecoveryFactor             float64
	LongestWinStreak           int
	LongestLossStreak          int
	CurrentStreak              int // positive == win streak, negative == loss streak
	KellyFraction              float64
	ProjectedPnL7d             float64
}

func competitionPct(t types.Trade) float64 {
	if t.Metadata == nil {
		return 0
	}
	if v, ok := t.Metadata["competition_pct"].(float64); ok {
		return v
	}
	return 0
}

// inWindow filters closed trades whose closed_at falls within [now-window, now].
func inWindow(trades []types.Trade, layer types.Layer, window time.Duration, now time.Time) []types.Trade {
	cutoff := now.Add(-window)
	var out []types.Trade
	for _, t := range trades {
		if t.Status != types.TradeClosed {
			continue
		}
		if t.ClosedAt.Before(cutoff) || t.ClosedAt.After(now) {
			continue
		}
		if layer != "" && t.Layer != layer {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClosedAt.Before(out[j].ClosedAt) })
	return out
}

// Compute aggregates the rolling-window metrics for a layer (pass "" for the
// global/all-layer view).
func Compute(trades []types.Trade, layer types.Layer, window time.Duration, now time.Time) Metrics {
	windowed := inWindow(trades, layer, window, now)
	m := Metrics{TradeCount: len(windowed)}
	if len(windowed) == 0 {
		return m
	}

	var (
		sumFeesAdjustedPnL float64
		sumSlippage        float64
		sumGas             float64
		sumLatency         float64
		sumCompetition     float64
		sumAbsPnL          float64
		wins               int
	)

	for _, t := range windowed {
		netPnL := t.PnLAbs - t.FeesAbs
		if netPnL > 0 {
			m.GrossProfit += netPnL
			wins++
		} else {
			m.GrossLoss += -netPnL
		}
		sumFeesAdjustedPnL += netPnL
		sumSlippage += t.SlippageSimulated
		sumGas += t.GasSimulated
		sumLatency += float64(t.LatencyMs)
		sumCompetition += competitionPct(t)
		sumAbsPnL += math.Abs(t.PnLAbs)
	}

	n := float64(len(windowed))
	m.WinRate = float64(wins) / n * 100
	m.Expectancy = sumFeesAdjustedPnL / n
	m.AvgSlippagePct = sumSlippage / n
	m.AvgGasUSD = sumGas / n
	m.AvgLatencyMs = sumLatency / n
	m.AvgCompetitionPct = sumCompetition / n
	avgAbsPnL := sumAbsPnL / n

	switch {
	case m.GrossLoss == 0 && m.GrossProfit > 0:
		m.ProfitFactor = 10
	case m.GrossLoss == 0:
		m.ProfitFactor = 0
	default:
		m.ProfitFactor = m.GrossProfit / m.GrossLoss
	}

	m.SlippageAdjustedExpectancy = m.Expectancy - (m.AvgSlippagePct*avgAbsPnL + m.AvgGasUSD)

	maxDD, currentDD := drawdown(windowed)
	m.MaxDrawdownPct = maxDD
	m.CurrentDrawdownPct = currentDD

	totalNet := sumFeesAdjustedPnL
	if maxDD > 0 {
		m.RecoveryFactor = totalNet / (maxDD * 100)
	}

	m.LongestWinStreak, m.LongestLossStreak, m.CurrentStreak = streaks(windowed)

	wFrac := m.WinRate / 100
	if m.ProfitFactor > 0 {
		kelly := 0.5 * (wFrac - (1-wFrac)/m.ProfitFactor)
		m.KellyFraction = clamp(kelly, 0, 0.25)
	}

	dailyAvg := totalNet / (window.Hours() / 24)
	m.ProjectedPnL7d = dailyAvg * 7

	return m
}

// drawdown walks the cumulative net-pnl path and returns the peak-based max
// drawdown and the drawdown still outstanding at the last point.
func drawdown(trades []types.Trade) (maxDD, currentDD float64) {
	var cumulative, peak float64
	for _, t := range trades {
		cumulative += t.PnLAbs - t.FeesAbs
		if cumulative > peak {
			peak = cumulative
		}
		if peak > 0 {
			dd := (peak - cumulative) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	if peak > 0 {
		currentDD = (peak - cumulative) / peak
	}
	return maxDD, currentDD
}

func streaks(trades []types.Trade) (longestWin, longestLoss, current int) {
	var curWin, curLoss int
	for _, t := range trades {
		net := t.PnLAbs - t.FeesAbs
		if net > 0 {
			curWin++
			curLoss = 0
			if curWin > longestWin {
				longestWin = curWin
			}
			current = curWin
		} else {
			curLoss++
			curWin = 0
			if curLoss > longestLoss {
				longestLoss = curLoss
			}
			current = -curLoss
		}
	}
	return longestWin, longestLoss, current
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
