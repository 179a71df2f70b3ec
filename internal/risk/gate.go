// Package risk implements the baseline and adaptive trade-gating rules from
// §4.7: pause/kill-switch checks, per-layer trade caps, and a rolling-metrics
// adaptive sizing layer on top of the base risk fraction.
package risk

import (
	"time"

	"github.com/sawpanic/paperdex/internal/config"
	"github.com/sawpanic/paperdex/internal/types"
)

// RollingMetrics are the 30d performance figures the adaptive layer consumes;
// they are produced by the performance engine, never by the gate itself.
type RollingMetrics struct {
	TradeCount    int
	ProfitFactor  float64
	DrawdownPct   float64 // 0.12 == 12%
	KellyFraction float64 // half-Kelly, already capped at 0.25; 0 == unknown
}

const minTradesForAdaptive = 10

// Decision is the outcome of a single gate check.
type Decision struct {
	Allow          bool
	DenyReason     string
	MaxPositionUSD float64
	Multiplier     float64
}

type Gate struct{}

func New() *Gate {
	return &Gate{}
}

func deny(reason string) Decision {
	return Decision{Allow: false, DenyReason: reason}
}

// Check runs the baseline rules and, when enough rolling history exists, the
// adaptive sizing layer, returning whether a trade in `layer` may proceed and
// at what maximum position size.
func (g *Gate) Check(state types.RiskState, layer types.Layer, cfg config.RiskConfig, metrics RollingMetrics, now time.Time) Decision {
	if state.IsPaused && now.Before(state.PauseUntil) {
		return deny("paused until " + state.PauseUntil.Format(time.RFC3339))
	}

	if state.Capital > 0 {
		dailyLossPct := -minFloat(state.PnLToday, 0) / state.Capital
		if dailyLossPct >= cfg.MaxDailyLossPct {
			return deny("Pérdida diaria: daily loss limit breached")
		}
		weeklyLossPct := -minFloat(state.PnLThisWeek, 0) / state.Capital
		if weeklyLossPct >= cfg.MaxWeeklyLossPct {
			return deny("Pérdida semanal: weekly loss limit breached")
		}
	}

	switch layer {
	case types.LayerCore:
		if state.TradesTodayCore >= cfg.CoreDailyTradeCap {
			return deny("core daily trade cap reached")
		}
	case types.LayerSatellite:
		if state.TradesTodaySatellite >= cfg.SatelliteDailyTradeCap {
			return deny("satellite daily trade cap reached")
		}
		if state.ConsecutiveLossesSatellite >= cfg.SatelliteConsecLossLimit {
			return deny("satellite cooldown after consecutive losses")
		}
	}

	riskFraction := cfg.SatelliteMaxRiskPerTradePct
	if layer == types.LayerCore {
		riskFraction = cfg.CoreMaxRiskPerTradePct
	}
	basePosition := state.Capital * riskFraction

	if metrics.TradeCount < minTradesForAdaptive {
		return Decision{Allow: true, MaxPositionUSD: basePosition, Multiplier: 1}
	}

	if metrics.DrawdownPct > 0.10 {
		return deny("adaptive drawdown pause")
	}

	multiplier := 1.0
	switch {
	case metrics.ProfitFactor > 0 && metrics.ProfitFactor < 0.8:
		multiplier *= 0.5
	case metrics.ProfitFactor > 1.5:
		multiplier *= 1.25
	}
	if metrics.DrawdownPct > 0.03 {
		multiplier *= maxFloat(0.3, 1-metrics.DrawdownPct*5)
	}

	maxPosition := basePosition * multiplier
	if metrics.KellyFraction > 0 {
		kellyCap := state.Capital * metrics.KellyFraction
		if kellyCap < maxPosition {
			maxPosition = kellyCap
		}
	}

	return Decision{Allow: true, MaxPositionUSD: maxPosition, Multiplier: multiplier}
}

// ApplyTradeResult updates the risk ledger after a trade closes: counters,
// the satellite loss streak, and any pause triggered by a crossed threshold.
func ApplyTradeResult(state *types.RiskState, layer types.Layer, pnl float64, cfg config.RiskConfig, now time.Time) {
	state.PnLToday += pnl
	state.PnLThisWeek += pnl

	switch layer {
	case types.LayerCore:
		state.TradesTodayCore++
	case types.LayerSatellite:
		state.TradesTodaySatellite++
		if pnl < 0 {
			state.ConsecutiveLossesSatellite++
		} else {
			state.ConsecutiveLossesSatellite = 0
		}
	}

	if layer == types.LayerSatellite && state.ConsecutiveLossesSatellite >= cfg.SatelliteConsecLossLimit {
		state.IsPaused = true
		state.PauseReason = "satellite consecutive loss cooldown"
		state.PauseUntil = now.Add(time.Duration(cfg.SatelliteCooldownMs) * time.Millisecond)
	}

	if state.Capital > 0 {
		dailyLossPct := -minFloat(state.PnLToday, 0) / state.Capital
		weeklyLossPct := -minFloat(state.PnLThisWeek, 0) / state.Capital
		if dailyLossPct >= cfg.MaxDailyLossPct || weeklyLossPct >= cfg.MaxWeeklyLossPct {
			state.IsPaused = true
			state.PauseReason = "daily or weekly loss limit"
			state.PauseUntil = endOfUTCDay(now)
		}
	}

	state.Clamp()
}

func endOfUTCDay(now time.Time) time.Time {
	n := now.UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 23, 59, 59, 0, time.UTC)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
