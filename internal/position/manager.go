// Package position evaluates open paper trades against the five exit rules
// from §4.9, first-match-wins, in the teacher's ExitEvaluator precedence-chain
// idiom: an ordered series of evaluateX guards, with a small ExitReason enum
// carrying the trigger name through to the closed trade.
package position

import (
	"time"

	"github.com/sawpanic/paperdex/internal/config"
	"github.com/sawpanic/paperdex/internal/types"
)

// ExitReason enumerates the five rules in their evaluation precedence.
type ExitReason int

const (
	NoExit ExitReason = iota
	TrailingStop
	TimeLimit
	VolumeFade
	LiquidityFloor
	TakeProfit
)

func (r ExitReason) String() string {
	switch r {
	case TrailingStop:
		return "trailing stop"
	case TimeLimit:
		return "time max"
	case VolumeFade:
		return "momentum exhausted"
	case LiquidityFloor:
		return "liquidity too low"
	case TakeProfit:
		return "take profit"
	default:
		return "no_exit"
	}
}

// Snapshot is the live market read the manager evaluates a trade against.
type Snapshot struct {
	CurrentPrice  float64
	CurrentVolume float64
	LiquidityUSD  float64
	Now           time.Time
}

// Evaluation is the manager's verdict for one open trade.
type Evaluation struct {
	ShouldExit    bool
	Reason        ExitReason
	HighestPrice  float64 // updated highestPrice to persist on the trade's metadata
	PnLPct        float64
}

// Manager evaluates open trades against the ordered exit rules.
type Manager struct {
	cfg config.PositionConfig
}

func New(cfg config.PositionConfig) *Manager {
	return &Manager{cfg: cfg}
}

func highestPriceOf(trade types.Trade) float64 {
	if trade.Metadata == nil {
		return trade.EntryPrice
	}
	if v, ok := trade.Metadata["highest_price"].(float64); ok && v > 0 {
		return v
	}
	return trade.EntryPrice
}

func entryVolumeOf(trade types.Trade) (float64, bool) {
	if trade.Metadata == nil {
		return 0, false
	}
	v, ok := trade.Metadata["entry_volume_24h"].(float64)
	return v, ok && v > 0
}

func trailingPct(cfg config.PositionConfig, layer types.Layer) float64 {
	if layer == types.LayerSatellite {
		return cfg.TrailingPctSatellite
	}
	return cfg.TrailingPctCore
}

func maxHoldHours(cfg config.PositionConfig, layer types.Layer) float64 {
	if layer == types.LayerSatellite {
		return cfg.MaxHoldHoursSatellite
	}
	return cfg.MaxHoldHoursCore
}

func takeProfitPct(cfg config.PositionConfig, layer types.Layer) float64 {
	if layer == types.LayerSatellite {
		return cfg.TakeProfitPctSatellite
	}
	return cfg.TakeProfitPctCore
}

// Evaluate runs the five exit rules in precedence order against one open
// trade, returning the first rule that fires.
func (m *Manager) Evaluate(trade types.Trade, snap Snapshot) Evaluation {
	highest := highestPriceOf(trade)
	if snap.CurrentPrice > highest {
		highest = snap.CurrentPrice
	}

	pnlPct := 0.0
	if trade.EntryPrice != 0 {
		pnlPct = (snap.CurrentPrice/trade.EntryPrice - 1) * 100
	}

	eval := Evaluation{HighestPrice: highest, PnLPct: pnlPct}

	trail := trailingPct(m.cfg, trade.Layer)
	if trail > 0 && highest > 0 && snap.CurrentPrice <= highest*(1-trail) && pnlPct < 0 {
		eval.ShouldExit = true
		eval.Reason = TrailingStop
		return eval
	}

	hoursHeld := snap.Now.Sub(trade.EnteredAt).Hours()
	if hoursHeld >= maxHoldHours(m.cfg, trade.Layer) {
		eval.ShouldExit = true
		eval.Reason = TimeLimit
		return eval
	}

	if entryVolume, known := entryVolumeOf(trade); known {
		if snap.CurrentVolume/entryVolume < m.cfg.VolumeFadeRatio && pnlPct > 0 {
			eval.ShouldExit = true
			eval.Reason = VolumeFade
			return eval
		}
	}

	if snap.LiquidityUSD < m.cfg.LiquidityFloorUSD {
		eval.ShouldExit = true
		eval.Reason = LiquidityFloor
		return eval
	}

	if pnlPct >= takeProfitPct(m.cfg, trade.Layer)*100 {
		eval.ShouldExit = true
		eval.Reason = TakeProfit
		return eval
	}

	return eval
}

// Close applies an exit evaluation to an open trade, writing the invariant
// fields the Trade type requires (exit price, pnl, win flag, closed_at).
func Close(trade *types.Trade, snap Snapshot, eval Evaluation) {
	trade.Close(snap.CurrentPrice, eval.Reason.String(), snap.Now)
	if trade.Metadata == nil {
		trade.Metadata = map[string]interface{}{}
	}
	trade.Metadata["highest_price"] = eval.HighestPrice
}
