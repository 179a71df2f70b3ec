// Package outcome implements the forward-outcome tracker described in §4.12:
// every evaluated signal (executed or rejected) gets an append-only record,
// and a periodic revisit fills in forward price/pnl for each elapsed window.
package outcome

import (
	"context"
	"sort"
	"time"

	"github.com/sawpanic/paperdex/internal/types"
)

// PriceFetcher reads the current USD price for a token. Implemented by the
// market-feed adapter.
type PriceFetcher interface {
	Price(ctx context.Context, network, tokenAddress string) (float64, error)
}

// EmitInput carries everything needed to create a new outcome record from an
// evaluated signal, whatever its disposition.
type EmitInput struct {
	UserID       string
	TokenAddress string
	Network      string
	Layer        types.Layer
	Confidence   float64
	Regime       types.Regime
	EntryPrice   float64
	WasExecuted  bool
	RejectReason string
	Reasons      []string
	Source       types.SignalSource
}

// Emit builds the append-only record for one evaluated signal.
func Emit(in EmitInput, id string, now time.Time) types.SignalOutcome {
	return types.SignalOutcome{
		ID:           id,
		UserID:       in.UserID,
		SignalKey:    in.TokenAddress + "|" + string(in.Source) + "|" + now.UTC().Format(time.RFC3339Nano),
		TokenAddress: in.TokenAddress,
		Network:      in.Network,
		Layer:        in.Layer,
		Confidence:   in.Confidence,
		RegimeAtEmit: in.Regime,
		EntryPrice:   in.EntryPrice,
		WasExecuted:  in.WasExecuted,
		RejectReason: in.RejectReason,
		Reasons:      in.Reasons,
		SignalSource: in.Source,
		EmittedAt:    now,
	}
}

// pendingWindows returns the windows of o that have elapsed as of now but
// have not yet been recorded.
func pendingWindows(o *types.SignalOutcome, now time.Time) []types.OutcomeWindow {
	var pending []types.OutcomeWindow
	for _, w := range types.AllWindows {
		if _, done := o.Prices[w]; done {
			continue
		}
		if now.Sub(o.EmittedAt) >= types.WindowDelay(w) {
			pending = append(pending, w)
		}
	}
	return pending
}

// NeedsRevisit reports whether o has at least one elapsed-but-unrecorded
// window as of now.
func NeedsRevisit(o types.SignalOutcome, now time.Time) bool {
	if o.FullyTracked {
		return false
	}
	return len(pendingWindows(&o, now)) > 0
}

// Revisit fetches the current price once (only if at least one window is
// due) and records it against every elapsed-but-unfilled window in a single
// pass, per §4.12. A no-op if nothing is due.
func Revisit(ctx context.Context, o *types.SignalOutcome, fetcher PriceFetcher, now time.Time) error {
	pending := pendingWindows(o, now)
	if len(pending) == 0 {
		return nil
	}

	price, err := fetcher.Price(ctx, o.Network, o.TokenAddress)
	if err != nil {
		return err
	}

	for _, w := range pending {
		o.RecordWindow(w, price)
	}
	return nil
}

// LayerBreakdown is the hit-rate/avg-pnl summary for one layer at the 24h
// horizon, the canonical maturity window used for validation.
type LayerBreakdown struct {
	Count   int
	HitRate float64
	AvgPnL  float64
}

// Summary is the validation-summary aggregation described in §4.12.
type Summary struct {
	HitRateByWindow map[types.OutcomeWindow]float64
	AvgPnLByWindow  map[types.OutcomeWindow]float64
	ByLayer         map[types.Layer]LayerBreakdown
	ByRegime        map[types.Regime]LayerBreakdown
	Recent          []types.SignalOutcome
}

// Summarize aggregates hit rate and avg pnl per window plus per-layer and
// per-regime breakdowns (measured at the 24h window), and the most recent n
// records by emission time.
func Summarize(outcomes []types.SignalOutcome, recentN int) Summary {
	s := Summary{
		HitRateByWindow: map[types.OutcomeWindow]float64{},
		AvgPnLByWindow:  map[types.OutcomeWindow]float64{},
		ByLayer:         map[types.Layer]LayerBreakdown{},
		ByRegime:        map[types.Regime]LayerBreakdown{},
	}

	for _, w := range types.AllWindows {
		var hits, total int
		var sumPnL float64
		for _, o := range outcomes {
			pnl, ok := o.PnLPcts[w]
			if !ok {
				continue
			}
			total++
			sumPnL += pnl
			if pnl > 0 {
				hits++
			}
		}
		if total > 0 {
			s.HitRateByWindow[w] = float64(hits) / float64(total)
			s.AvgPnLByWindow[w] = sumPnL / float64(total)
		}
	}

	type acc struct {
		hits, total int
		sumPnL      float64
	}
	byLayer := map[types.Layer]*acc{}
	byRegime := map[types.Regime]*acc{}

	for _, o := range outcomes {
		pnl, ok := o.PnLPcts[types.Window24h]
		if !ok {
			continue
		}
		la, ok := byLayer[o.Layer]
		if !ok {
			la = &acc{}
			byLayer[o.Layer] = la
		}
		la.total++
		la.sumPnL += pnl
		if pnl > 0 {
			la.hits++
		}

		ra, ok := byRegime[o.RegimeAtEmit]
		if !ok {
			ra = &acc{}
			byRegime[o.RegimeAtEmit] = ra
		}
		ra.total++
		ra.sumPnL += pnl
		if pnl > 0 {
			ra.hits++
		}
	}

	for layer, a := range byLayer {
		s.ByLayer[layer] = LayerBreakdown{
			Count:   a.total,
			HitRate: float64(a.hits) / float64(a.total),
			AvgPnL:  a.sumPnL / float64(a.total),
		}
	}
	for regime, a := range byRegime {
		s.ByRegime[regime] = LayerBreakdown{
			Count:   a.total,
			HitRate: float64(a.hits) / float64(a.total),
			AvgPnL:  a.sumPnL / float64(a.total),
		}
	}

	sorted := make([]types.SignalOutcome, len(outcomes))
	copy(sorted, outcomes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EmittedAt.After(sorted[j].EmittedAt) })
	if recentN > 0 && recentN < len(sorted) {
		sorted = sorted[:recentN]
	}
	s.Recent = sorted

	return s
}
