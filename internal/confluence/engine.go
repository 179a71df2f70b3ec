// Package confluence combines a detector signal, token health, regime and
// wallet-movement confirmation into a single trade decision, per §4.6.
package confluence

import (
	"context"
	"strconv"
	"time"

	"github.com/sawpanic/paperdex/internal/early"
	"github.com/sawpanic/paperdex/internal/momentum"
	"github.com/sawpanic/paperdex/internal/regime"
	"github.com/sawpanic/paperdex/internal/types"
)

// WalletConfluence summarises recent buy-side wallet movements for a token.
type WalletConfluence struct {
	Count     int
	AvgScore  float64
	TotalUSD  float64
	WalletIDs []string
}

// WalletConfluenceLookup looks up buy movements from tracked wallets whose
// latest score is at or above 70, within the window from `since` to now.
type WalletConfluenceLookup interface {
	Lookup(ctx context.Context, tokenAddress, network string, since time.Time) (WalletConfluence, error)
}

const walletConfluenceWindow = 6 * time.Hour
const minWalletScore = 70.0
const minWalletCount = 3

// Decision is the output of a confluence evaluation: a candidate worth
// routing to the risk gate, or nil when the token is discarded.
type Decision struct {
	TokenAddress string
	Network      string
	Symbol       string
	Source       types.SignalSource
	Layer        types.Layer
	Confidence   float64
	Reasons      []string
	Side         types.Side
	PriceUSD     float64
	Wallets      WalletConfluence
}

// Engine evaluates momentum and early candidates against health, regime and
// wallet confirmation data.
type Engine struct {
	wallets WalletConfluenceLookup
}

func New(wallets WalletConfluenceLookup) *Engine {
	return &Engine{wallets: wallets}
}

func (e *Engine) lookupWallets(ctx context.Context, tokenAddress, network string, now time.Time) WalletConfluence {
	if e.wallets == nil {
		return WalletConfluence{}
	}
	wc, err := e.wallets.Lookup(ctx, tokenAddress, network, now.Add(-walletConfluenceWindow))
	if err != nil {
		// a feed failure is "no data this cycle", not a hard error (§6)
		return WalletConfluence{}
	}
	return wc
}

// Evaluate scores a momentum-pipeline candidate.
func (e *Engine) Evaluate(ctx context.Context, sig momentum.Signal, h types.TokenHealthSnapshot, reg regime.Result, calib types.CalibrationState, now time.Time) *Decision {
	wc := e.lookupWallets(ctx, sig.TokenAddress, sig.Network, now)

	detectorComp := detectorComponentMomentum(sig.Score)
	walletComp := walletComponentMomentum(wc)
	healthComp := healthComponentMomentum(h)
	regimeComp := regimeComponentMomentum(reg.Regime)

	confidence := clamp(detectorComp+walletComp+healthComp+regimeComp, 0, 100)
	if confidence < calib.SatelliteMinConfidence {
		return nil
	}

	layer := types.LayerSatellite
	if confidence >= calib.CoreMinConfidence {
		layer = types.LayerCore
	}

	return &Decision{
		TokenAddress: sig.TokenAddress,
		Network:      sig.Network,
		Symbol:       sig.Symbol,
		Source:       types.SourceMomentum,
		Layer:        layer,
		Confidence:   confidence,
		Side:         types.SideBuy,
		PriceUSD:     sig.PriceUSD,
		Wallets:      wc,
		Reasons: reasonsFor(
			"momentum score", detectorComp,
			"wallet confluence", walletComp,
			"health", healthComp,
			"regime", regimeComp,
		),
	}
}

// hasCriticalFlag reports a flag that discards an early candidate outright
// regardless of score.
func hasCriticalFlag(h types.TokenHealthSnapshot) bool {
	for _, f := range h.RiskFlags {
		if f == "no_sells_24h" || f == "zero_price" {
			return true
		}
	}
	return false
}

// EvaluateEarly scores an early-pipeline candidate.
func (e *Engine) EvaluateEarly(ctx context.Context, sig early.Signal, h types.TokenHealthSnapshot, reg regime.Result, calib types.CalibrationState, now time.Time) *Decision {
	if hasCriticalFlag(h) {
		return nil
	}

	wc := e.lookupWallets(ctx, sig.TokenAddress, sig.Network, now)

	detectorComp := sig.Score / 100 * 35
	walletComp := walletComponentEarly(wc)
	healthComp := healthComponentEarly(h)
	organicComp := organicBuyRatioComponent(sig.BuyerSellerRatio)
	regimeComp := regimeComponentEarly(reg.Regime)

	confidence := clamp(detectorComp+walletComp+healthComp+organicComp+regimeComp, 0, 100)
	if confidence < calib.SatelliteMinConfidence {
		return nil
	}

	layer := types.LayerSatellite
	if confidence >= 85 && wc.Count >= minWalletCount {
		layer = types.LayerCore
	}

	return &Decision{
		TokenAddress: sig.TokenAddress,
		Network:      sig.Network,
		Symbol:       sig.Symbol,
		Source:       types.SourceEarly,
		Layer:        layer,
		Confidence:   confidence,
		Side:         types.SideBuy,
		PriceUSD:     sig.PriceUSD,
		Wallets:      wc,
		Reasons: reasonsFor(
			"early score", detectorComp,
			"wallet confluence", walletComp,
			"health", healthComp,
			"organic buy ratio", organicComp,
			"regime", regimeComp,
		),
	}
}

func walletComponentMomentum(wc WalletConfluence) float64 {
	if wc.Count < minWalletCount {
		return 0
	}
	quality := clamp((wc.AvgScore-minWalletScore)/30, 0, 1)
	raw := clamp(float64(wc.Count)/5*25, 0, 25)
	return clamp(raw*(0.6+0.4*quality), 0, 25)
}

func walletComponentEarly(wc WalletConfluence) float64 {
	if wc.Count < minWalletCount {
		return 0
	}
	quality := clamp((wc.AvgScore-minWalletScore)/30, 0, 1)
	raw := clamp(float64(wc.Count)/5*20, 0, 20)
	boosted := raw * 1.5
	return clamp(boosted*(0.6+0.4*quality), 0, 30)
}

// detectorComponentMomentum maps a momentum score onto the ≤40 cap in
// tiers, saturating at score=80 rather than score=100 — a strong
// momentum read doesn't need a perfect score to earn the full weight.
func detectorComponentMomentum(score float64) float64 {
	switch {
	case score >= 80:
		return 40
	case score >= 65:
		return 30
	case score >= 55:
		return 20
	case score >= 40:
		return 10
	default:
		return 0
	}
}

// healthComponentMomentum maps a health score onto the ±20 band in tiers,
// saturating the +20 cap at health=85 rather than 100, then applies the
// per-risk-flag penalty.
func healthComponentMomentum(h types.TokenHealthSnapshot) float64 {
	var base float64
	switch {
	case h.HealthScore >= 85:
		base = 20
	case h.HealthScore >= 70:
		base = 12
	case h.HealthScore >= 50:
		base = 4
	case h.HealthScore >= 35:
		base = -4
	default:
		base = -12
	}
	penalty := 5 * float64(len(h.RiskFlags))
	return clamp(base-penalty, -20, 20)
}

// healthComponentEarly applies a stricter floor than the momentum pipeline:
// it never rewards below a 60 health score and cannot go negative, since the
// critical-flag check above already screens out the worst tokens.
func healthComponentEarly(h types.TokenHealthSnapshot) float64 {
	base := (h.HealthScore - 60) / 40 * 15
	penalty := 3 * float64(len(h.RiskFlags))
	return clamp(base-penalty, 0, 15)
}

func regimeComponentMomentum(r types.Regime) float64 {
	switch r {
	case types.RegimeRiskOn:
		return 15
	case types.RegimeNeutral:
		return 5
	default:
		return -8
	}
}

func regimeComponentEarly(r types.Regime) float64 {
	switch r {
	case types.RegimeRiskOn:
		return 10
	case types.RegimeNeutral:
		return 3
	default:
		return -4
	}
}

func organicBuyRatioComponent(ratio float64) float64 {
	return clamp((ratio-1.2)/(3-1.2)*10, 0, 10)
}

func reasonsFor(pairs ...interface{}) []string {
	var reasons []string
	for i := 0; i+1 < len(pairs); i += 2 {
		label := pairs[i].(string)
		value := pairs[i+1].(float64)
		reasons = append(reasons, label+": "+strconv.FormatFloat(value, 'f', 2, 64))
	}
	return reasons
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
