// Package broker implements the simulated-fill pipeline described in §4.8:
// gate check, quote fetch, stress roll, latency, micro-volatility, AMM
// slippage, competition and spread, then a fee-bearing fill.
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sawpanic/paperdex/internal/clock"
	"github.com/sawpanic/paperdex/internal/friction"
	"github.com/sawpanic/paperdex/internal/types"
	"github.com/sawpanic/paperdex/internal/xrand"
)

// QuoteFetcher fetches a live quote for a token immediately before fill.
type QuoteFetcher interface {
	Quote(ctx context.Context, network, tokenAddress string) (*types.Quote, error)
}

// gasRange is the per-network uniform gas-cost draw in native-token-equivalent USD.
type gasRange struct{ lo, hi float64 }

var gasRanges = map[string]gasRange{
	"ethereum": {3, 25},
	"base":     {0.01, 0.15},
	"arbitrum": {0.05, 0.6},
	"polygon":  {0.002, 0.02},
	"bsc":      {0.05, 0.3},
	"solana":   {0.005, 0.05},
}

func gasRangeFor(network string) gasRange {
	if r, ok := gasRanges[network]; ok {
		return r
	}
	return gasRange{0.01, 0.15}
}

const (
	minLatencyMs = 100.0
	maxLatencyMs = 1000.0
	ammFeeRate   = 0.003
)

// Order is one proposed paper order headed into the broker pipeline.
type Order struct {
	UserID       string
	TokenAddress string
	Network      string
	Symbol       string
	Side         types.Side
	Layer        types.Layer
	PositionUSD  float64
	MaxPositionUSD float64
	EntryReason  string
}

// FillResult is the broker's outcome: either a TradeRecord on success, or a
// rejection reason.
type FillResult struct {
	Executed bool
	Reason   string
	Trade    *types.Trade
}

type Broker struct {
	quotes QuoteFetcher
	rng    xrand.Source
	clk    clock.Clock
}

func New(quotes QuoteFetcher, rng xrand.Source, clk clock.Clock) *Broker {
	return &Broker{quotes: quotes, rng: rng, clk: clk}
}

// Fill runs the ten-step pipeline from §4.8 for one order. `gate` has
// already been evaluated by the caller (the orchestrator owns the risk
// state); this function receives its verdict directly to keep the broker
// free of risk-state mutation.
func (b *Broker) Fill(ctx context.Context, order Order, gateAllowed bool, gateMaxPositionUSD float64, gateDenyReason string, ageHours, spreadPct float64) FillResult {
	if !gateAllowed {
		return FillResult{Executed: false, Reason: gateDenyReason}
	}

	positionUSD := order.PositionUSD
	if positionUSD > gateMaxPositionUSD {
		positionUSD = gateMaxPositionUSD
	}
	if positionUSD <= 0 {
		return FillResult{Executed: false, Reason: "position size clamped to zero"}
	}

	quote, err := b.quotes.Quote(ctx, order.Network, order.TokenAddress)
	if err != nil {
		return FillResult{Executed: false, Reason: fmt.Sprintf("quote fetch failed: %v", err)}
	}
	if quote == nil || quote.PriceUSD <= 0 {
		return FillResult{Executed: false, Reason: "non-positive quote price"}
	}

	liquidity := quote.LiquidityUSD
	price := quote.PriceUSD

	stress := friction.DrawStressEvent(friction.StressEventInputs{
		LiquidityUSD: liquidity,
		PairAgeHours: ageHours,
		Layer:        string(order.Layer),
	}, b.rng)
	if stress.Kind != friction.StressNone {
		liquidity *= 1 - stress.LiquidityImpact
		if order.Side == types.SideBuy {
			price *= 1 + stress.PriceImpact
		} else {
			price *= 1 - stress.PriceImpact
		}
	}

	latencyMs := int64(xrand.Uniform(b.rng, minLatencyMs, maxLatencyMs))
	noisedPrice := friction.ApplyMicroVolatility(friction.MicroVolInputs{
		Price:         price,
		LatencyMs:     latencyMs,
		AnnualVol:     friction.EstimateAnnualVol(quote.PriceChange1h),
		PriceChange1h: quote.PriceChange1h,
	}, b.rng)

	slip := friction.ComputeSlippage(friction.SlippageInputs{
		SizeUSD:          positionUSD,
		PoolLiquidityUSD: liquidity,
		CurrentPrice:     noisedPrice,
		Side:             order.Side,
		FeeRate:          ammFeeRate,
	}, b.rng)

	competition := friction.ComputeCompetition(friction.CompetitionInputs{
		Network:          order.Network,
		PositionUSD:      positionUSD,
		PoolLiquidityUSD: liquidity,
		Volume24h:        quote.Volume24h,
	}, b.rng)

	totalSlippage := clamp(slip.SlippagePct+competition.SlippagePct, friction.MinSlippagePct, friction.MaxSlippagePct)
	spreadHalf := spreadPct / 2 / 100 // spreadPct is a percent (e.g. 1.5 == 1.5%)
	entryPrice := fillPrice(noisedPrice, totalSlippage, spreadHalf, order.Side)

	quantity := positionUSD / entryPrice

	gr := gasRangeFor(order.Network)
	gas := xrand.Uniform(b.rng, gr.lo, gr.hi)

	now := b.clk.Now()
	trade := &types.Trade{
		ID:                uuid.NewString(),
		UserID:            order.UserID,
		Symbol:            order.Symbol,
		TokenAddress:      order.TokenAddress,
		Network:           order.Network,
		Side:              order.Side,
		Status:            types.TradeOpen,
		Layer:             order.Layer,
		Quantity:          quantity,
		EntryPrice:        entryPrice,
		FeesAbs:           gas,
		SlippageSimulated: totalSlippage,
		GasSimulated:      gas,
		LatencyMs:         latencyMs,
		EntryReason:       order.EntryReason,
		EnteredAt:         now,
		Metadata: map[string]interface{}{
			"stress_kind":       string(stress.Kind),
			"stress_severity":   stress.Severity,
			"amm_slippage_pct":  slip.SlippagePct,
			"competition_pct":   competition.SlippagePct,
			"frontrun":          competition.Frontrun,
			"backrun":           competition.Backrun,
			"noised_price":      noisedPrice,
			"raw_quote_price":   quote.PriceUSD,
		},
	}

	return FillResult{Executed: true, Trade: trade}
}

func fillPrice(noisedPrice, totalSlippage, spreadHalf float64, side types.Side) float64 {
	adj := totalSlippage + spreadHalf
	if side == types.SideBuy {
		return noisedPrice * (1 + adj)
	}
	return noisedPrice * (1 - adj)
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
