// Package health implements the per-token liquidity/volume/spread/
// concentration score described in §4.2.
package health

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sawpanic/paperdex/internal/types"
)

// PairLookup is the external pair-by-token contract from §6.
type PairLookup interface {
	BestPair(ctx context.Context, network, tokenAddress string) (*types.Quote, error)
}

// HoldersLookup is the optional top-holder concentration contract; nil
// disables the concentration bonus/penalty.
type HoldersLookup interface {
	Top10Concentration(ctx context.Context, network, tokenAddress string) (float64, error)
}

const (
	FlagLowLiquidity = "low_liquidity"
	FlagLowVolume    = "low_volume"
	FlagZeroPrice    = "zero_price"
	FlagVeryNewPair  = "very_new_pair"
	FlagNoSells24h   = "no_sells_24h"
	FlagNoBuys24h    = "no_buys_24h"
)

// Checker computes TokenHealthSnapshot records.
type Checker struct {
	pairs   PairLookup
	holders HoldersLookup
}

func New(pairs PairLookup, holders HoldersLookup) *Checker {
	return &Checker{pairs: pairs, holders: holders}
}

// Check fetches the best pair for a token and derives its health snapshot.
func (c *Checker) Check(ctx context.Context, network, tokenAddress string, now time.Time) (types.TokenHealthSnapshot, error) {
	quote, err := c.pairs.BestPair(ctx, network, tokenAddress)
	if err != nil {
		return types.TokenHealthSnapshot{}, fmt.Errorf("health: best pair lookup for %s/%s: %w", network, tokenAddress, err)
	}
	if quote == nil {
		return types.TokenHealthSnapshot{}, fmt.Errorf("health: no pair found for %s/%s", network, tokenAddress)
	}

	snapshot := types.TokenHealthSnapshot{
		TokenAddress: tokenAddress,
		Network:      network,
		LiquidityUSD: quote.LiquidityUSD,
		Volume24h:    quote.Volume24h,
		PriceUSD:     quote.PriceUSD,
		PairAgeHours: quote.PairAgeHours,
		CreatedAt:    now,
	}

	volumeAdjust := 1.1
	if quote.Volume24h > 0 {
		volumeAdjust = 0.9
	}
	denom := quote.LiquidityUSD / 1000
	spread := 10.0
	if denom > 0 {
		spread = clamp((1/math.Sqrt(denom))*volumeAdjust, 0.05, 10)
	}
	snapshot.SpreadPct = spread

	if c.holders != nil {
		if conc, err := c.holders.Top10Concentration(ctx, network, tokenAddress); err == nil {
			snapshot.ConcentrationTop10 = conc
		}
	}

	snapshot.RiskFlags = riskFlags(quote)
	snapshot.HealthScore = scoreHealth(quote, snapshot)

	return snapshot, nil
}

func riskFlags(q *types.Quote) []string {
	var flags []string
	if q.LiquidityUSD < 50_000 {
		flags = append(flags, FlagLowLiquidity)
	}
	if q.Volume24h < 10_000 {
		flags = append(flags, FlagLowVolume)
	}
	if q.PriceUSD <= 0 {
		flags = append(flags, FlagZeroPrice)
	}
	if q.PairAgeHours < 24 {
		flags = append(flags, FlagVeryNewPair)
	}
	if q.H24Sells == 0 {
		flags = append(flags, FlagNoSells24h)
	}
	if q.H24Buys == 0 {
		flags = append(flags, FlagNoBuys24h)
	}
	return flags
}

func scoreHealth(q *types.Quote, s types.TokenHealthSnapshot) float64 {
	score := 50.0

	switch {
	case q.LiquidityUSD >= 1_000_000:
		score += 20
	case q.LiquidityUSD >= 250_000:
		score += 12
	case q.LiquidityUSD >= 50_000:
		score += 4
	default:
		score -= 20
	}

	switch {
	case q.Volume24h >= 500_000:
		score += 15
	case q.Volume24h >= 100_000:
		score += 8
	case q.Volume24h >= 10_000:
		score += 2
	default:
		score -= 15
	}

	switch {
	case s.SpreadPct <= 0.5:
		score += 10
	case s.SpreadPct <= 2:
		score += 4
	case s.SpreadPct <= 5:
		score -= 4
	default:
		score -= 12
	}

	if s.ConcentrationTop10 > 0 {
		switch {
		case s.ConcentrationTop10 <= 20:
			score += 8
		case s.ConcentrationTop10 <= 40:
			score += 2
		case s.ConcentrationTop10 <= 60:
			score -= 6
		default:
			score -= 15
		}
	}

	score -= float64(len(s.RiskFlags)) * 5

	switch {
	case q.PairAgeHours >= 720:
		score += 6
	case q.PairAgeHours >= 168:
		score += 3
	case q.PairAgeHours < 24:
		score -= 6
	}

	return clamp(score, 0, 100)
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
