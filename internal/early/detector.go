// Package early scores new pools for early-stage discovery per §4.4.
package early

import (
	"math"
	"sort"
	"time"

	"github.com/sawpanic/paperdex/internal/types"
)

type Tier string

const (
	TierHighPotential Tier = "high_potential"
	TierModerate      Tier = "moderate_potential"
	TierSpeculative   Tier = "speculative"
)

type Signal struct {
	TokenAddress string
	Symbol       string
	Network      string
	Score        float64
	Tier         Tier
	BuyPressure  float64
	BuyerSellerRatio float64
	PriceUSD     float64
	LiquidityUSD float64
	AgeHours     float64
}

const (
	minLiquidityUSD  = 5_000.0
	maxLiquidityUSD  = 2_000_000.0
	minVolume24h     = 3_000.0
	minAgeHours       = 1.0
	maxAgeHours       = 72.0
	maxAbsPriceChg24  = 200.0
	minBuyPressure    = 1.3
	minBuyerSellerRatio = 1.2
	neutralBuyerSellerRatio = 1.2

	DefaultMinScore = 50.0
)

type Detector struct {
	MinScore float64
}

func New() *Detector {
	return &Detector{MinScore: DefaultMinScore}
}

func buyPressure(buys, sells int64) float64 {
	if sells == 0 {
		return 5
	}
	return float64(buys) / float64(sells)
}

func buyerSellerRatio(p types.PoolSnapshot) float64 {
	if p.H24.UniqueSellers == 0 {
		if p.H24.UniqueBuyers == 0 {
			return neutralBuyerSellerRatio
		}
		return 5
	}
	return float64(p.H24.UniqueBuyers) / float64(p.H24.UniqueSellers)
}

func passesFilters(p types.PoolSnapshot, now time.Time) bool {
	age := p.AgeHours(now)
	bp := buyPressure(p.H24.Buys, p.H24.Sells)
	ratio := buyerSellerRatio(p)
	switch {
	case p.LiquidityUSD < minLiquidityUSD || p.LiquidityUSD > maxLiquidityUSD:
		return false
	case p.H24.Volume < minVolume24h:
		return false
	case age < minAgeHours || age > maxAgeHours:
		return false
	case math.Abs(p.H24.PriceChangePct) > maxAbsPriceChg24:
		return false
	case bp < minBuyPressure:
		return false
	case ratio < minBuyerSellerRatio:
		return false
	}
	return true
}

func volumeGrowth(p types.PoolSnapshot) float64 {
	rate6h := p.H6.Volume / 6
	rate24h := p.H24.Volume / 24
	if rate24h <= 0 {
		if rate6h > 0 {
			return 20
		}
		return 0
	}
	growth := rate6h / rate24h
	return clamp((growth-1)*10, 0, 20)
}

// organicActivity rewards a healthy spread of unique wallets over raw tx
// count, which is easy to farm with wash trades.
func organicActivity(p types.PoolSnapshot) float64 {
	txs := p.H24.Buys + p.H24.Sells
	wallets := p.H24.UniqueBuyers + p.H24.UniqueSellers
	if txs == 0 {
		return 0
	}
	uniqueness := float64(wallets) / float64(txs)
	return clamp(uniqueness*15, 0, 15)
}

func liquidityGrowthPerHour(p types.PoolSnapshot, now time.Time) float64 {
	age := p.AgeHours(now)
	if age <= 0 {
		return 0
	}
	growthPerHour := p.LiquidityUSD / age
	switch {
	case growthPerHour >= 5_000:
		return 15
	case growthPerHour >= 1_000:
		return 9
	case growthPerHour >= 200:
		return 4
	default:
		return 0
	}
}

func ageSweetSpot(age float64) float64 {
	if age >= 6 && age <= 48 {
		return 10
	}
	if age < 6 {
		return 10 * (age / 6)
	}
	// decay past 48h towards the 72h cutoff
	remaining := maxAgeHours - age
	return clamp(10*(remaining/(maxAgeHours-48)), 0, 10)
}

func score(p types.PoolSnapshot, now time.Time) (total, bp, ratio float64) {
	bp = buyPressure(p.H24.Buys, p.H24.Sells)
	ratio = buyerSellerRatio(p)
	age := p.AgeHours(now)

	bpScore := clamp((bp-1.3)/(4-1.3)*20, 0, 20)
	ratioScore := clamp((ratio-1.2)/(3-1.2)*20, 0, 20)

	total = bpScore + ratioScore + volumeGrowth(p) + organicActivity(p) + liquidityGrowthPerHour(p, now) + ageSweetSpot(age)
	return clamp(total, 0, 100), bp, ratio
}

func tierFor(s float64) Tier {
	switch {
	case s >= 75:
		return TierHighPotential
	case s >= 60:
		return TierModerate
	default:
		return TierSpeculative
	}
}

// Detect scores and filters a batch of new pools, returning signals sorted
// by score descending.
func (d *Detector) Detect(pools []types.PoolSnapshot, now time.Time) []Signal {
	minScore := d.MinScore
	if minScore <= 0 {
		minScore = DefaultMinScore
	}

	var signals []Signal
	for _, p := range pools {
		if !passesFilters(p, now) {
			continue
		}
		total, bp, ratio := score(p, now)
		if total < minScore {
			continue
		}
		signals = append(signals, Signal{
			TokenAddress:     p.TokenAddress,
			Symbol:           p.Symbol,
			Network:          p.Network,
			Score:            total,
			Tier:             tierFor(total),
			BuyPressure:      bp,
			BuyerSellerRatio: ratio,
			PriceUSD:         p.PriceUSD,
			LiquidityUSD:     p.LiquidityUSD,
			AgeHours:         p.AgeHours(now),
		})
	}

	sort.Slice(signals, func(i, j int) bool { return signals[i].Score > signals[j].Score })
	return signals
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
