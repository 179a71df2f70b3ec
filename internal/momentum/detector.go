// Package momentum scores trending pools for continuation per §4.3.
package momentum

import (
	"math"
	"sort"
	"time"

	"github.com/sawpanic/paperdex/internal/types"
)

// Tier buckets a scored signal by strength.
type Tier string

const (
	TierStrong   Tier = "strong"
	TierModerate Tier = "moderate"
	TierWeak     Tier = "weak"
)

// Signal is one scored momentum candidate.
type Signal struct {
	TokenAddress  string
	Symbol        string
	Network       string
	Score         float64
	Tier          Tier
	BuyPressure   float64
	VolumeAccel   float64
	PriceUSD      float64
	LiquidityUSD  float64
	AgeHours      float64
}

const (
	minLiquidityUSD  = 50_000.0
	maxLiquidityUSD  = 50_000_000.0
	minVolume24h     = 10_000.0
	minAgeHours      = 48.0
	maxAbsPriceChg24 = 80.0
	minBuyPressure   = 1.2

	DefaultMinScore = 55.0
)

// Detector scores PoolSnapshot rows from the trending-pool feed.
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

// volumeAccel is (v1h/(v6h/6)) / (v6h/(v24h/24)) with degenerate fallbacks
// when a denominator window has no recorded volume.
func volumeAccel(p types.PoolSnapshot) float64 {
	v1h, v6h, v24h := p.H1.Volume, p.H6.Volume, p.H24.Volume

	rate6h := v6h / 6
	shortRatio := 1.0
	if rate6h > 0 {
		shortRatio = v1h / rate6h
	} else if v1h > 0 {
		shortRatio = 2
	}

	rate24h := v24h / 24
	longRatio := 1.0
	if rate24h > 0 {
		longRatio = v6h / rate24h
	} else if v6h > 0 {
		longRatio = 2
	}

	if longRatio == 0 {
		return shortRatio
	}
	return shortRatio / longRatio
}

func passesFilters(p types.PoolSnapshot, now time.Time) bool {
	age := p.AgeHours(now)
	bp := buyPressure(p.H24.Buys, p.H24.Sells)
	switch {
	case p.LiquidityUSD < minLiquidityUSD || p.LiquidityUSD > maxLiquidityUSD:
		return false
	case p.H24.Volume < minVolume24h:
		return false
	case age < minAgeHours:
		return false
	case math.Abs(p.H24.PriceChangePct) > maxAbsPriceChg24:
		return false
	case bp < minBuyPressure:
		return false
	}
	return true
}

// priceShape rewards gradual, compounding 1h+6h gains over a single spike.
func priceShape(p types.PoolSnapshot) float64 {
	h1 := p.H1.PriceChangePct
	h6 := p.H6.PriceChangePct
	if h1 <= 0 || h6 <= 0 {
		return 0
	}
	gradual := 20.0
	if h1 > h6 && h6 > 0 {
		ratio := h1 / h6
		if ratio > 3 {
			gradual *= 3 / ratio
		}
	}
	magnitude := math.Min(1, h6/40)
	return clamp(gradual*magnitude, 0, 20)
}

func liqVolRatio(p types.PoolSnapshot) float64 {
	if p.H24.Volume <= 0 {
		return 0
	}
	ratio := p.LiquidityUSD / p.H24.Volume
	// reward ratios near 1-3 (healthy float vs turnover), penalise extremes
	switch {
	case ratio >= 0.5 && ratio <= 3:
		return 15
	case ratio >= 0.2 && ratio <= 6:
		return 9
	default:
		return 3
	}
}

func txCountScore(p types.PoolSnapshot) float64 {
	txs := p.H24.Buys + p.H24.Sells
	switch {
	case txs >= 2000:
		return 10
	case txs >= 500:
		return 6
	case txs >= 100:
		return 3
	default:
		return 0
	}
}

func maturityScore(age float64) float64 {
	switch {
	case age >= 24*30:
		return 10
	case age >= 24*14:
		return 7
	case age >= 24*7:
		return 4
	default:
		return 2
	}
}

func score(p types.PoolSnapshot, now time.Time) (total float64, bp float64, va float64) {
	bp = buyPressure(p.H24.Buys, p.H24.Sells)
	va = volumeAccel(p)
	age := p.AgeHours(now)

	bpScore := clamp((bp-1)/(3-1)*25, 0, 25)
	// va rarely exceeds ~0.5 under the literal §4.3 ratio (the h24 term is an
	// unnormalised 6h-volume-vs-hourly-average comparison), so the score
	// scale is centred on that empirical range rather than on va=1.
	vaScore := clamp(va*40, 0, 20)
	total = bpScore + vaScore + priceShape(p) + liqVolRatio(p) + txCountScore(p) + maturityScore(age)
	return clamp(total, 0, 100), bp, va
}

func tierFor(s float64) Tier {
	switch {
	case s >= 80:
		return TierStrong
	case s >= 65:
		return TierModerate
	default:
		return TierWeak
	}
}

// Detect scores and filters a batch of trending pools, returning signals
// sorted by score descending.
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
		total, bp, va := score(p, now)
		if total < minScore {
			continue
		}
		signals = append(signals, Signal{
			TokenAddress: p.TokenAddress,
			Symbol:       p.Symbol,
			Network:      p.Network,
			Score:        total,
			Tier:         tierFor(total),
			BuyPressure:  bp,
			VolumeAccel:  va,
			PriceUSD:     p.PriceUSD,
			LiquidityUSD: p.LiquidityUSD,
			AgeHours:     p.AgeHours(now),
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
