package friction

import "github.com/sawpanic/paperdex/internal/xrand"

// StressKind is one of the five stress-event categories from §4.1.
type StressKind string

const (
	StressNone       StressKind = "none"
	StressRug        StressKind = "rug"
	StressFlashCrash StressKind = "flash_crash"
	StressExploit    StressKind = "exploit"
	StressWhaleDump  StressKind = "whale_dump"
	StressOracle     StressKind = "oracle"
)

type stressProfile struct {
	baseProb     float64
	severityLow  float64
	severityHigh float64
}

var stressProfiles = map[StressKind]stressProfile{
	StressRug:        {baseProb: 0.003, severityLow: 0.6, severityHigh: 1.0},
	StressFlashCrash: {baseProb: 0.008, severityLow: 0.3, severityHigh: 0.8},
	StressExploit:    {baseProb: 0.001, severityLow: 0.8, severityHigh: 1.0},
	StressWhaleDump:  {baseProb: 0.020, severityLow: 0.2, severityHigh: 0.6},
	StressOracle:     {baseProb: 0.002, severityLow: 0.4, severityHigh: 0.7},
}

// orderedStressKinds fixes draw order so the same RNG stream is consumed
// identically across runs.
var orderedStressKinds = []StressKind{StressRug, StressFlashCrash, StressExploit, StressWhaleDump, StressOracle}

// StressEventInputs parameterise the scaling factors from §4.1: probability
// scales by liquidity band, pair-age band, and layer (satellite x1.8).
type StressEventInputs struct {
	LiquidityUSD float64
	PairAgeHours float64
	Layer        string // "core" | "satellite"
}

// StressEvent is the drawn outcome, or StressNone if nothing fired.
type StressEvent struct {
	Kind            StressKind
	Severity        float64
	LiquidityImpact float64
	PriceImpact     float64
}

func liquidityBand(liquidityUSD float64) float64 {
	switch {
	case liquidityUSD < 25_000:
		return 2.0
	case liquidityUSD < 100_000:
		return 1.4
	case liquidityUSD < 1_000_000:
		return 1.0
	default:
		return 0.6
	}
}

func pairAgeBand(ageHours float64) float64 {
	switch {
	case ageHours < 24:
		return 1.6
	case ageHours < 168:
		return 1.2
	default:
		return 0.8
	}
}

func layerMultiplier(layer string) float64 {
	if layer == "satellite" {
		return 1.8
	}
	return 1.0
}

// impactTable maps kind x severity-decile to deterministic liquidity/price
// impact fractions, per the "deterministic per kind x severity" rule in
// §4.1. Severity is first clamped into [0,1] then quantised to a decile.
func impactTable(kind StressKind, severity float64) (liqImpact, priceImpact float64) {
	decile := int(severity * 10)
	if decile < 0 {
		decile = 0
	}
	if decile > 9 {
		decile = 9
	}
	step := float64(decile+1) / 10

	switch kind {
	case StressRug:
		return 0.5 + 0.4*step, 0.6 + 0.35*step
	case StressFlashCrash:
		return 0.1 + 0.2*step, 0.2 + 0.4*step
	case StressExploit:
		return 0.4 + 0.5*step, 0.5 + 0.45*step
	case StressWhaleDump:
		return 0.05 + 0.15*step, 0.08 + 0.22*step
	case StressOracle:
		return 0.05 + 0.1*step, 0.1 + 0.3*step
	default:
		return 0, 0
	}
}

// DrawStressEvent rolls each kind in a fixed order and returns the first hit
// (kinds are rare and roughly mutually exclusive per cycle by construction).
func DrawStressEvent(in StressEventInputs, src xrand.Source) StressEvent {
	scale := liquidityBand(in.LiquidityUSD) * pairAgeBand(in.PairAgeHours) * layerMultiplier(in.Layer)

	for _, kind := range orderedStressKinds {
		profile := stressProfiles[kind]
		prob := profile.baseProb * scale
		if src.Float64() < prob {
			severity := xrand.Uniform(src, profile.severityLow, profile.severityHigh)
			liqImpact, priceImpact := impactTable(kind, severity)
			return StressEvent{
				Kind:            kind,
				Severity:        severity,
				LiquidityImpact: liqImpact,
				PriceImpact:     priceImpact,
			}
		}
	}
	return StressEvent{Kind: StressNone}
}
