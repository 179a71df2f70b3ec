// Package calibration implements the incremental threshold calibrator from
// §4.13: at the start of every cycle, nudge the per-user detector thresholds
// toward their hit-rate targets using a bounded adaptive step.
package calibration

import (
	"math"
	"time"

	"github.com/sawpanic/paperdex/internal/types"
)

const (
	coreHitRateTarget = 0.55
	satHitRateTarget  = 0.40

	biasRecommended = "recommended"
	dominantPFFloor = 1.5
	exposureDominant = 0.70
)

var (
	momentumThresholdBounds = [2]float64{40, 80}
	coreConfidenceBounds    = [2]float64{60, 90}
	earlyThresholdBounds    = [2]float64{35, 70}
	satConfidenceBounds     = [2]float64{35, 70}
)

// Inputs are the rolling statistics computed from the last up-to-200
// outcomes with a known 24h pnl, handed in by the orchestrator.
type Inputs struct {
	HitRateCore           float64 // fraction 0-1
	HitRateSatellite      float64
	AvgPnLCore            float64
	AvgPnLSatellite       float64
	ProfitFactorCore      float64
	ProfitFactorSatellite float64
	ExpectancyCore        float64
	ExpectancySatellite   float64

	DetectorPF          map[types.SignalSource]float64
	DetectorHitRate     map[types.SignalSource]float64
	DetectorExposurePct map[types.SignalSource]float64 // percent 0-100, keyed by source
	DetectorBias        map[types.SignalSource]string

	TokenOverlapPct float64
}

// stepSize is the adaptive step named in §4.13: a base step widened when the
// actual rate misses its target by a wide margin.
func stepSize(actual, target float64) float64 {
	diff := math.Abs(actual - target)
	switch {
	case diff >= 0.20:
		return 4
	case diff > 0.10:
		return 3
	default:
		return 2
	}
}

// adjust nudges current toward tightening (raising the threshold) when the
// actual rate undershoots target, or loosening when it overshoots, clamped
// to [lo, hi].
func adjust(current, actual, target, step, lo, hi float64) float64 {
	switch {
	case actual < target:
		current += step
	case actual > target:
		current -= step
	}
	return clamp(current, lo, hi)
}

// Calibrate applies one cycle's worth of adaptive steps to prev and returns
// the new persisted state. prev is never mutated.
func Calibrate(prev types.CalibrationState, in Inputs, now time.Time) types.CalibrationState {
	next := prev
	next.DetectorPF = copyFloatMap(in.DetectorPF)
	next.DetectorHitRate = copyFloatMap(in.DetectorHitRate)
	next.DetectorBias = copyStringMap(in.DetectorBias)
	next.HitRateCore = in.HitRateCore
	next.HitRateSatellite = in.HitRateSatellite
	next.ProfitFactorCore = in.ProfitFactorCore
	next.ProfitFactorSatellite = in.ProfitFactorSatellite
	next.MomentumExposurePct = in.DetectorExposurePct[types.SourceMomentum]
	next.EarlyExposurePct = in.DetectorExposurePct[types.SourceEarly]
	next.TokenOverlapPct = in.TokenOverlapPct
	next.LastCalibratedAt = now

	coreStep := stepSize(in.HitRateCore, coreHitRateTarget)
	satStep := stepSize(in.HitRateSatellite, satHitRateTarget)

	next.MomentumScoreThreshold = adjust(prev.MomentumScoreThreshold, in.HitRateCore, coreHitRateTarget, coreStep,
		momentumThresholdBounds[0], momentumThresholdBounds[1])
	next.CoreMinConfidence = adjust(prev.CoreMinConfidence, in.HitRateCore, coreHitRateTarget, coreStep,
		coreConfidenceBounds[0], coreConfidenceBounds[1])
	next.EarlyScoreThreshold = adjust(prev.EarlyScoreThreshold, in.HitRateSatellite, satHitRateTarget, satStep,
		earlyThresholdBounds[0], earlyThresholdBounds[1])
	next.SatelliteMinConfidence = adjust(prev.SatelliteMinConfidence, in.HitRateSatellite, satHitRateTarget, satStep,
		satConfidenceBounds[0], satConfidenceBounds[1])

	rebalanceExposure(&next, in)
	biasBonus(&next, in)

	return next
}

// rebalanceExposure nudges thresholds when one detector dominates exposure
// but the other's profit factor is stronger, per §4.13's exposure rule.
func rebalanceExposure(next *types.CalibrationState, in Inputs) {
	momExposure := in.DetectorExposurePct[types.SourceMomentum]
	earlyExposure := in.DetectorExposurePct[types.SourceEarly]
	momPF := in.DetectorPF[types.SourceMomentum]
	earlyPF := in.DetectorPF[types.SourceEarly]

	switch {
	case momExposure > exposureDominant*100 && earlyPF > momPF:
		next.MomentumScoreThreshold = clamp(next.MomentumScoreThreshold+1, momentumThresholdBounds[0], momentumThresholdBounds[1])
		next.EarlyScoreThreshold = clamp(next.EarlyScoreThreshold-1, earlyThresholdBounds[0], earlyThresholdBounds[1])
	case earlyExposure > exposureDominant*100 && momPF > earlyPF:
		next.EarlyScoreThreshold = clamp(next.EarlyScoreThreshold+1, earlyThresholdBounds[0], earlyThresholdBounds[1])
		next.MomentumScoreThreshold = clamp(next.MomentumScoreThreshold-1, momentumThresholdBounds[0], momentumThresholdBounds[1])
	}
}

// biasBonus gives a dominant, strongly-profitable detector one extra point
// of slack on its own min-confidence floor when its bias is recommended.
func biasBonus(next *types.CalibrationState, in Inputs) {
	if pf, ok := in.DetectorPF[types.SourceMomentum]; ok && pf > dominantPFFloor && in.DetectorBias[types.SourceMomentum] == biasRecommended {
		next.CoreMinConfidence = clamp(next.CoreMinConfidence-1, coreConfidenceBounds[0], coreConfidenceBounds[1])
	}
	if pf, ok := in.DetectorPF[types.SourceEarly]; ok && pf > dominantPFFloor && in.DetectorBias[types.SourceEarly] == biasRecommended {
		next.SatelliteMinConfidence = clamp(next.SatelliteMinConfidence-1, satConfidenceBounds[0], satConfidenceBounds[1])
	}
}

func copyFloatMap(m map[types.SignalSource]float64) map[types.SignalSource]float64 {
	out := make(map[types.SignalSource]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStringMap(m map[types.SignalSource]string) map[types.SignalSource]string {
	out := make(map[types.SignalSource]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
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
