package calibration

import (
	"testing"
	"time"

	"github.com/sawpanic/paperdex/internal/types"
)

func TestCalibrate_TightensOnLowHitRate(t *testing.T) {
	prev := types.DefaultCalibrationState("u1")
	in := Inputs{HitRateCore: 0.30, HitRateSatellite: satHitRateTarget}

	next := Calibrate(prev, in, time.Now())

	if next.MomentumScoreThreshold != 59 {
		t.Fatalf("expected momentum threshold to tighten to 59, got %.1f", next.MomentumScoreThreshold)
	}
	if next.CoreMinConfidence != 79 {
		t.Fatalf("expected core min confidence to tighten to 79, got %.1f", next.CoreMinConfidence)
	}
}

func TestCalibrate_LoosensOnHighHitRate(t *testing.T) {
	prev := types.DefaultCalibrationState("u1")
	in := Inputs{HitRateCore: 0.80, HitRateSatellite: satHitRateTarget}

	next := Calibrate(prev, in, time.Now())

	if next.MomentumScoreThreshold != 51 {
		t.Fatalf("expected momentum threshold to loosen to 51, got %.1f", next.MomentumScoreThreshold)
	}
	if next.CoreMinConfidence != 71 {
		t.Fatalf("expected core min confidence to loosen to 71, got %.1f", next.CoreMinConfidence)
	}
}

// TestCalibrate_StepSizeScenario pins the worked example: hit_rate=0.35
// against a 0.55 target is exactly a 0.20 gap, which must land in the
// widest step tier (4), tightening momThreshold 55->59 and coreConf 75->79.
func TestCalibrate_StepSizeScenario(t *testing.T) {
	prev := types.DefaultCalibrationState("u1")
	in := Inputs{HitRateCore: 0.35, HitRateSatellite: satHitRateTarget}

	next := Calibrate(prev, in, time.Now())

	if next.MomentumScoreThreshold != 59 {
		t.Fatalf("expected momentum threshold 59, got %.1f", next.MomentumScoreThreshold)
	}
	if next.CoreMinConfidence != 79 {
		t.Fatalf("expected core min confidence 79, got %.1f", next.CoreMinConfidence)
	}
}

func TestCalibrate_ClampsAtUpperBound(t *testing.T) {
	prev := types.DefaultCalibrationState("u1")
	prev.MomentumScoreThreshold = 78
	in := Inputs{HitRateCore: 0.10, HitRateSatellite: satHitRateTarget}

	next := Calibrate(prev, in, time.Now())

	if next.MomentumScoreThreshold != momentumThresholdBounds[1] {
		t.Fatalf("expected clamp to upper bound %.0f, got %.1f", momentumThresholdBounds[1], next.MomentumScoreThreshold)
	}
}

func TestCalibrate_ExposureRebalanceFavoursStrongerDetector(t *testing.T) {
	prev := types.DefaultCalibrationState("u1")
	in := Inputs{
		HitRateCore:      coreHitRateTarget,
		HitRateSatellite: satHitRateTarget,
		DetectorExposurePct: map[types.SignalSource]float64{
			types.SourceMomentum: 80,
			types.SourceEarly:    20,
		},
		DetectorPF: map[types.SignalSource]float64{
			types.SourceMomentum: 1.0,
			types.SourceEarly:    2.0,
		},
	}

	next := Calibrate(prev, in, time.Now())

	if next.MomentumScoreThreshold != prev.MomentumScoreThreshold+1 {
		t.Fatalf("expected momentum threshold +1, got %.1f vs prev %.1f", next.MomentumScoreThreshold, prev.MomentumScoreThreshold)
	}
	if next.EarlyScoreThreshold != prev.EarlyScoreThreshold-1 {
		t.Fatalf("expected early threshold -1, got %.1f vs prev %.1f", next.EarlyScoreThreshold, prev.EarlyScoreThreshold)
	}
}

func TestCalibrate_BiasBonusLowersMinConfidence(t *testing.T) {
	prev := types.DefaultCalibrationState("u1")
	in := Inputs{
		HitRateCore:      coreHitRateTarget,
		HitRateSatellite: satHitRateTarget,
		DetectorPF: map[types.SignalSource]float64{
			types.SourceMomentum: 2.0,
		},
		DetectorBias: map[types.SignalSource]string{
			types.SourceMomentum: biasRecommended,
		},
	}

	next := Calibrate(prev, in, time.Now())

	if next.CoreMinConfidence != prev.CoreMinConfidence-1 {
		t.Fatalf("expected bias bonus to lower core min confidence by 1, got %.1f vs prev %.1f", next.CoreMinConfidence, prev.CoreMinConfidence)
	}
}

func TestCalibrate_NoBiasBonusWithoutRecommendedBias(t *testing.T) {
	prev := types.DefaultCalibrationState("u1")
	in := Inputs{
		HitRateCore:      coreHitRateTarget,
		HitRateSatellite: satHitRateTarget,
		DetectorPF: map[types.SignalSource]float64{
			types.SourceMomentum: 2.0,
		},
		DetectorBias: map[types.SignalSource]string{
			types.SourceMomentum: "neutral",
		},
	}

	next := Calibrate(prev, in, time.Now())

	if next.CoreMinConfidence != prev.CoreMinConfidence {
		t.Fatalf("did not expect a bias bonus without a recommended bias, got %.1f vs prev %.1f", next.CoreMinConfidence, prev.CoreMinConfidence)
	}
}

func TestCalibrate_NeverChangesMoreThanStepPlusTwo(t *testing.T) {
	prev := types.DefaultCalibrationState("u1")
	in := Inputs{
		HitRateCore:      0.05, // diff 0.50 -> step 4
		HitRateSatellite: satHitRateTarget,
		DetectorExposurePct: map[types.SignalSource]float64{
			types.SourceMomentum: 90,
			types.SourceEarly:    10,
		},
		DetectorPF: map[types.SignalSource]float64{
			types.SourceMomentum: 2.0,
			types.SourceEarly:    3.0,
		},
		DetectorBias: map[types.SignalSource]string{
			types.SourceMomentum: biasRecommended,
		},
	}

	next := Calibrate(prev, in, time.Now())

	delta := next.CoreMinConfidence - prev.CoreMinConfidence
	if delta < 0 {
		delta = -delta
	}
	maxStep := stepSize(in.HitRateCore, coreHitRateTarget) + 2
	if delta > maxStep {
		t.Fatalf("core min confidence moved by %.1f, exceeding step+2 bound %.1f", delta, maxStep)
	}
}

func TestCalibrate_PersistsComputedStats(t *testing.T) {
	prev := types.DefaultCalibrationState("u1")
	now := time.Now()
	in := Inputs{
		HitRateCore:           0.55,
		HitRateSatellite:      0.40,
		ProfitFactorCore:      1.8,
		ProfitFactorSatellite: 1.2,
		TokenOverlapPct:       12.5,
	}

	next := Calibrate(prev, in, now)

	if next.HitRateCore != 0.55 || next.ProfitFactorCore != 1.8 || next.TokenOverlapPct != 12.5 {
		t.Fatalf("expected computed stats to be persisted, got %+v", next)
	}
	if !next.LastCalibratedAt.Equal(now) {
		t.Fatal("expected last_calibrated_at to be updated")
	}
}
