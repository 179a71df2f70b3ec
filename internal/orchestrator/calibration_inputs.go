package orchestrator

import (
	"github.com/sawpanic/paperdex/internal/calibration"
	"github.com/sawpanic/paperdex/internal/types"
)

const biasHitRateFloor = 0.5

type sourceAcc struct {
	total, hits       int
	grossProfit       float64
	grossLoss         float64
	sumPnL            float64
	tokens            map[string]bool
}

func newSourceAcc() *sourceAcc { return &sourceAcc{tokens: map[string]bool{}} }

func (a *sourceAcc) add(tokenAddress string, pnl float64) {
	a.total++
	a.sumPnL += pnl
	a.tokens[tokenAddress] = true
	if pnl > 0 {
		a.hits++
		a.grossProfit += pnl
	} else {
		a.grossLoss += -pnl
	}
}

func (a *sourceAcc) hitRate() float64 {
	if a.total == 0 {
		return 0
	}
	return float64(a.hits) / float64(a.total)
}

func (a *sourceAcc) avgPnL() float64 {
	if a.total == 0 {
		return 0
	}
	return a.sumPnL / float64(a.total)
}

func (a *sourceAcc) profitFactor() float64 {
	if a.grossLoss == 0 {
		if a.grossProfit > 0 {
			return a.grossProfit
		}
		return 0
	}
	return a.grossProfit / a.grossLoss
}

// buildCalibrationInputs aggregates the last-N (already fetched) outcomes
// with a known 24h pnl into the rolling statistics the calibrator consumes,
// split by layer (core/satellite) and by detector source (momentum/early).
func buildCalibrationInputs(outcomes []types.SignalOutcome) calibration.Inputs {
	core := newSourceAcc()
	sat := newSourceAcc()
	bySource := map[types.SignalSource]*sourceAcc{
		types.SourceMomentum: newSourceAcc(),
		types.SourceEarly:    newSourceAcc(),
	}

	total := 0
	for _, o := range outcomes {
		pnl, ok := o.PnLPcts[types.Window24h]
		if !ok {
			continue
		}
		total++

		switch o.Layer {
		case types.LayerCore:
			core.add(o.TokenAddress, pnl)
		case types.LayerSatellite:
			sat.add(o.TokenAddress, pnl)
		}

		if acc, ok := bySource[o.SignalSource]; ok {
			acc.add(o.TokenAddress, pnl)
		}
	}

	in := calibration.Inputs{
		HitRateCore:           core.hitRate(),
		HitRateSatellite:      sat.hitRate(),
		AvgPnLCore:            core.avgPnL(),
		AvgPnLSatellite:       sat.avgPnL(),
		ProfitFactorCore:      core.profitFactor(),
		ProfitFactorSatellite: sat.profitFactor(),
		ExpectancyCore:        core.avgPnL(),
		ExpectancySatellite:   sat.avgPnL(),
		DetectorPF:            map[types.SignalSource]float64{},
		DetectorHitRate:       map[types.SignalSource]float64{},
		DetectorExposurePct:   map[types.SignalSource]float64{},
		DetectorBias:          map[types.SignalSource]string{},
	}

	momentumTokens := bySource[types.SourceMomentum].tokens
	earlyTokens := bySource[types.SourceEarly].tokens
	overlap := 0
	for t := range momentumTokens {
		if earlyTokens[t] {
			overlap++
		}
	}
	union := len(momentumTokens)
	for t := range earlyTokens {
		if !momentumTokens[t] {
			union++
		}
	}
	if union > 0 {
		in.TokenOverlapPct = float64(overlap) / float64(union) * 100
	}

	for source, acc := range bySource {
		in.DetectorPF[source] = acc.profitFactor()
		in.DetectorHitRate[source] = acc.hitRate()
		if total > 0 {
			in.DetectorExposurePct[source] = float64(acc.total) / float64(total) * 100
		}
		bias := "neutral"
		if acc.profitFactor() > 1.5 && acc.hitRate() >= biasHitRateFloor {
			bias = "recommended"
		}
		in.DetectorBias[source] = bias
	}

	return in
}
