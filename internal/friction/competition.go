package friction

import "github.com/sawpanic/paperdex/internal/xrand"

// baseMEVRisk is the per-network base MEV risk table from §4.1, ethereum
// being the most contested venue down to solana the least.
var baseMEVRisk = map[string]float64{
	"ethereum": 0.35,
	"base":     0.20,
	"arbitrum": 0.15,
	"polygon":  0.12,
	"bsc":      0.10,
	"solana":   0.05,
}

// BaseMEVRisk looks up the per-network base risk, defaulting to the
// mid-table "base" figure for unrecognised networks.
func BaseMEVRisk(network string) float64 {
	if r, ok := baseMEVRisk[network]; ok {
		return r
	}
	return baseMEVRisk["base"]
}

// CompetitionInputs parameterise the MEV/competition model from §4.1.
type CompetitionInputs struct {
	Network        string
	PositionUSD    float64
	PoolLiquidityUSD float64
	Volume24h      float64
}

// CompetitionResult is the additional slippage contributed by frontrun and
// backrun activity, plus whether each was drawn this fill.
type CompetitionResult struct {
	SlippagePct  float64
	Frontrun     bool
	Backrun      bool
}

// ComputeCompetition draws frontrun/backrun events per §4.1 and returns the
// additional slippage they contribute.
func ComputeCompetition(in CompetitionInputs, src xrand.Source) CompetitionResult {
	baseMev := BaseMEVRisk(in.Network)

	sizeVisibility := 1.0
	if in.PoolLiquidityUSD > 0 {
		sizeVisibility = in.PositionUSD / (in.PoolLiquidityUSD * 0.01)
	}
	sizeVisibility = clamp(sizeVisibility, 0, 1)

	botDensity := clamp(in.Volume24h/1_000_000, 0, 1) * 0.3

	frontrunProb := baseMev * sizeVisibility
	backrunProb := baseMev * botDensity * 0.5

	var result CompetitionResult
	if src.Float64() < frontrunProb {
		result.Frontrun = true
		result.SlippagePct += xrand.Uniform(src, 0.002, 0.010)
	}
	if src.Float64() < backrunProb {
		result.Backrun = true
		result.SlippagePct += xrand.Uniform(src, 0.001, 0.004)
	}
	return result
}
