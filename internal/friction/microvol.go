package friction

import (
	"math"

	"github.com/sawpanic/paperdex/internal/xrand"
)

const (
	hoursPerYear  = 8760.0
	msPerHour     = 3_600_000.0
	minAnnualVol  = 0.5
	maxAnnualVol  = 20.0
)

// MicroVolInputs parameterise the GBM micro-volatility model from §4.1.
type MicroVolInputs struct {
	Price         float64
	LatencyMs     int64
	AnnualVol     float64 // if <= 0, estimated from PriceChange1h
	PriceChange1h float64 // fraction, e.g. 0.05 for +5%
	Drift         float64 // mu, defaults to 0
}

// EstimateAnnualVol derives sigma from |priceChange1h| when none is supplied.
func EstimateAnnualVol(priceChange1h float64) float64 {
	sigma := math.Abs(priceChange1h) * math.Sqrt(24*365)
	return clamp(sigma, minAnnualVol, maxAnnualVol)
}

// ApplyMicroVolatility adjusts price for latency-driven GBM noise using a
// Box-Muller standard normal draw, clamped so the result never falls below
// half the input price.
func ApplyMicroVolatility(in MicroVolInputs, src xrand.Source) float64 {
	sigma := in.AnnualVol
	if sigma <= 0 {
		sigma = EstimateAnnualVol(in.PriceChange1h)
	}

	dtYears := float64(in.LatencyMs) / msPerHour / hoursPerYear
	z := xrand.BoxMuller(src)
	noisePct := in.Drift*dtYears + sigma*math.Sqrt(dtYears)*z

	adjusted := in.Price * (1 + noisePct)
	floor := in.Price * 0.5
	if adjusted < floor {
		adjusted = floor
	}
	return adjusted
}
