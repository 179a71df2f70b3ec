// Package regime classifies the overall market state from sentiment and
// BTC dominance. The detector's shape — majority voting across independent
// signals, re-run on every Detect call (nothing is cached), with a tracked
// change history — follows the teacher's 4-hour regime detector; the inputs and the three
// output classes are this system's own (risk_on / risk_off / neutral from
// fear-greed sentiment and dominance, rather than realised-vol/breadth).
package regime

import (
	"time"

	"github.com/sawpanic/paperdex/internal/types"
)

// Inputs are the two market-wide signals the detector votes on.
type Inputs struct {
	SentimentScore float64 // fear_greed 0-100
	BTCDominance   float64 // percent, e.g. 52.3
}

// Result is one regime classification.
type Result struct {
	Regime     types.Regime
	Confidence float64
	Votes      map[string]types.Regime
}

// Detector classifies market regime by majority vote across sentiment and
// dominance signals. It is stateless aside from a small change history used
// for stability reporting; callers own persistence of RegimeSnapshot rows.
type Detector struct {
	history []change
}

type change struct {
	At   time.Time
	From types.Regime
	To   types.Regime
}

func New() *Detector {
	return &Detector{}
}

// thresholds mirror a conservative fear-greed interpretation: below 25 is
// risk-off capitulation, above 70 is risk-on greed, the rest is neutral.
const (
	sentimentRiskOffMax = 25.0
	sentimentRiskOnMin  = 70.0
	// btc dominance rising while sentiment is weak is itself a risk-off tell
	// (capital rotating into BTC out of alts); falling dominance with strong
	// sentiment is the clearest risk-on alt-season signal.
	dominanceHighRiskOff = 58.0
	dominanceLowRiskOn   = 45.0
)

func (d *Detector) sentimentVote(score float64) types.Regime {
	switch {
	case score <= sentimentRiskOffMax:
		return types.RegimeRiskOff
	case score >= sentimentRiskOnMin:
		return types.RegimeRiskOn
	default:
		return types.RegimeNeutral
	}
}

func (d *Detector) dominanceVote(dominance float64) types.Regime {
	switch {
	case dominance >= dominanceHighRiskOff:
		return types.RegimeRiskOff
	case dominance <= dominanceLowRiskOn:
		return types.RegimeRiskOn
	default:
		return types.RegimeNeutral
	}
}

// combinedVote casts a third vote from the interaction of the two signals,
// since a plain 2-vote majority would tie whenever the individual votes
// disagree. This mirrors the teacher's pattern of deriving an extra signal
// (breadth thrust) purely to break ties cleanly.
func (d *Detector) combinedVote(sentiment, dominance float64) types.Regime {
	composite := sentiment - (dominance - 50)
	switch {
	case composite >= 35:
		return types.RegimeRiskOn
	case composite <= -5:
		return types.RegimeRiskOff
	default:
		return types.RegimeNeutral
	}
}

// Detect runs the majority vote and returns the winning regime plus the
// fraction of votes it carried.
func (d *Detector) Detect(at time.Time, in Inputs) Result {
	votes := map[string]types.Regime{
		"sentiment": d.sentimentVote(in.SentimentScore),
		"dominance": d.dominanceVote(in.BTCDominance),
		"composite": d.combinedVote(in.SentimentScore, in.BTCDominance),
	}

	counts := map[types.Regime]int{}
	for _, v := range votes {
		counts[v]++
	}

	winner := types.RegimeNeutral
	best := 0
	// iterate in a fixed order so ties resolve deterministically
	for _, candidate := range []types.Regime{types.RegimeRiskOn, types.RegimeRiskOff, types.RegimeNeutral} {
		if counts[candidate] > best {
			best = counts[candidate]
			winner = candidate
		}
	}

	if len(d.history) == 0 || d.history[len(d.history)-1].To != winner {
		prev := types.RegimeNeutral
		if len(d.history) > 0 {
			prev = d.history[len(d.history)-1].To
		}
		d.history = append(d.history, change{At: at, From: prev, To: winner})
	}

	return Result{
		Regime:     winner,
		Confidence: float64(best) / float64(len(votes)),
		Votes:      votes,
	}
}

// History returns the recorded regime transitions, most recent last.
func (d *Detector) History() []change {
	return d.history
}
