package regime

import (
	"testing"
	"time"

	"github.com/sawpanic/paperdex/internal/types"
)

func TestDetect_RiskOffScenario(t *testing.T) {
	d := New()
	result := d.Detect(time.Now(), Inputs{SentimentScore: 18, BTCDominance: 60})
	if result.Regime != types.RegimeRiskOff {
		t.Fatalf("expected risk_off, got %s (votes=%v)", result.Regime, result.Votes)
	}
}

func TestDetect_RiskOnScenario(t *testing.T) {
	d := New()
	result := d.Detect(time.Now(), Inputs{SentimentScore: 82, BTCDominance: 40})
	if result.Regime != types.RegimeRiskOn {
		t.Fatalf("expected risk_on, got %s (votes=%v)", result.Regime, result.Votes)
	}
}

func TestDetect_NeutralScenario(t *testing.T) {
	d := New()
	result := d.Detect(time.Now(), Inputs{SentimentScore: 50, BTCDominance: 50})
	if result.Regime != types.RegimeNeutral {
		t.Fatalf("expected neutral, got %s (votes=%v)", result.Regime, result.Votes)
	}
}

func TestDetect_TracksHistoryOnChange(t *testing.T) {
	d := New()
	d.Detect(time.Now(), Inputs{SentimentScore: 18, BTCDominance: 60})
	d.Detect(time.Now(), Inputs{SentimentScore: 82, BTCDominance: 40})
	if len(d.History()) != 2 {
		t.Fatalf("expected 2 recorded transitions, got %d", len(d.History()))
	}
}
