package smartmoney

import (
	"testing"
	"time"
)

func TestSimulate_DeterministicAcrossRuns(t *testing.T) {
	c := Candidate{TokenAddress: "0xabc", Network: "base", Score: 82, IsEarly: false}
	day := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	a := Simulate(c, day)
	b := Simulate(c, day)

	if len(a) != len(b) {
		t.Fatalf("expected identical movement counts, got %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("movement %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestSimulate_DifferentDayChangesDraw(t *testing.T) {
	c := Candidate{TokenAddress: "0xabc", Network: "base", Score: 82, IsEarly: false}
	day1 := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	r1 := deterministicRand("wallet-whale-1", c.TokenAddress, day1)
	r2 := deterministicRand("wallet-whale-1", c.TokenAddress, day2)
	if r1 == r2 {
		t.Fatalf("expected different days to produce different draws, both were %.6f", r1)
	}
}

func TestSimulate_SkipsWalletsOutsidePreferredNetworks(t *testing.T) {
	c := Candidate{TokenAddress: "0xabc", Network: "nonexistent-network", Score: 90, IsEarly: true}
	day := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	if movements := Simulate(c, day); len(movements) != 0 {
		t.Fatalf("expected no movements for an unsupported network, got %+v", movements)
	}
}

func TestDeterministicRand_WithinUnitInterval(t *testing.T) {
	day := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	for _, wallet := range []string{"wallet-alpha-1", "wallet-whale-1", "wallet-sniper-2"} {
		r := deterministicRand(wallet, "0xsomeverylongtokenaddress", day)
		if r < 0 || r >= 1 {
			t.Fatalf("draw %.6f for %s out of [0,1)", r, wallet)
		}
	}
}

func TestScoreFor_AlwaysMeetsConfluenceFloor(t *testing.T) {
	for _, wallet := range Roster() {
		if score := ScoreFor(wallet.WalletID); score.Score < minSimulatedScore {
			t.Fatalf("wallet %s score %.2f below the confluence floor %.2f", wallet.WalletID, score.Score, minSimulatedScore)
		}
	}
}

func TestStyleMatch_EarlySniperFavoursEarlyCandidates(t *testing.T) {
	early := styleMatch(StyleEarlySniper, true, 60)
	trending := styleMatch(StyleEarlySniper, false, 60)
	if early <= trending {
		t.Fatalf("expected early-sniper match to favour early candidates: early=%.2f trending=%.2f", early, trending)
	}
}
