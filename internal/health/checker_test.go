package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sawpanic/paperdex/internal/types"
)

type fakePairs struct {
	quote *types.Quote
	err   error
}

func (f fakePairs) BestPair(ctx context.Context, network, tokenAddress string) (*types.Quote, error) {
	return f.quote, f.err
}

type fakeHolders struct {
	pct float64
}

func (f fakeHolders) Top10Concentration(ctx context.Context, network, tokenAddress string) (float64, error) {
	return f.pct, nil
}

func TestCheck_HealthyToken(t *testing.T) {
	quote := &types.Quote{
		TokenAddress: "0xabc",
		Network:      "base",
		PriceUSD:     1.5,
		LiquidityUSD: 2_000_000,
		Volume24h:    800_000,
		PairAgeHours: 2000,
		H24Buys:      500,
		H24Sells:     400,
	}
	c := New(fakePairs{quote: quote}, fakeHolders{pct: 15})
	snap, err := c.Check(context.Background(), "base", "0xabc", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.RiskFlags) != 0 {
		t.Fatalf("expected no risk flags, got %v", snap.RiskFlags)
	}
	if snap.HealthScore < 80 {
		t.Fatalf("expected a high health score, got %.2f", snap.HealthScore)
	}
}

func TestCheck_RiskyNewPair(t *testing.T) {
	quote := &types.Quote{
		TokenAddress: "0xdef",
		Network:      "solana",
		PriceUSD:     0,
		LiquidityUSD: 5_000,
		Volume24h:    0,
		PairAgeHours: 1,
		H24Buys:      0,
		H24Sells:     0,
	}
	c := New(fakePairs{quote: quote}, nil)
	snap, err := c.Check(context.Background(), "solana", "0xdef", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{FlagLowLiquidity, FlagLowVolume, FlagZeroPrice, FlagVeryNewPair, FlagNoSells24h, FlagNoBuys24h}
	if len(snap.RiskFlags) != len(want) {
		t.Fatalf("expected %d flags, got %v", len(want), snap.RiskFlags)
	}
	if snap.HealthScore != 0 {
		t.Fatalf("expected health score clamped to 0, got %.2f", snap.HealthScore)
	}
}

func TestCheck_NoPairFound(t *testing.T) {
	c := New(fakePairs{quote: nil}, nil)
	if _, err := c.Check(context.Background(), "base", "0xzzz", time.Now()); err == nil {
		t.Fatal("expected an error when no pair is found")
	}
}

func TestCheck_LookupError(t *testing.T) {
	c := New(fakePairs{err: errors.New("boom")}, nil)
	if _, err := c.Check(context.Background(), "base", "0xzzz", time.Now()); err == nil {
		t.Fatal("expected lookup error to propagate")
	}
}

func TestCheck_SpreadWidensWithLowLiquidity(t *testing.T) {
	quote := &types.Quote{LiquidityUSD: 1_000, Volume24h: 50_000, PriceUSD: 1}
	c := New(fakePairs{quote: quote}, nil)
	snap, _ := c.Check(context.Background(), "base", "0x1", time.Now())
	if snap.SpreadPct <= 0.5 {
		t.Fatalf("expected wide spread for thin liquidity, got %.4f", snap.SpreadPct)
	}
}
