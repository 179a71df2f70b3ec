package outcome

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sawpanic/paperdex/internal/types"
)

type fakePrices struct {
	price float64
	err   error
	calls int
}

func (f *fakePrices) Price(ctx context.Context, network, tokenAddress string) (float64, error) {
	f.calls++
	return f.price, f.err
}

func TestEmit_BuildsRecordWithSignalKey(t *testing.T) {
	now := time.Now()
	o := Emit(EmitInput{
		UserID:       "u1",
		TokenAddress: "0xabc",
		Network:      "base",
		Layer:        types.LayerCore,
		Confidence:   82,
		Regime:       types.RegimeRiskOn,
		EntryPrice:   1.5,
		WasExecuted:  true,
		Source:       types.SourceMomentum,
	}, "id-1", now)

	if o.ID != "id-1" || o.TokenAddress != "0xabc" || o.EntryPrice != 1.5 {
		t.Fatalf("unexpected record: %+v", o)
	}
	if o.SignalKey == "" {
		t.Fatal("expected non-empty signal key")
	}
}

func TestRevisit_NoOpBeforeAnyWindowElapses(t *testing.T) {
	now := time.Now()
	o := types.SignalOutcome{EmittedAt: now, EntryPrice: 100}
	fetcher := &fakePrices{price: 110}

	if err := Revisit(context.Background(), &o, fetcher, now.Add(30*time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.calls != 0 {
		t.Fatalf("expected no price fetch before the 1h window elapses, got %d calls", fetcher.calls)
	}
}

func TestRevisit_FillsAllElapsedWindowsInOneFetch(t *testing.T) {
	now := time.Now()
	o := types.SignalOutcome{EmittedAt: now, EntryPrice: 100}
	fetcher := &fakePrices{price: 120}

	// 30 hours later: 1h, 6h and 24h windows are elapsed; 48h and 7d are not.
	if err := Revisit(context.Background(), &o, fetcher, now.Add(30*time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected exactly one price fetch, got %d", fetcher.calls)
	}
	for _, w := range []types.OutcomeWindow{types.Window1h, types.Window6h, types.Window24h} {
		if _, ok := o.Prices[w]; !ok {
			t.Fatalf("expected window %s to be recorded", w)
		}
	}
	if _, ok := o.Prices[types.Window48h]; ok {
		t.Fatal("did not expect the 48h window to be recorded yet")
	}
	if o.FullyTracked {
		t.Fatal("did not expect fully_tracked with only 3 of 5 windows filled")
	}
}

func TestRevisit_IsIdempotentOnceFullyTracked(t *testing.T) {
	now := time.Now()
	o := types.SignalOutcome{EmittedAt: now, EntryPrice: 100}
	fetcher := &fakePrices{price: 120}

	far := now.Add(8 * 24 * time.Hour)
	if err := Revisit(context.Background(), &o, fetcher, far); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !o.FullyTracked {
		t.Fatal("expected fully_tracked after all 5 windows elapsed")
	}

	calls := fetcher.calls
	if err := Revisit(context.Background(), &o, fetcher, far.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.calls != calls {
		t.Fatal("expected no further fetch once fully tracked")
	}
}

func TestRevisit_PropagatesFetchError(t *testing.T) {
	now := time.Now()
	o := types.SignalOutcome{EmittedAt: now, EntryPrice: 100}
	fetcher := &fakePrices{err: errors.New("feed down")}

	err := Revisit(context.Background(), &o, fetcher, now.Add(2*time.Hour))
	if err == nil {
		t.Fatal("expected the fetch error to propagate")
	}
	if len(o.Prices) != 0 {
		t.Fatal("did not expect any window recorded on fetch failure")
	}
}

func TestNeedsRevisit(t *testing.T) {
	now := time.Now()
	o := types.SignalOutcome{EmittedAt: now, EntryPrice: 100}
	if NeedsRevisit(o, now.Add(30*time.Minute)) {
		t.Fatal("did not expect revisit due before the 1h window")
	}
	if !NeedsRevisit(o, now.Add(2*time.Hour)) {
		t.Fatal("expected revisit due after the 1h window elapses")
	}
}

func TestSummarize_HitRateAndAvgPnLPerWindow(t *testing.T) {
	now := time.Now()
	o1 := types.SignalOutcome{EmittedAt: now, Layer: types.LayerCore, RegimeAtEmit: types.RegimeRiskOn,
		PnLPcts: map[types.OutcomeWindow]float64{types.Window24h: 10}}
	o2 := types.SignalOutcome{EmittedAt: now, Layer: types.LayerCore, RegimeAtEmit: types.RegimeRiskOn,
		PnLPcts: map[types.OutcomeWindow]float64{types.Window24h: -5}}
	o3 := types.SignalOutcome{EmittedAt: now, Layer: types.LayerSatellite, RegimeAtEmit: types.RegimeRiskOff,
		PnLPcts: map[types.OutcomeWindow]float64{types.Window24h: 20}}

	s := Summarize([]types.SignalOutcome{o1, o2, o3}, 0)

	if s.HitRateByWindow[types.Window24h] != 2.0/3.0 {
		t.Fatalf("expected 2/3 hit rate at 24h, got %.4f", s.HitRateByWindow[types.Window24h])
	}
	core := s.ByLayer[types.LayerCore]
	if core.Count != 2 || core.HitRate != 0.5 {
		t.Fatalf("unexpected core breakdown: %+v", core)
	}
	riskOff := s.ByRegime[types.RegimeRiskOff]
	if riskOff.Count != 1 || riskOff.HitRate != 1 {
		t.Fatalf("unexpected risk_off breakdown: %+v", riskOff)
	}
}

func TestSummarize_RecentOrdersByEmittedAtDescending(t *testing.T) {
	now := time.Now()
	o1 := types.SignalOutcome{ID: "old", EmittedAt: now.Add(-time.Hour)}
	o2 := types.SignalOutcome{ID: "new", EmittedAt: now}

	s := Summarize([]types.SignalOutcome{o1, o2}, 1)
	if len(s.Recent) != 1 || s.Recent[0].ID != "new" {
		t.Fatalf("expected the single most recent record first, got %+v", s.Recent)
	}
}
