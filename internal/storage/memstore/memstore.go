// Package memstore is an in-memory implementation of every storage.* repo,
// used by orchestrator and component tests in place of Postgres. Each repo
// facet is a distinct named type sharing one mutex-guarded map set, since a
// single type cannot expose two different Get/Upsert overloads.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sawpanic/paperdex/internal/storage"
	"github.com/sawpanic/paperdex/internal/types"
)

// Store backs every repository facet with a single mutex-guarded map set.
// Safe for concurrent use.
type Store struct {
	mu sync.Mutex

	risk        map[string]types.RiskState
	calibration map[string]types.CalibrationState
	trades      map[string]types.Trade
	outcomes    map[string]types.SignalOutcome
	regimes     []types.RegimeSnapshot
	health      map[string]types.TokenHealthSnapshot
	wallets     []types.TrackedWallet
	walletScore map[string]types.WalletScore
	movements   []types.WalletMovement
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		risk:        map[string]types.RiskState{},
		calibration: map[string]types.CalibrationState{},
		trades:      map[string]types.Trade{},
		outcomes:    map[string]types.SignalOutcome{},
		health:      map[string]types.TokenHealthSnapshot{},
		walletScore: map[string]types.WalletScore{},
	}
}

// SeedWallets lets tests and bootstrap code preload the tracked roster.
func (s *Store) SeedWallets(wallets []types.TrackedWallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets = append([]types.TrackedWallet(nil), wallets...)
}

// Repository returns a storage.Repository with every facet backed by this
// Store.
func (s *Store) Repository() storage.Repository {
	return storage.Repository{
		Risk:        RiskRepo{s},
		Calibration: CalibrationRepo{s},
		Trades:      TradesRepo{s},
		Outcomes:    OutcomesRepo{s},
		Regimes:     RegimeRepo{s},
		TokenHealth: HealthRepo{s},
		Wallets:     WalletRepo{s},
	}
}

func healthKey(network, tokenAddress string) string { return network + "|" + tokenAddress }

// --- RiskStateRepo ---

type RiskRepo struct{ s *Store }

func (r RiskRepo) Get(ctx context.Context, userID string) (*types.RiskState, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if st, ok := r.s.risk[userID]; ok {
		cp := st
		return &cp, nil
	}
	return nil, nil
}

func (r RiskRepo) Upsert(ctx context.Context, state types.RiskState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.risk[state.UserID] = state
	return nil
}

// --- CalibrationStateRepo ---

type CalibrationRepo struct{ s *Store }

func (r CalibrationRepo) Get(ctx context.Context, userID string) (*types.CalibrationState, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if st, ok := r.s.calibration[userID]; ok {
		cp := st
		return &cp, nil
	}
	return nil, nil
}

func (r CalibrationRepo) Upsert(ctx context.Context, state types.CalibrationState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.calibration[state.UserID] = state
	return nil
}

// --- TradesRepo ---

type TradesRepo struct{ s *Store }

func (r TradesRepo) Insert(ctx context.Context, trade types.Trade) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.trades[trade.ID] = trade
	return nil
}

func (r TradesRepo) Update(ctx context.Context, trade types.Trade) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.trades[trade.ID] = trade
	return nil
}

func (r TradesRepo) GetByID(ctx context.Context, id string) (*types.Trade, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.trades[id]; ok {
		cp := t
		return &cp, nil
	}
	return nil, nil
}

func (r TradesRepo) ListOpen(ctx context.Context, userID string, layer types.Layer) ([]types.Trade, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []types.Trade
	for _, t := range r.s.trades {
		if t.UserID != userID || t.Status != types.TradeOpen {
			continue
		}
		if layer != "" && t.Layer != layer {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnteredAt.After(out[j].EnteredAt) })
	return out, nil
}

func (r TradesRepo) ListClosed(ctx context.Context, userID string, layer types.Layer, tr storage.TimeRange, limit int) ([]types.Trade, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []types.Trade
	for _, t := range r.s.trades {
		if t.UserID != userID || t.Status != types.TradeClosed {
			continue
		}
		if layer != "" && t.Layer != layer {
			continue
		}
		if t.ClosedAt.Before(tr.From) || t.ClosedAt.After(tr.To) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClosedAt.After(out[j].ClosedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// --- SignalOutcomesRepo ---

type OutcomesRepo struct{ s *Store }

func (r OutcomesRepo) Insert(ctx context.Context, o types.SignalOutcome) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.outcomes[o.ID] = o
	return nil
}

func (r OutcomesRepo) Update(ctx context.Context, o types.SignalOutcome) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.outcomes[o.ID] = o
	return nil
}

func (r OutcomesRepo) GetByID(ctx context.Context, id string) (*types.SignalOutcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if o, ok := r.s.outcomes[id]; ok {
		cp := o
		return &cp, nil
	}
	return nil, nil
}

func (r OutcomesRepo) ListPendingRevisit(ctx context.Context, now time.Time, limit int) ([]types.SignalOutcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []types.SignalOutcome
	for _, o := range r.s.outcomes {
		if o.FullyTracked || o.EmittedAt.After(now) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmittedAt.Before(out[j].EmittedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r OutcomesRepo) ListRecent(ctx context.Context, userID string, limit int) ([]types.SignalOutcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []types.SignalOutcome
	for _, o := range r.s.outcomes {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmittedAt.After(out[j].EmittedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r OutcomesRepo) ListWithKnownWindow(ctx context.Context, userID string, window types.OutcomeWindow, limit int) ([]types.SignalOutcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []types.SignalOutcome
	for _, o := range r.s.outcomes {
		if o.UserID != userID {
			continue
		}
		if _, ok := o.PnLPcts[window]; !ok {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmittedAt.After(out[j].EmittedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// --- RegimeRepo ---

type RegimeRepo struct{ s *Store }

func (r RegimeRepo) Insert(ctx context.Context, snap types.RegimeSnapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.regimes = append(r.s.regimes, snap)
	return nil
}

func (r RegimeRepo) Latest(ctx context.Context, userID string) (*types.RegimeSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *types.RegimeSnapshot
	for i := range r.s.regimes {
		snap := r.s.regimes[i]
		if snap.UserID != userID {
			continue
		}
		if latest == nil || snap.DetectedAt.After(latest.DetectedAt) {
			cp := snap
			latest = &cp
		}
	}
	return latest, nil
}

func (r RegimeRepo) ListRange(ctx context.Context, userID string, tr storage.TimeRange) ([]types.RegimeSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []types.RegimeSnapshot
	for _, snap := range r.s.regimes {
		if snap.UserID != userID {
			continue
		}
		if snap.DetectedAt.Before(tr.From) || snap.DetectedAt.After(tr.To) {
			continue
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	return out, nil
}

// --- TokenHealthRepo ---

type HealthRepo struct{ s *Store }

func (r HealthRepo) Upsert(ctx context.Context, network, tokenAddress string, snap types.TokenHealthSnapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.health[healthKey(network, tokenAddress)] = snap
	return nil
}

func (r HealthRepo) Get(ctx context.Context, network, tokenAddress string) (*types.TokenHealthSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if snap, ok := r.s.health[healthKey(network, tokenAddress)]; ok {
		cp := snap
		return &cp, nil
	}
	return nil, nil
}

// --- WalletRepo ---

type WalletRepo struct{ s *Store }

func (r WalletRepo) ListTracked(ctx context.Context) ([]types.TrackedWallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]types.TrackedWallet, len(r.s.wallets))
	copy(out, r.s.wallets)
	return out, nil
}

func (r WalletRepo) UpsertScore(ctx context.Context, score types.WalletScore) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.walletScore[score.WalletID] = score
	return nil
}

func (r WalletRepo) GetScore(ctx context.Context, walletID string) (*types.WalletScore, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sc, ok := r.s.walletScore[walletID]; ok {
		cp := sc
		return &cp, nil
	}
	return nil, nil
}

func (r WalletRepo) InsertMovement(ctx context.Context, m types.WalletMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.movements = append(r.s.movements, m)
	return nil
}

func (r WalletRepo) ListMovements(ctx context.Context, tokenAddress string, tr storage.TimeRange) ([]types.WalletMovement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []types.WalletMovement
	for _, m := range r.s.movements {
		if m.TokenAddress != tokenAddress {
			continue
		}
		if m.OccurredAt.Before(tr.From) || m.OccurredAt.After(tr.To) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, nil
}
