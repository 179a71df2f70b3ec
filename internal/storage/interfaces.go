// Package storage declares the repository contracts every cycle-engine
// component persists through: risk state, calibration state, trades, signal
// outcomes, regime snapshots, token health snapshots and tracked wallets.
// Two implementations exist: postgres (production) and memstore (tests).
package storage

import (
	"context"
	"time"

	"github.com/sawpanic/paperdex/internal/types"
)

// TimeRange bounds a query window inclusive on both ends.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// RiskStateRepo persists the one-per-user risk ledger.
type RiskStateRepo interface {
	Get(ctx context.Context, userID string) (*types.RiskState, error)
	Upsert(ctx context.Context, state types.RiskState) error
}

// CalibrationStateRepo persists the one-per-user adaptive tuning record.
type CalibrationStateRepo interface {
	Get(ctx context.Context, userID string) (*types.CalibrationState, error)
	Upsert(ctx context.Context, state types.CalibrationState) error
}

// TradesRepo persists paper trades, append-on-open and update-on-close.
type TradesRepo interface {
	Insert(ctx context.Context, trade types.Trade) error
	Update(ctx context.Context, trade types.Trade) error
	GetByID(ctx context.Context, id string) (*types.Trade, error)
	ListOpen(ctx context.Context, userID string, layer types.Layer) ([]types.Trade, error)
	ListClosed(ctx context.Context, userID string, layer types.Layer, tr TimeRange, limit int) ([]types.Trade, error)
}

// SignalOutcomesRepo persists the forward-outcome tracker's append-then-
// update records.
type SignalOutcomesRepo interface {
	Insert(ctx context.Context, outcome types.SignalOutcome) error
	Update(ctx context.Context, outcome types.SignalOutcome) error
	GetByID(ctx context.Context, id string) (*types.SignalOutcome, error)
	ListPendingRevisit(ctx context.Context, now time.Time, limit int) ([]types.SignalOutcome, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]types.SignalOutcome, error)
	ListWithKnownWindow(ctx context.Context, userID string, window types.OutcomeWindow, limit int) ([]types.SignalOutcome, error)
}

// RegimeRepo persists append-only regime classifications.
type RegimeRepo interface {
	Insert(ctx context.Context, snapshot types.RegimeSnapshot) error
	Latest(ctx context.Context, userID string) (*types.RegimeSnapshot, error)
	ListRange(ctx context.Context, userID string, tr TimeRange) ([]types.RegimeSnapshot, error)
}

// TokenHealthRepo persists the latest health snapshot per token.
type TokenHealthRepo interface {
	Upsert(ctx context.Context, network, tokenAddress string, snapshot types.TokenHealthSnapshot) error
	Get(ctx context.Context, network, tokenAddress string) (*types.TokenHealthSnapshot, error)
}

// WalletRepo persists the tracked smart-money roster, their reputation
// scores and simulated movements.
type WalletRepo interface {
	ListTracked(ctx context.Context) ([]types.TrackedWallet, error)
	UpsertScore(ctx context.Context, score types.WalletScore) error
	GetScore(ctx context.Context, walletID string) (*types.WalletScore, error)
	InsertMovement(ctx context.Context, movement types.WalletMovement) error
	ListMovements(ctx context.Context, tokenAddress string, tr TimeRange) ([]types.WalletMovement, error)
}

// Repository aggregates every repo a cycle needs, mirroring how the
// orchestrator wires a single storage handle through to every component.
type Repository struct {
	Risk        RiskStateRepo
	Calibration CalibrationStateRepo
	Trades      TradesRepo
	Outcomes    SignalOutcomesRepo
	Regimes     RegimeRepo
	TokenHealth TokenHealthRepo
	Wallets     WalletRepo
}
