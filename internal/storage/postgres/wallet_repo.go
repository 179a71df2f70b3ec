package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sawpanic/paperdex/internal/storage"
	"github.com/sawpanic/paperdex/internal/types"
)

// walletRepo implements storage.WalletRepo for PostgreSQL.
type walletRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewWalletRepo creates a new PostgreSQL smart-money wallet repository.
func NewWalletRepo(db *sqlx.DB, timeout time.Duration) storage.WalletRepo {
	return &walletRepo{db: db, timeout: timeout}
}

func (r *walletRepo) ListTracked(ctx context.Context) ([]types.TrackedWallet, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `
		SELECT wallet_id, style, win_rate, preferred_networks FROM tracked_wallets ORDER BY wallet_id`)
	if err != nil {
		return nil, fmt.Errorf("list tracked wallets: %w", err)
	}
	defer rows.Close()

	var out []types.TrackedWallet
	for rows.Next() {
		var w types.TrackedWallet
		var networks pq.StringArray
		if err := rows.Scan(&w.WalletID, &w.Style, &w.WinRate, &networks); err != nil {
			return nil, fmt.Errorf("scan tracked wallet: %w", err)
		}
		w.PreferredNetworks = []string(networks)
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *walletRepo) UpsertScore(ctx context.Context, s types.WalletScore) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO wallet_scores (wallet_id, score, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (wallet_id) DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query, s.WalletID, s.Score, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert wallet score: %w", err)
	}
	return nil
}

func (r *walletRepo) GetScore(ctx context.Context, walletID string) (*types.WalletScore, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var s types.WalletScore
	err := r.db.QueryRowxContext(ctx, `SELECT wallet_id, score, updated_at FROM wallet_scores WHERE wallet_id = $1`, walletID).
		Scan(&s.WalletID, &s.Score, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet score: %w", err)
	}
	return &s, nil
}

func (r *walletRepo) InsertMovement(ctx context.Context, m types.WalletMovement) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO wallet_movements (id, wallet_id, token_address, network, direction, amount_usd, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query, m.ID, m.WalletID, m.TokenAddress, m.Network, m.Direction, m.AmountUSD, m.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert wallet movement: %w", err)
	}
	return nil
}

func (r *walletRepo) ListMovements(ctx context.Context, tokenAddress string, tr storage.TimeRange) ([]types.WalletMovement, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, wallet_id, token_address, network, direction, amount_usd, occurred_at
		FROM wallet_movements
		WHERE token_address = $1 AND occurred_at >= $2 AND occurred_at <= $3
		ORDER BY occurred_at DESC`

	rows, err := r.db.QueryxContext(ctx, query, tokenAddress, tr.From, tr.To)
	if err != nil {
		return nil, fmt.Errorf("list wallet movements: %w", err)
	}
	defer rows.Close()

	var out []types.WalletMovement
	for rows.Next() {
		var m types.WalletMovement
		if err := rows.Scan(&m.ID, &m.WalletID, &m.TokenAddress, &m.Network, &m.Direction, &m.AmountUSD, &m.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan wallet movement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
