package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sawpanic/paperdex/internal/storage"
	"github.com/sawpanic/paperdex/internal/types"
)

// outcomesRepo implements storage.SignalOutcomesRepo for PostgreSQL.
type outcomesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewOutcomesRepo creates a new PostgreSQL signal-outcomes repository.
func NewOutcomesRepo(db *sqlx.DB, timeout time.Duration) storage.SignalOutcomesRepo {
	return &outcomesRepo{db: db, timeout: timeout}
}

func (r *outcomesRepo) Insert(ctx context.Context, o types.SignalOutcome) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reasonsJSON, err := json.Marshal(o.Reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}

	query := `
		INSERT INTO signal_outcomes (id, user_id, signal_key, token_address, network, layer,
			confidence, regime_at_emit, entry_price, was_executed, reject_reason, reasons,
			signal_source, emitted_at, prices, pnl_pcts, checks_done, fully_tracked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, '{}'::jsonb, '{}'::jsonb, 0, false)`

	_, err = r.db.ExecContext(ctx, query, o.ID, o.UserID, o.SignalKey, o.TokenAddress, o.Network,
		o.Layer, o.Confidence, o.RegimeAtEmit, o.EntryPrice, o.WasExecuted, o.RejectReason,
		reasonsJSON, o.SignalSource, o.EmittedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate signal outcome: %w", err)
		}
		return fmt.Errorf("insert signal outcome: %w", err)
	}
	return nil
}

func (r *outcomesRepo) Update(ctx context.Context, o types.SignalOutcome) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	pricesJSON, err := json.Marshal(o.Prices)
	if err != nil {
		return fmt.Errorf("marshal prices: %w", err)
	}
	pnlJSON, err := json.Marshal(o.PnLPcts)
	if err != nil {
		return fmt.Errorf("marshal pnl_pcts: %w", err)
	}

	query := `
		UPDATE signal_outcomes SET prices = $2, pnl_pcts = $3, checks_done = $4, fully_tracked = $5
		WHERE id = $1`

	_, err = r.db.ExecContext(ctx, query, o.ID, pricesJSON, pnlJSON, o.ChecksDone, o.FullyTracked)
	if err != nil {
		return fmt.Errorf("update signal outcome: %w", err)
	}
	return nil
}

func (r *outcomesRepo) GetByID(ctx context.Context, id string) (*types.SignalOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowxContext(ctx, selectOutcomeColumns+` FROM signal_outcomes WHERE id = $1`, id)
	o, err := scanOutcome(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get signal outcome: %w", err)
	}
	return o, nil
}

// ListPendingRevisit returns outcomes not yet fully tracked, ordered by
// emission time so the oldest-due records are revisited first.
func (r *outcomesRepo) ListPendingRevisit(ctx context.Context, now time.Time, limit int) ([]types.SignalOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := selectOutcomeColumns + ` FROM signal_outcomes WHERE fully_tracked = false AND emitted_at <= $1
		ORDER BY emitted_at ASC LIMIT $2`

	rows, err := r.db.QueryxContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending revisit: %w", err)
	}
	defer rows.Close()
	return scanOutcomes(rows)
}

func (r *outcomesRepo) ListRecent(ctx context.Context, userID string, limit int) ([]types.SignalOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := selectOutcomeColumns + ` FROM signal_outcomes WHERE user_id = $1 ORDER BY emitted_at DESC LIMIT $2`
	rows, err := r.db.QueryxContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent signal outcomes: %w", err)
	}
	defer rows.Close()
	return scanOutcomes(rows)
}

func (r *outcomesRepo) ListWithKnownWindow(ctx context.Context, userID string, window types.OutcomeWindow, limit int) ([]types.SignalOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := selectOutcomeColumns + ` FROM signal_outcomes
		WHERE user_id = $1 AND pnl_pcts ? $2
		ORDER BY emitted_at DESC LIMIT $3`

	rows, err := r.db.QueryxContext(ctx, query, userID, string(window), limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes with known window: %w", err)
	}
	defer rows.Close()
	return scanOutcomes(rows)
}

const selectOutcomeColumns = `
	SELECT id, user_id, signal_key, token_address, network, layer, confidence, regime_at_emit,
		entry_price, was_executed, reject_reason, reasons, signal_source, emitted_at, prices,
		pnl_pcts, checks_done, fully_tracked`

func scanOutcomes(rows *sqlx.Rows) ([]types.SignalOutcome, error) {
	var out []types.SignalOutcome
	for rows.Next() {
		o, err := scanOutcomeFromRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome rows: %w", err)
	}
	return out, nil
}

func scanOutcome(row *sqlx.Row) (*types.SignalOutcome, error) {
	var o types.SignalOutcome
	var reasonsJSON, pricesJSON, pnlJSON []byte
	err := row.Scan(&o.ID, &o.UserID, &o.SignalKey, &o.TokenAddress, &o.Network, &o.Layer,
		&o.Confidence, &o.RegimeAtEmit, &o.EntryPrice, &o.WasExecuted, &o.RejectReason,
		&reasonsJSON, &o.SignalSource, &o.EmittedAt, &pricesJSON, &pnlJSON, &o.ChecksDone, &o.FullyTracked)
	if err != nil {
		return nil, err
	}
	if err := unmarshalOutcomeJSON(reasonsJSON, pricesJSON, pnlJSON, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func scanOutcomeFromRows(rows *sqlx.Rows) (*types.SignalOutcome, error) {
	var o types.SignalOutcome
	var reasonsJSON, pricesJSON, pnlJSON []byte
	err := rows.Scan(&o.ID, &o.UserID, &o.SignalKey, &o.TokenAddress, &o.Network, &o.Layer,
		&o.Confidence, &o.RegimeAtEmit, &o.EntryPrice, &o.WasExecuted, &o.RejectReason,
		&reasonsJSON, &o.SignalSource, &o.EmittedAt, &pricesJSON, &pnlJSON, &o.ChecksDone, &o.FullyTracked)
	if err != nil {
		return nil, err
	}
	if err := unmarshalOutcomeJSON(reasonsJSON, pricesJSON, pnlJSON, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func unmarshalOutcomeJSON(reasonsJSON, pricesJSON, pnlJSON []byte, o *types.SignalOutcome) error {
	if len(reasonsJSON) > 0 {
		if err := json.Unmarshal(reasonsJSON, &o.Reasons); err != nil {
			return fmt.Errorf("unmarshal reasons: %w", err)
		}
	}
	if len(pricesJSON) > 0 {
		if err := json.Unmarshal(pricesJSON, &o.Prices); err != nil {
			return fmt.Errorf("unmarshal prices: %w", err)
		}
	}
	if len(pnlJSON) > 0 {
		if err := json.Unmarshal(pnlJSON, &o.PnLPcts); err != nil {
			return fmt.Errorf("unmarshal pnl_pcts: %w", err)
		}
	}
	return nil
}
