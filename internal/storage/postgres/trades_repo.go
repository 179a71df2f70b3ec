package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/paperdex/internal/storage"
	"github.com/sawpanic/paperdex/internal/types"
)

// tradesRepo implements storage.TradesRepo for PostgreSQL.
type tradesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTradesRepo creates a new PostgreSQL trades repository.
func NewTradesRepo(db *sqlx.DB, timeout time.Duration) storage.TradesRepo {
	return &tradesRepo{db: db, timeout: timeout}
}

func (r *tradesRepo) Insert(ctx context.Context, trade types.Trade) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	metadataJSON, err := json.Marshal(trade.Metadata)
	if err != nil {
		return fmt.Errorf("marshal trade metadata: %w", err)
	}

	query := `
		INSERT INTO trades (id, user_id, symbol, token_address, network, side, status, layer,
			quantity, entry_price, entry_reason, entered_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.db.ExecContext(ctx, query,
		trade.ID, trade.UserID, trade.Symbol, trade.TokenAddress, trade.Network,
		trade.Side, trade.Status, trade.Layer, trade.Quantity, trade.EntryPrice,
		trade.EntryReason, trade.EnteredAt, metadataJSON)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

func (r *tradesRepo) Update(ctx context.Context, trade types.Trade) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	metadataJSON, err := json.Marshal(trade.Metadata)
	if err != nil {
		return fmt.Errorf("marshal trade metadata: %w", err)
	}

	query := `
		UPDATE trades SET
			status = $2, exit_price = $3, pnl_abs = $4, pnl_pct = $5, is_win = $6,
			fees_abs = $7, slippage_simulated = $8, gas_simulated = $9, latency_ms = $10,
			exit_reason = $11, closed_at = $12, metadata = $13
		WHERE id = $1`

	_, err = r.db.ExecContext(ctx, query,
		trade.ID, trade.Status, trade.ExitPrice, trade.PnLAbs, trade.PnLPct, trade.IsWin,
		trade.FeesAbs, trade.SlippageSimulated, trade.GasSimulated, trade.LatencyMs,
		trade.ExitReason, trade.ClosedAt, metadataJSON)
	if err != nil {
		return fmt.Errorf("update trade: %w", err)
	}
	return nil
}

func (r *tradesRepo) GetByID(ctx context.Context, id string) (*types.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowxContext(ctx, selectTradeColumns+` FROM trades WHERE id = $1`, id)
	trade, err := scanTrade(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return trade, nil
}

func (r *tradesRepo) ListOpen(ctx context.Context, userID string, layer types.Layer) ([]types.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := selectTradeColumns + ` FROM trades WHERE user_id = $1 AND status = 'open'`
	args := []interface{}{userID}
	if layer != "" {
		query += ` AND layer = $2`
		args = append(args, layer)
	}
	query += ` ORDER BY entered_at DESC`

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list open trades: %w", err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

func (r *tradesRepo) ListClosed(ctx context.Context, userID string, layer types.Layer, tr storage.TimeRange, limit int) ([]types.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := selectTradeColumns + ` FROM trades WHERE user_id = $1 AND status = 'closed' AND closed_at >= $2 AND closed_at <= $3`
	args := []interface{}{userID, tr.From, tr.To}
	if layer != "" {
		query += fmt.Sprintf(` AND layer = $%d`, len(args)+1)
		args = append(args, layer)
	}
	query += fmt.Sprintf(` ORDER BY closed_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list closed trades: %w", err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

const selectTradeColumns = `
	SELECT id, user_id, symbol, token_address, network, side, status, layer,
		quantity, entry_price, exit_price, pnl_abs, pnl_pct, is_win, fees_abs,
		slippage_simulated, gas_simulated, latency_ms, entry_reason, exit_reason,
		entered_at, closed_at, metadata`

func scanTrades(rows *sqlx.Rows) ([]types.Trade, error) {
	var trades []types.Trade
	for rows.Next() {
		trade, err := scanTradeFromRows(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}

func scanTrade(row *sqlx.Row) (*types.Trade, error) {
	var t types.Trade
	var metadataJSON []byte
	err := row.Scan(&t.ID, &t.UserID, &t.Symbol, &t.TokenAddress, &t.Network, &t.Side, &t.Status,
		&t.Layer, &t.Quantity, &t.EntryPrice, &t.ExitPrice, &t.PnLAbs, &t.PnLPct, &t.IsWin,
		&t.FeesAbs, &t.SlippageSimulated, &t.GasSimulated, &t.LatencyMs, &t.EntryReason,
		&t.ExitReason, &t.EnteredAt, &t.ClosedAt, &metadataJSON)
	if err != nil {
		return nil, err
	}
	if err := unmarshalMetadata(metadataJSON, &t.Metadata); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTradeFromRows(rows *sqlx.Rows) (*types.Trade, error) {
	var t types.Trade
	var metadataJSON []byte
	err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.TokenAddress, &t.Network, &t.Side, &t.Status,
		&t.Layer, &t.Quantity, &t.EntryPrice, &t.ExitPrice, &t.PnLAbs, &t.PnLPct, &t.IsWin,
		&t.FeesAbs, &t.SlippageSimulated, &t.GasSimulated, &t.LatencyMs, &t.EntryReason,
		&t.ExitReason, &t.EnteredAt, &t.ClosedAt, &metadataJSON)
	if err != nil {
		return nil, err
	}
	if err := unmarshalMetadata(metadataJSON, &t.Metadata); err != nil {
		return nil, err
	}
	return &t, nil
}

func unmarshalMetadata(raw []byte, dst *map[string]interface{}) error {
	if len(raw) == 0 {
		*dst = map[string]interface{}{}
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("unmarshal metadata: %w", err)
	}
	return nil
}
