package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/paperdex/internal/storage"
	"github.com/sawpanic/paperdex/internal/types"
)

// riskRepo implements storage.RiskStateRepo for PostgreSQL.
type riskRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewRiskRepo creates a new PostgreSQL risk-state repository.
func NewRiskRepo(db *sqlx.DB, timeout time.Duration) storage.RiskStateRepo {
	return &riskRepo{db: db, timeout: timeout}
}

func (r *riskRepo) Get(ctx context.Context, userID string) (*types.RiskState, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT user_id, capital, pnl_today, pnl_this_week, trades_today_core,
			trades_today_satellite, consecutive_losses_satellite, is_paused,
			pause_reason, pause_until, last_daily_reset_at, last_weekly_reset_at
		FROM risk_states WHERE user_id = $1`

	var s types.RiskState
	err := r.db.QueryRowxContext(ctx, query, userID).Scan(
		&s.UserID, &s.Capital, &s.PnLToday, &s.PnLThisWeek, &s.TradesTodayCore,
		&s.TradesTodaySatellite, &s.ConsecutiveLossesSatellite, &s.IsPaused,
		&s.PauseReason, &s.PauseUntil, &s.LastDailyResetAt, &s.LastWeeklyResetAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get risk state: %w", err)
	}
	return &s, nil
}

func (r *riskRepo) Upsert(ctx context.Context, s types.RiskState) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO risk_states (user_id, capital, pnl_today, pnl_this_week, trades_today_core,
			trades_today_satellite, consecutive_losses_satellite, is_paused, pause_reason,
			pause_until, last_daily_reset_at, last_weekly_reset_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			capital = EXCLUDED.capital,
			pnl_today = EXCLUDED.pnl_today,
			pnl_this_week = EXCLUDED.pnl_this_week,
			trades_today_core = EXCLUDED.trades_today_core,
			trades_today_satellite = EXCLUDED.trades_today_satellite,
			consecutive_losses_satellite = EXCLUDED.consecutive_losses_satellite,
			is_paused = EXCLUDED.is_paused,
			pause_reason = EXCLUDED.pause_reason,
			pause_until = EXCLUDED.pause_until,
			last_daily_reset_at = EXCLUDED.last_daily_reset_at,
			last_weekly_reset_at = EXCLUDED.last_weekly_reset_at`

	_, err := r.db.ExecContext(ctx, query, s.UserID, s.Capital, s.PnLToday, s.PnLThisWeek,
		s.TradesTodayCore, s.TradesTodaySatellite, s.ConsecutiveLossesSatellite, s.IsPaused,
		s.PauseReason, s.PauseUntil, s.LastDailyResetAt, s.LastWeeklyResetAt)
	if err != nil {
		return fmt.Errorf("upsert risk state: %w", err)
	}
	return nil
}
