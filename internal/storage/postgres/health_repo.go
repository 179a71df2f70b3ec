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

// healthRepo implements storage.TokenHealthRepo for PostgreSQL.
type healthRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewHealthRepo creates a new PostgreSQL token-health repository.
func NewHealthRepo(db *sqlx.DB, timeout time.Duration) storage.TokenHealthRepo {
	return &healthRepo{db: db, timeout: timeout}
}

func (r *healthRepo) Upsert(ctx context.Context, network, tokenAddress string, s types.TokenHealthSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	flagsJSON, err := json.Marshal(s.RiskFlags)
	if err != nil {
		return fmt.Errorf("marshal risk flags: %w", err)
	}

	query := `
		INSERT INTO token_health (network, token_address, liquidity_usd, volume_24h, price_usd,
			spread_pct, concentration_top10, risk_flags, health_score, pair_age_hours, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (network, token_address) DO UPDATE SET
			liquidity_usd = EXCLUDED.liquidity_usd,
			volume_24h = EXCLUDED.volume_24h,
			price_usd = EXCLUDED.price_usd,
			spread_pct = EXCLUDED.spread_pct,
			concentration_top10 = EXCLUDED.concentration_top10,
			risk_flags = EXCLUDED.risk_flags,
			health_score = EXCLUDED.health_score,
			pair_age_hours = EXCLUDED.pair_age_hours`

	_, err = r.db.ExecContext(ctx, query, network, tokenAddress, s.LiquidityUSD, s.Volume24h,
		s.PriceUSD, s.SpreadPct, s.ConcentrationTop10, flagsJSON, s.HealthScore, s.PairAgeHours, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert token health: %w", err)
	}
	return nil
}

func (r *healthRepo) Get(ctx context.Context, network, tokenAddress string) (*types.TokenHealthSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT network, liquidity_usd, volume_24h, price_usd, spread_pct, concentration_top10,
			risk_flags, health_score, pair_age_hours, created_at
		FROM token_health WHERE network = $1 AND token_address = $2`

	var s types.TokenHealthSnapshot
	var flagsJSON []byte
	s.TokenAddress = tokenAddress
	err := r.db.QueryRowxContext(ctx, query, network, tokenAddress).Scan(
		&s.Network, &s.LiquidityUSD, &s.Volume24h, &s.PriceUSD, &s.SpreadPct,
		&s.ConcentrationTop10, &flagsJSON, &s.HealthScore, &s.PairAgeHours, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get token health: %w", err)
	}
	if len(flagsJSON) > 0 {
		if err := json.Unmarshal(flagsJSON, &s.RiskFlags); err != nil {
			return nil, fmt.Errorf("unmarshal risk flags: %w", err)
		}
	}
	return &s, nil
}
