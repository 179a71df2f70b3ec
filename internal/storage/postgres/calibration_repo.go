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

// calibrationRepo implements storage.CalibrationStateRepo for PostgreSQL.
type calibrationRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewCalibrationRepo creates a new PostgreSQL calibration-state repository.
func NewCalibrationRepo(db *sqlx.DB, timeout time.Duration) storage.CalibrationStateRepo {
	return &calibrationRepo{db: db, timeout: timeout}
}

func (r *calibrationRepo) Get(ctx context.Context, userID string) (*types.CalibrationState, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT user_id, momentum_score_threshold, early_score_threshold, core_min_confidence,
			satellite_min_confidence, hit_rate_core, hit_rate_satellite, profit_factor_core,
			profit_factor_satellite, momentum_exposure_pct, early_exposure_pct, token_overlap_pct,
			detector_pf, detector_hit_rate, detector_bias, last_calibrated_at
		FROM calibration_states WHERE user_id = $1`

	var s types.CalibrationState
	var pfJSON, hitRateJSON, biasJSON []byte
	err := r.db.QueryRowxContext(ctx, query, userID).Scan(
		&s.UserID, &s.MomentumScoreThreshold, &s.EarlyScoreThreshold, &s.CoreMinConfidence,
		&s.SatelliteMinConfidence, &s.HitRateCore, &s.HitRateSatellite, &s.ProfitFactorCore,
		&s.ProfitFactorSatellite, &s.MomentumExposurePct, &s.EarlyExposurePct, &s.TokenOverlapPct,
		&pfJSON, &hitRateJSON, &biasJSON, &s.LastCalibratedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get calibration state: %w", err)
	}

	if err := json.Unmarshal(pfJSON, &s.DetectorPF); err != nil {
		return nil, fmt.Errorf("unmarshal detector_pf: %w", err)
	}
	if err := json.Unmarshal(hitRateJSON, &s.DetectorHitRate); err != nil {
		return nil, fmt.Errorf("unmarshal detector_hit_rate: %w", err)
	}
	if err := json.Unmarshal(biasJSON, &s.DetectorBias); err != nil {
		return nil, fmt.Errorf("unmarshal detector_bias: %w", err)
	}
	return &s, nil
}

func (r *calibrationRepo) Upsert(ctx context.Context, s types.CalibrationState) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	pfJSON, err := json.Marshal(s.DetectorPF)
	if err != nil {
		return fmt.Errorf("marshal detector_pf: %w", err)
	}
	hitRateJSON, err := json.Marshal(s.DetectorHitRate)
	if err != nil {
		return fmt.Errorf("marshal detector_hit_rate: %w", err)
	}
	biasJSON, err := json.Marshal(s.DetectorBias)
	if err != nil {
		return fmt.Errorf("marshal detector_bias: %w", err)
	}

	query := `
		INSERT INTO calibration_states (user_id, momentum_score_threshold, early_score_threshold,
			core_min_confidence, satellite_min_confidence, hit_rate_core, hit_rate_satellite,
			profit_factor_core, profit_factor_satellite, momentum_exposure_pct, early_exposure_pct,
			token_overlap_pct, detector_pf, detector_hit_rate, detector_bias, last_calibrated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (user_id) DO UPDATE SET
			momentum_score_threshold = EXCLUDED.momentum_score_threshold,
			early_score_threshold = EXCLUDED.early_score_threshold,
			core_min_confidence = EXCLUDED.core_min_confidence,
			satellite_min_confidence = EXCLUDED.satellite_min_confidence,
			hit_rate_core = EXCLUDED.hit_rate_core,
			hit_rate_satellite = EXCLUDED.hit_rate_satellite,
			profit_factor_core = EXCLUDED.profit_factor_core,
			profit_factor_satellite = EXCLUDED.profit_factor_satellite,
			momentum_exposure_pct = EXCLUDED.momentum_exposure_pct,
			early_exposure_pct = EXCLUDED.early_exposure_pct,
			token_overlap_pct = EXCLUDED.token_overlap_pct,
			detector_pf = EXCLUDED.detector_pf,
			detector_hit_rate = EXCLUDED.detector_hit_rate,
			detector_bias = EXCLUDED.detector_bias,
			last_calibrated_at = EXCLUDED.last_calibrated_at`

	_, err = r.db.ExecContext(ctx, query, s.UserID, s.MomentumScoreThreshold, s.EarlyScoreThreshold,
		s.CoreMinConfidence, s.SatelliteMinConfidence, s.HitRateCore, s.HitRateSatellite,
		s.ProfitFactorCore, s.ProfitFactorSatellite, s.MomentumExposurePct, s.EarlyExposurePct,
		s.TokenOverlapPct, pfJSON, hitRateJSON, biasJSON, s.LastCalibratedAt)
	if err != nil {
		return fmt.Errorf("upsert calibration state: %w", err)
	}
	return nil
}
