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

// regimeRepo implements storage.RegimeRepo for PostgreSQL.
type regimeRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewRegimeRepo creates a new PostgreSQL regime repository.
func NewRegimeRepo(db *sqlx.DB, timeout time.Duration) storage.RegimeRepo {
	return &regimeRepo{db: db, timeout: timeout}
}

func (r *regimeRepo) Insert(ctx context.Context, s types.RegimeSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	metadataJSON, err := json.Marshal(s.Metadata)
	if err != nil {
		return fmt.Errorf("marshal regime metadata: %w", err)
	}

	query := `
		INSERT INTO regime_snapshots (id, user_id, regime, sentiment_score, btc_dominance, metadata, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.ExecContext(ctx, query, s.ID, s.UserID, s.Regime, s.SentimentScore,
		s.BTCDominance, metadataJSON, s.DetectedAt)
	if err != nil {
		return fmt.Errorf("insert regime snapshot: %w", err)
	}
	return nil
}

func (r *regimeRepo) Latest(ctx context.Context, userID string) (*types.RegimeSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := selectRegimeColumns + ` FROM regime_snapshots WHERE user_id = $1 ORDER BY detected_at DESC LIMIT 1`
	row := r.db.QueryRowxContext(ctx, query, userID)
	s, err := scanRegime(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest regime: %w", err)
	}
	return s, nil
}

func (r *regimeRepo) ListRange(ctx context.Context, userID string, tr storage.TimeRange) ([]types.RegimeSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := selectRegimeColumns + ` FROM regime_snapshots
		WHERE user_id = $1 AND detected_at >= $2 AND detected_at <= $3 ORDER BY detected_at DESC`

	rows, err := r.db.QueryxContext(ctx, query, userID, tr.From, tr.To)
	if err != nil {
		return nil, fmt.Errorf("list regime range: %w", err)
	}
	defer rows.Close()

	var out []types.RegimeSnapshot
	for rows.Next() {
		s, err := scanRegimeFromRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

const selectRegimeColumns = `SELECT id, user_id, regime, sentiment_score, btc_dominance, metadata, detected_at`

func scanRegime(row *sqlx.Row) (*types.RegimeSnapshot, error) {
	var s types.RegimeSnapshot
	var metadataJSON []byte
	err := row.Scan(&s.ID, &s.UserID, &s.Regime, &s.SentimentScore, &s.BTCDominance, &metadataJSON, &s.DetectedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalMetadata(metadataJSON, &s.Metadata); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanRegimeFromRows(rows *sqlx.Rows) (*types.RegimeSnapshot, error) {
	var s types.RegimeSnapshot
	var metadataJSON []byte
	err := rows.Scan(&s.ID, &s.UserID, &s.Regime, &s.SentimentScore, &s.BTCDominance, &metadataJSON, &s.DetectedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalMetadata(metadataJSON, &s.Metadata); err != nil {
		return nil, err
	}
	return &s, nil
}
