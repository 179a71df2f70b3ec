package postgres

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/paperdex/internal/storage"
)

// NewRepository wires every PostgreSQL repo facet against one pooled
// connection, mirroring memstore.Store.Repository() for production use.
func NewRepository(db *sqlx.DB, timeout time.Duration) storage.Repository {
	return storage.Repository{
		Risk:        NewRiskRepo(db, timeout),
		Calibration: NewCalibrationRepo(db, timeout),
		Trades:      NewTradesRepo(db, timeout),
		Outcomes:    NewOutcomesRepo(db, timeout),
		Regimes:     NewRegimeRepo(db, timeout),
		TokenHealth: NewHealthRepo(db, timeout),
		Wallets:     NewWalletRepo(db, timeout),
	}
}
