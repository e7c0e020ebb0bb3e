// Package app wires the configured backends for the binaries under cmd/.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"data-quality-service/internal/agent"
	"data-quality-service/internal/config"
	"data-quality-service/internal/repository/postgresql"
	"data-quality-service/internal/repository/sqlite"
	"data-quality-service/internal/service"
)

// JobStore is satisfied by both postgresql and sqlite JobRepository.
type JobStore interface {
	agent.JobStore
	service.JobRepository
}

type DatasetStore interface {
	agent.DatasetStore
	service.DatasetRepository
}

type Store struct {
	Jobs     JobStore
	Datasets DatasetStore
	Close    func()
}

// OpenStore connects to the store selected by cfg.StoreDriver and makes sure
// the schema exists.
func OpenStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Store, error) {
	log = log.With().Str("driver", cfg.StoreDriver).Str("dsn", cfg.DSN()).Logger()

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := postgresql.NewPool(ctx, cfg.PostgresDSN, cfg.DBMaxConns)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := postgresql.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		log.Info().Msg("store ready")
		return &Store{
			Jobs:     postgresql.NewJobRepository(pool),
			Datasets: postgresql.NewDatasetRepository(pool),
			Close:    pool.Close,
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("store ready")
		return &Store{
			Jobs:     sqlite.NewJobRepository(db),
			Datasets: sqlite.NewDatasetRepository(db),
			Close:    func() { db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
