package storage

import (
	"context"
	"fmt"

	"ride-coordinator/internal/general/config"
	"ride-coordinator/internal/general/logger"
	"ride-coordinator/internal/general/postgres"
	"ride-coordinator/internal/general/sqlite"
	"ride-coordinator/internal/ports"
)

// Open connects the backend selected by cfg, applies its schema and loads the
// demo fixtures when asked to.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (ports.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLite.Path, err)
		}
		store := sqlite.NewStore(db)
		if cfg.SQLite.Seed {
			if err := store.Seed(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("seed sqlite: %w", err)
			}
		}
		log.Info(ctx, "store_opened", "Using embedded SQLite store", map[string]any{
			"path": cfg.SQLite.Path, "seeded": cfg.SQLite.Seed,
		})
		return store, nil

	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		gateway := postgres.NewGateway(pool, log)
		if cfg.Database.Seed {
			if err := gateway.Seed(ctx); err != nil {
				pool.Close()
				return nil, fmt.Errorf("seed postgres: %w", err)
			}
		}
		return gateway, nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
