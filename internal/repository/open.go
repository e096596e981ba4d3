package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"query-evolver/internal/config"
	"query-evolver/internal/logging"
)

// Open builds the store selected by cfg.Storage.Driver. The returned func
// releases any connections and is never nil.
func Open(ctx context.Context, cfg *config.Config, logger *logging.Logger) (GenerationStore, func(), error) {
	if err := cfg.ValidateStorage(); err != nil {
		return nil, func() {}, err
	}

	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := initDatabase(ctx, cfg.PostgresDSN(), logger)
		if err != nil {
			return nil, func() {}, err
		}
		store := NewPostgresGenerationStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, func() {}, err
		}
		logger.Info("Database connected", "host", cfg.DB.Host, "database", cfg.DB.Name)
		return store, pool.Close, nil
	default:
		logger.Info("Using file storage", "dir", cfg.Storage.Dir)
		return NewFileGenerationStore(cfg.Storage.Dir), func() {}, nil
	}
}

func initDatabase(ctx context.Context, connStr string, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection")

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
