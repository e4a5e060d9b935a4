// Package bootstrap opens the persistent store the commands share.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"lingofocus/internal/config"
	"lingofocus/internal/database"
	"lingofocus/internal/repository"
	"lingofocus/internal/seed"
	"lingofocus/internal/store"
)

// OpenStore connects to the configured database, applies migrations and
// returns a seeded store. With memory set nothing touches disk. The returned
// close func releases the connection.
func OpenStore(ctx context.Context, cfg *config.Config, memory bool, logger zerolog.Logger) (*store.Store, func() error, error) {
	opts := []store.Option{
		store.WithSeeds(seed.Collections),
		store.WithDefaultSettings(cfg.DefaultSettings()),
		store.WithLogger(logger),
	}

	if memory {
		logger.Info().Msg("using in-memory store; nothing will be saved")
		return store.New(store.NewMemoryBackend(), opts...), func() error { return nil }, nil
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info().Str("type", cfg.DatabaseType).Msg("database connection established")

	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store.New(repository.NewKVRepository(db), opts...), db.Close, nil
}
