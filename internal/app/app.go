// Package app wires configuration into stores, the scenario store and the
// aggregator shared by the CLI and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"sanctum-sim/internal/config"
	"sanctum-sim/internal/logging"
	"sanctum-sim/internal/metrics"
	"sanctum-sim/internal/scenario"
	"sanctum-sim/internal/storage"
	chstore "sanctum-sim/internal/storage/clickhouse"
	"sanctum-sim/internal/storage/memory"
	"sanctum-sim/internal/storage/migrations"
	pgstore "sanctum-sim/internal/storage/postgres"
	"sanctum-sim/internal/storage/sqlite"
)

// App holds the long-lived components built from a Config.
type App struct {
	Config     config.Config
	Logger     *slog.Logger
	KV         storage.KVStore
	Runs       storage.RunRecordStore
	Scenarios  *scenario.Store
	Aggregator *metrics.Aggregator

	closers []func() error
}

// NewLogger builds the process logger described by cfg.
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	if cfg.LogFormat == "json" {
		return logging.NewJSONLogger(cfg.LogLevel, w)
	}
	return logging.NewLogger(cfg.LogLevel, w)
}

// Open validates cfg and builds every component. The caller must Close the App.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{Config: cfg, Logger: logging.OrDiscard(logger)}
	if err := a.openStores(ctx); err != nil {
		a.Close()
		return nil, err
	}

	repo := scenario.NewKVRepository(a.KV, scenario.KVRepositoryOptions{
		ScenariosKey: cfg.ScenarioKey,
		ActiveKey:    cfg.ActiveKey,
		Logger:       a.Logger,
	})
	store, err := scenario.Open(ctx, repo, scenario.Options{Logger: a.Logger})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Scenarios = store

	a.Aggregator = metrics.NewAggregator(metrics.Options{
		Workers:  cfg.Workers,
		RunStore: a.Runs,
		Logger:   a.Logger,
	})

	a.Logger.Debug("app opened", "config", cfg.String())
	return a, nil
}

// openStores creates the key-value store for cfg.Storage and the run archive.
// A configured ClickHouse DSN takes the run archive over from the KV backend.
func (a *App) openStores(ctx context.Context) error {
	switch a.Config.Storage {
	case config.StorageMemory:
		a.KV = memory.NewKVStore()
		a.Runs = memory.NewRunRecordStore()

	case config.StorageSQLite:
		db, err := sqlite.Open(ctx, a.Config.SQLitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		a.KV = sqlite.NewKVStore(db)
		a.Runs = sqlite.NewRunRecordStore(db)

	case config.StoragePostgres:
		pool, err := pgstore.NewPool(ctx, a.Config.PostgresDSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		a.KV = pgstore.NewKVStore(pool)
		a.Runs = pgstore.NewRunRecordStore(pool)

	default:
		return fmt.Errorf("unsupported storage %q", a.Config.Storage)
	}

	if a.Config.ClickHouseDSN == "" {
		return nil
	}
	if err := chstore.EnsureDatabase(ctx, a.Config.ClickHouseDSN); err != nil {
		return err
	}
	conn, err := chstore.NewConn(ctx, a.Config.ClickHouseDSN)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, conn.Close)
	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		return fmt.Errorf("clickhouse migrations: %w", err)
	}
	a.Runs = chstore.NewRunRecordStore(conn)
	a.Logger.Info("run archive on clickhouse")
	return nil
}

// Close releases store connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
