// Package migrate applies embedded goose migrations through a goose.Provider,
// so ClickHouse and Postgres migrations can run in the same process without
// sharing goose's package-level dialect and filesystem.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

type Config struct {
	Logger  *slog.Logger
	Dialect goose.Dialect
	DB      *sql.DB
	// FS holds the migration files at Dir.
	FS  fs.FS
	Dir string
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Dialect == "" {
		return errors.New("dialect is required")
	}
	if cfg.DB == nil {
		return errors.New("db is required")
	}
	if cfg.FS == nil {
		return errors.New("migrations fs is required")
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	return nil
}

func newProvider(cfg Config) (*goose.Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fsys, err := fs.Sub(cfg.FS, cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations dir %q: %w", cfg.Dir, err)
	}
	p, err := goose.NewProvider(cfg.Dialect, cfg.DB, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to create goose provider: %w", err)
	}
	return p, nil
}

// Up applies all pending migrations and returns the resulting version.
func Up(ctx context.Context, cfg Config) (int64, error) {
	p, err := newProvider(cfg)
	if err != nil {
		return 0, err
	}
	cfg.Logger.Info("migrate: running migrations (up)", "dialect", cfg.Dialect)

	results, err := p.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}
	logResults(cfg.Logger, results)

	version, err := p.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	cfg.Logger.Info("migrate: migrations completed", "dialect", cfg.Dialect, "version", version, "applied", len(results))
	return version, nil
}

// Reset rolls back every applied migration.
func Reset(ctx context.Context, cfg Config) error {
	p, err := newProvider(cfg)
	if err != nil {
		return err
	}
	cfg.Logger.Info("migrate: resetting migrations", "dialect", cfg.Dialect)

	results, err := p.DownTo(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to reset migrations: %w", err)
	}
	logResults(cfg.Logger, results)
	return nil
}

// Version returns the current database version, 0 when nothing is applied.
func Version(ctx context.Context, cfg Config) (int64, error) {
	p, err := newProvider(cfg)
	if err != nil {
		return 0, err
	}
	version, err := p.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, nil
}

func logResults(log *slog.Logger, results []*goose.MigrationResult) {
	for _, r := range results {
		if r.Source == nil {
			continue
		}
		log.Debug("migrate: applied migration", "version", r.Source.Version, "direction", r.Direction, "duration", r.Duration)
	}
}
