package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver with database/sql for goose
	"github.com/pressly/goose/v3"

	"github.com/malbeclabs/orderlake/etl"
	"github.com/malbeclabs/orderlake/utils/pkg/migrate"
)

type Config struct {
	// DSN is a postgres:// URL or key=value connection string.
	DSN      string
	MaxConns int32
	MinConns int32
}

func (cfg *Config) Validate() error {
	if cfg.DSN == "" {
		return errors.New("dsn is required")
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 10
	}
	if cfg.MinConns == 0 {
		cfg.MinConns = 1
	}
	return nil
}

// NewPool opens and pings a connection pool.
func NewPool(ctx context.Context, log *slog.Logger, cfg Config) (*pgxpool.Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(pingCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	log.Info("postgres: pool initialized", "host", poolConfig.ConnConfig.Host, "database", poolConfig.ConnConfig.Database)
	return pool, nil
}

// Up applies all pending star schema migrations.
func Up(ctx context.Context, log *slog.Logger, cfg Config) error {
	return withMigrations(log, cfg, func(mcfg migrate.Config) error {
		_, err := migrate.Up(ctx, mcfg)
		return err
	})
}

// Reset rolls back every migration.
func Reset(ctx context.Context, log *slog.Logger, cfg Config) error {
	return withMigrations(log, cfg, func(mcfg migrate.Config) error {
		return migrate.Reset(ctx, mcfg)
	})
}

func withMigrations(log *slog.Logger, cfg Config, fn func(migrate.Config) error) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	return fn(migrate.Config{
		Logger:  log,
		Dialect: goose.DialectPostgres,
		DB:      db,
		FS:      etl.PostgresMigrationsFS,
		Dir:     etl.PostgresMigrationsDir,
	})
}
