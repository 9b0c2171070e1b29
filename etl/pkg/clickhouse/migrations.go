package clickhouse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pressly/goose/v3"

	"github.com/malbeclabs/orderlake/etl"
	"github.com/malbeclabs/orderlake/utils/pkg/migrate"
)

func CreateDatabase(ctx context.Context, log *slog.Logger, conn Connection, database string) error {
	log.Info("clickhouse: creating database", "database", database)
	return conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database))
}

// Up applies all pending star schema migrations.
func Up(ctx context.Context, log *slog.Logger, cfg Config) error {
	return withMigrations(log, cfg, func(mcfg migrate.Config) error {
		_, err := migrate.Up(ctx, mcfg)
		return err
	})
}

// Reset rolls back every migration, dropping the star schema tables.
func Reset(ctx context.Context, log *slog.Logger, cfg Config) error {
	return withMigrations(log, cfg, func(mcfg migrate.Config) error {
		return migrate.Reset(ctx, mcfg)
	})
}

// MigrationVersion returns the applied schema version.
func MigrationVersion(ctx context.Context, log *slog.Logger, cfg Config) (int64, error) {
	var version int64
	err := withMigrations(log, cfg, func(mcfg migrate.Config) error {
		var err error
		version, err = migrate.Version(ctx, mcfg)
		return err
	})
	return version, err
}

// withMigrations opens a database/sql handle for goose and closes it after fn.
func withMigrations(log *slog.Logger, cfg Config, fn func(migrate.Config) error) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	db := clickhouse.OpenDB(cfg.options())
	defer db.Close()

	return fn(migrate.Config{
		Logger:  log,
		Dialect: goose.DialectClickHouse,
		DB:      db,
		FS:      etl.ClickHouseMigrationsFS,
		Dir:     etl.ClickHouseMigrationsDir,
	})
}
