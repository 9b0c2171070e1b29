package etl

import "embed"

//go:embed db/clickhouse/migrations/*.sql
var ClickHouseMigrationsFS embed.FS

//go:embed db/postgres/migrations/*.sql
var PostgresMigrationsFS embed.FS

const (
	ClickHouseMigrationsDir = "db/clickhouse/migrations"
	PostgresMigrationsDir   = "db/postgres/migrations"
)
