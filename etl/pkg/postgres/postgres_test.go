package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/orderlake/etl/pkg/postgres"
	postgrestesting "github.com/malbeclabs/orderlake/etl/pkg/postgres/testing"
	laketesting "github.com/malbeclabs/orderlake/utils/pkg/testing"
)

var sharedDB *postgrestesting.DB

func TestMain(m *testing.M) {
	log := laketesting.NewLogger()
	var err error
	sharedDB, err = postgrestesting.NewDB(context.Background(), log, nil)
	if err != nil {
		log.Warn("postgres container unavailable, integration tests will be skipped", "error", err)
		sharedDB = nil
	}
	code := m.Run()
	if sharedDB != nil {
		sharedDB.Close()
	}
	os.Exit(code)
}

func TestOrderLake_Postgres_ConfigValidate(t *testing.T) {
	t.Parallel()

	require.ErrorContains(t, (&postgres.Config{}).Validate(), "dsn is required")

	cfg := postgres.Config{DSN: "postgres://localhost/orders"}
	require.NoError(t, cfg.Validate())
	require.Equal(t, int32(10), cfg.MaxConns)
	require.Equal(t, int32(1), cfg.MinConns)
}

func TestOrderLake_Postgres_Migrations(t *testing.T) {
	t.Parallel()
	if sharedDB == nil {
		t.Skip("postgres container unavailable")
	}

	tdb := postgrestesting.NewTestDatabase(t, sharedDB)
	ctx := t.Context()

	tables := []string{"etl_runs", "dim_location", "dim_restaurant", "dim_category", "dim_dish", "fact_orders"}
	for _, table := range tables {
		var exists bool
		err := tdb.Pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&exists)
		require.NoError(t, err)
		require.True(t, exists, table)
	}

	t.Run("up is idempotent", func(t *testing.T) {
		require.NoError(t, postgres.Up(ctx, laketesting.NewLogger(), tdb.Config))
	})

	t.Run("reset drops the schema", func(t *testing.T) {
		require.NoError(t, postgres.Reset(ctx, laketesting.NewLogger(), tdb.Config))
		var exists bool
		err := tdb.Pool.QueryRow(ctx, "SELECT to_regclass('fact_orders') IS NOT NULL").Scan(&exists)
		require.NoError(t, err)
		require.False(t, exists)
	})
}
