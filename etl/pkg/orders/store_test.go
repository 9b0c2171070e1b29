package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	clickhousetesting "github.com/malbeclabs/orderlake/etl/pkg/clickhouse/testing"
	postgrestesting "github.com/malbeclabs/orderlake/etl/pkg/postgres/testing"
	laketesting "github.com/malbeclabs/orderlake/utils/pkg/testing"
)

func TestOrderLake_Orders_StoreConfigValidate(t *testing.T) {
	t.Parallel()

	_, err := NewClickHouseStore(ClickHouseStoreConfig{})
	require.EqualError(t, err, "logger is required")
	_, err = NewClickHouseStore(ClickHouseStoreConfig{Logger: laketesting.NewLogger()})
	require.EqualError(t, err, "clickhouse client is required")

	_, err = NewPostgresStore(PostgresStoreConfig{})
	require.EqualError(t, err, "logger is required")
	_, err = NewPostgresStore(PostgresStoreConfig{Logger: laketesting.NewLogger()})
	require.EqualError(t, err, "postgres pool is required")
}

func TestOrderLake_Orders_ClickHouseStore(t *testing.T) {
	t.Parallel()
	db := requireClickHouse(t)
	tc := clickhousetesting.NewMigratedTestClient(t, db)
	ctx := t.Context()

	store, err := NewClickHouseStore(ClickHouseStoreConfig{Logger: laketesting.NewLogger(), ClickHouse: tc.Client})
	require.NoError(t, err)

	res := sampleResult(t)
	require.NoError(t, store.Write(ctx, "orders.csv", res))
	require.NoError(t, store.Verify(ctx, res))

	t.Run("rewriting a run does not duplicate it", func(t *testing.T) {
		require.NoError(t, store.Write(ctx, "orders.csv", res))
		require.NoError(t, store.Verify(ctx, res))
	})

	t.Run("stored facts keep prices and nulls", func(t *testing.T) {
		conn, err := tc.Client.Conn(ctx)
		require.NoError(t, err)
		var (
			price   decimal.Decimal
			rating  *decimal.Decimal
			dish    string
			keyHash string
		)
		err = conn.QueryRow(ctx, `
			SELECT f.price, f.rating, d.dish_name, d.key_hash
			FROM fact_orders f
			JOIN dim_dish d ON d.run_id = f.run_id AND d.dish_id = f.dish_id
			WHERE f.run_id = ? AND f.order_id = 2`, res.RunID.String()).Scan(&price, &rating, &dish, &keyHash)
		require.NoError(t, err)
		require.True(t, decimal.RequireFromString("249").Equal(price))
		require.Nil(t, rating)
		require.Equal(t, "Veg Burger", dish)
		require.Len(t, keyHash, 64)
	})

	t.Run("verify detects a run that was never written", func(t *testing.T) {
		other := sampleResult(t)
		require.ErrorIs(t, store.Verify(ctx, other), ErrVerificationFailed)
	})
}

func TestOrderLake_Orders_PostgresStore(t *testing.T) {
	t.Parallel()
	db := requirePostgres(t)
	tdb := postgrestesting.NewTestDatabase(t, db)
	ctx := t.Context()

	store, err := NewPostgresStore(PostgresStoreConfig{Logger: laketesting.NewLogger(), Pool: tdb.Pool})
	require.NoError(t, err)

	res := sampleResult(t)
	require.NoError(t, store.Write(ctx, "orders.csv", res))
	require.NoError(t, store.Verify(ctx, res))

	t.Run("rewriting a run replaces it", func(t *testing.T) {
		require.NoError(t, store.Write(ctx, "orders.csv", res))
		require.NoError(t, store.Verify(ctx, res))
	})

	t.Run("foreign keys reject a dangling fact", func(t *testing.T) {
		_, err := tdb.Pool.Exec(ctx, `
			INSERT INTO fact_orders (run_id, order_id, location_id, restaurant_id, category_id, dish_id, price, order_date)
			VALUES ($1, 999, 999, 1, 1, 1, 10, '2025-03-05')`, pgUUID(res))
		require.ErrorContains(t, err, "foreign key")
	})

	t.Run("stored facts keep prices and nulls", func(t *testing.T) {
		var (
			price  string
			rating *string
			dish   string
		)
		err := tdb.Pool.QueryRow(ctx, `
			SELECT f.price::text, f.rating::text, d.dish_name
			FROM fact_orders f
			JOIN dim_dish d ON d.run_id = f.run_id AND d.dish_id = f.dish_id
			WHERE f.run_id = $1 AND f.order_id = 3`, pgUUID(res)).Scan(&price, &rating, &dish)
		require.NoError(t, err)
		require.Equal(t, "199.5000", price)
		require.NotNil(t, rating)
		require.Equal(t, "Masala Dosa", dish)
	})

	t.Run("verify detects a run that was never written", func(t *testing.T) {
		require.ErrorIs(t, store.Verify(ctx, sampleResult(t)), ErrVerificationFailed)
	})
}
