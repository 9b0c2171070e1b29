package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/malbeclabs/orderlake/utils/pkg/retry"
)

type PostgresStoreConfig struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
	Pool   *pgxpool.Pool
	Retry  retry.Config
}

func (cfg *PostgresStoreConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Pool == nil {
		return errors.New("postgres pool is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return nil
}

// PostgresStore writes runs into the relational star schema, where primary
// and foreign keys enforce uniqueness and referential integrity.
type PostgresStore struct {
	log *slog.Logger
	cfg PostgresStoreConfig
}

func NewPostgresStore(cfg PostgresStoreConfig) (*PostgresStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PostgresStore{log: cfg.Logger, cfg: cfg}, nil
}

func (s *PostgresStore) Name() string {
	return "postgres"
}

type copyTable struct {
	name string
	cols []string
	rows [][]any
}

// Write replaces any earlier copy of the run and bulk loads every table in a
// single transaction, so a failed attempt leaves nothing behind.
func (s *PostgresStore) Write(ctx context.Context, source string, res *Result) error {
	runID := pgUUID(res)
	d := res.Model.Dimensions
	tables := []copyTable{
		{
			name: "dim_location",
			cols: []string{"run_id", "location_id", "state", "city", "location"},
			rows: dimensionRows(d.Locations, func(id int64, k LocationKey) []any {
				return []any{runID, id, k.State, k.City, k.Location}
			}),
		},
		{
			name: "dim_restaurant",
			cols: []string{"run_id", "restaurant_id", "restaurant_name"},
			rows: dimensionRows(d.Restaurants, func(id int64, k RestaurantKey) []any { return []any{runID, id, k.Name} }),
		},
		{
			name: "dim_category",
			cols: []string{"run_id", "category_id", "category_name"},
			rows: dimensionRows(d.Categories, func(id int64, k CategoryKey) []any { return []any{runID, id, k.Name} }),
		},
		{
			name: "dim_dish",
			cols: []string{"run_id", "dish_id", "dish_name"},
			rows: dimensionRows(d.Dishes, func(id int64, k DishKey) []any { return []any{runID, id, k.Name} }),
		},
		{
			name: "fact_orders",
			cols: []string{"run_id", "order_id", "location_id", "restaurant_id", "category_id", "dish_id", "price", "rating", "rating_count", "order_date"},
			rows: pgFactRows(runID, res.Model.Facts),
		},
	}

	cfg := s.cfg.Retry
	cfg.Retryable = pgRetryable
	cfg.OnRetry = func(attempt int, err error) {
		s.log.Warn("postgres store: retrying write", "run_id", res.RunID, "attempt", attempt, "error", err)
	}
	err := retry.Do(ctx, cfg, func() error {
		return pgx.BeginFunc(ctx, s.cfg.Pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, "DELETE FROM etl_runs WHERE run_id = $1", runID); err != nil {
				return fmt.Errorf("failed to clear earlier run: %w", err)
			}
			v := res.Validation
			_, err := tx.Exec(ctx,
				`INSERT INTO etl_runs (run_id, source, started_at, finished_at, total_records, valid_records, invalid_records, duplicate_records)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				runID, source, res.StartedAt, res.FinishedAt,
				v.TotalRecords, v.ValidRecords, v.InvalidRecords, v.DuplicateRecords,
			)
			if err != nil {
				return fmt.Errorf("failed to insert run record: %w", err)
			}
			for _, t := range tables {
				n, err := tx.CopyFrom(ctx, pgx.Identifier{t.name}, t.cols, pgx.CopyFromRows(t.rows))
				if err != nil {
					return fmt.Errorf("failed to copy %s: %w", t.name, err)
				}
				s.log.Debug("postgres store: copied rows", "table", t.name, "rows", n)
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("failed to write run: %w", err)
	}
	return nil
}

// Verify compares per-table row counts with the model and checks every fact
// reference with an anti-join, independent of the foreign keys.
func (s *PostgresStore) Verify(ctx context.Context, res *Result) error {
	runID := pgUUID(res)
	for table, want := range expectedCounts(res) {
		var have int64
		err := s.cfg.Pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s WHERE run_id = $1", pgx.Identifier{table}.Sanitize()), runID).Scan(&have)
		if err != nil {
			return fmt.Errorf("failed to count %s rows: %w", table, err)
		}
		if have != int64(want) {
			return fmt.Errorf("%w: %s has %d rows, expected %d", ErrVerificationFailed, table, have, want)
		}
	}

	for _, kind := range Kinds {
		dimTable := pgx.Identifier{"dim_" + string(kind)}.Sanitize()
		idCol := pgx.Identifier{string(kind) + "_id"}.Sanitize()
		query := fmt.Sprintf(
			`SELECT count(*) FROM fact_orders f
			LEFT JOIN %s d ON d.run_id = f.run_id AND d.%s = f.%s
			WHERE f.run_id = $1 AND d.run_id IS NULL`,
			dimTable, idCol, idCol,
		)
		var orphans int64
		if err := s.cfg.Pool.QueryRow(ctx, query, runID).Scan(&orphans); err != nil {
			return fmt.Errorf("failed to check %s references: %w", kind, err)
		}
		if orphans > 0 {
			return fmt.Errorf("%w: %d facts reference missing %s rows", ErrVerificationFailed, orphans, kind)
		}
	}
	return nil
}

// pgRetryable treats connection exceptions, serialization failures, deadlocks
// and server overload as transient. Other server errors, such as constraint
// violations, fail immediately.
func pgRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return retry.IsRetryable(err)
	}
	switch {
	case strings.HasPrefix(pgErr.Code, "08"):
		return true
	case pgErr.Code == "40001", pgErr.Code == "40P01":
		return true
	case pgErr.Code == "53300", pgErr.Code == "57P03":
		return true
	}
	return false
}

func pgUUID(res *Result) pgtype.UUID {
	return pgtype.UUID{Bytes: res.RunID, Valid: true}
}

func pgNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func pgFactRows(runID pgtype.UUID, facts []Fact) [][]any {
	rows := make([][]any, len(facts))
	for i, f := range facts {
		var rating pgtype.Numeric
		if f.Rating.Valid {
			rating = pgNumeric(f.Rating.Decimal)
		}
		rows[i] = []any{
			runID,
			OrderID(i),
			f.LocationID,
			f.RestaurantID,
			f.CategoryID,
			f.DishID,
			pgNumeric(f.Price),
			rating,
			pgtype.Int8{Int64: f.RatingCount.Int64, Valid: f.RatingCount.Valid},
			pgtype.Date{Time: f.OrderDate, Valid: true},
		}
	}
	return rows
}
