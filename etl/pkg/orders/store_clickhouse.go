package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/malbeclabs/orderlake/etl/pkg/clickhouse"
	"github.com/malbeclabs/orderlake/etl/pkg/clickhouse/dataset"
	"github.com/malbeclabs/orderlake/utils/pkg/retry"
)

type ClickHouseStoreConfig struct {
	Logger     *slog.Logger
	Clock      clockwork.Clock
	ClickHouse clickhouse.Client
	Retry      retry.Config
}

func (cfg *ClickHouseStoreConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ClickHouse == nil {
		return errors.New("clickhouse client is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return nil
}

// ClickHouseStore writes runs into the dim_* and fact_orders tables, one set
// of rows per run id.
type ClickHouseStore struct {
	log *slog.Logger
	cfg ClickHouseStoreConfig

	dims   map[Kind]*dataset.DimensionDataset
	orders *dataset.FactDataset
}

func NewClickHouseStore(cfg ClickHouseStoreConfig) (*ClickHouseStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dims := make(map[Kind]*dataset.DimensionDataset, len(Kinds))
	for _, kind := range Kinds {
		var schema dataset.DimensionSchema = nameSchema{kind: kind}
		if kind == KindLocation {
			schema = locationSchema{}
		}
		d, err := dataset.NewDimensionDataset(cfg.Logger, schema)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s dataset: %w", kind, err)
		}
		dims[kind] = d
	}
	orders, err := dataset.NewFactDataset(cfg.Logger, ordersSchema{})
	if err != nil {
		return nil, fmt.Errorf("failed to create orders dataset: %w", err)
	}

	return &ClickHouseStore{
		log:    cfg.Logger,
		cfg:    cfg,
		dims:   dims,
		orders: orders,
	}, nil
}

func (s *ClickHouseStore) Name() string {
	return "clickhouse"
}

// Write inserts the four dimensions concurrently, then the facts, then the
// run record. A table that already holds the run's rows is skipped, so a
// retried Write completes a partial one instead of duplicating it.
func (s *ClickHouseStore) Write(ctx context.Context, source string, res *Result) error {
	conn, err := s.cfg.ClickHouse.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get clickhouse connection: %w", err)
	}
	defer conn.Close()

	ctx = clickhouse.ContextWithSyncInsert(ctx)
	wcfg := &dataset.WriteConfig{RunID: res.RunID, IngestedAt: s.cfg.Clock.Now()}
	d := res.Model.Dimensions

	rows := map[Kind][][]any{
		KindLocation:   dimensionRows(d.Locations, locationRow),
		KindRestaurant: dimensionRows(d.Restaurants, func(id int64, k RestaurantKey) []any { return nameRow(id, k.Name) }),
		KindCategory:   dimensionRows(d.Categories, func(id int64, k CategoryKey) []any { return nameRow(id, k.Name) }),
		KindDish:       dimensionRows(d.Dishes, func(id int64, k DishKey) []any { return nameRow(id, k.Name) }),
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range Kinds {
		ds, kindRows := s.dims[kind], rows[kind]
		g.Go(func() error {
			return s.writeOnce(gctx, conn, ds.TableName(), len(kindRows),
				func(ctx context.Context) (uint64, error) { return ds.CountRun(ctx, conn, res.RunID) },
				func(ctx context.Context) error {
					return ds.WriteBatch(ctx, conn, len(kindRows), func(i int) ([]any, error) { return kindRows[i], nil }, wcfg)
				})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	facts := res.Model.Facts
	err = s.writeOnce(ctx, conn, s.orders.TableName(), len(facts),
		func(ctx context.Context) (uint64, error) { return s.orders.CountRun(ctx, conn, res.RunID) },
		func(ctx context.Context) error {
			return s.orders.WriteBatch(ctx, conn, len(facts), func(i int) ([]any, error) { return factRow(i, facts[i]), nil }, wcfg)
		})
	if err != nil {
		return err
	}

	return s.writeRunRecord(ctx, conn, source, res)
}

// writeOnce skips a table that already holds want rows for the run, refuses
// one holding a partial write, and otherwise writes it with retries.
func (s *ClickHouseStore) writeOnce(
	ctx context.Context,
	conn clickhouse.Connection,
	table string,
	want int,
	count func(context.Context) (uint64, error),
	write func(context.Context) error,
) error {
	have, err := count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count %s rows: %w", table, err)
	}
	switch {
	case have == uint64(want):
		if want > 0 {
			s.log.Info("clickhouse store: table already written, skipping", "table", table, "rows", have)
		}
		return nil
	case have != 0:
		return fmt.Errorf("%s holds %d of %d rows for this run from an earlier partial write", table, have, want)
	}

	if err := retry.Do(ctx, s.retryConfig(table), func() error { return write(ctx) }); err != nil {
		return fmt.Errorf("failed to write %s: %w", table, err)
	}
	return nil
}

func (s *ClickHouseStore) writeRunRecord(ctx context.Context, conn clickhouse.Connection, source string, res *Result) error {
	n, err := dataset.Count(ctx, conn, "SELECT count() FROM etl_runs WHERE run_id = ?", res.RunID.String())
	if err != nil {
		return fmt.Errorf("failed to check run record: %w", err)
	}
	if n > 0 {
		return nil
	}
	v := res.Validation
	err = retry.Do(ctx, s.retryConfig("etl_runs"), func() error {
		return conn.Exec(ctx,
			`INSERT INTO etl_runs (run_id, source, started_at, finished_at, total_records, valid_records, invalid_records, duplicate_records)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID.String(), source, res.StartedAt, res.FinishedAt,
			int64(v.TotalRecords), int64(v.ValidRecords), int64(v.InvalidRecords), int64(v.DuplicateRecords),
		)
	})
	if err != nil {
		return fmt.Errorf("failed to write run record: %w", err)
	}
	return nil
}

// Verify compares per-table row counts with the model and checks that every
// stored fact resolves in each dimension table.
func (s *ClickHouseStore) Verify(ctx context.Context, res *Result) error {
	conn, err := s.cfg.ClickHouse.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get clickhouse connection: %w", err)
	}
	defer conn.Close()

	want := expectedCounts(res)
	counters := map[string]func(context.Context, clickhouse.Connection, uuid.UUID) (uint64, error){
		s.orders.TableName(): s.orders.CountRun,
	}
	for _, d := range s.dims {
		counters[d.TableName()] = d.CountRun
	}
	for table, count := range counters {
		have, err := count(ctx, conn, res.RunID)
		if err != nil {
			return fmt.Errorf("failed to count %s rows: %w", table, err)
		}
		if have != uint64(want[table]) {
			return fmt.Errorf("%w: %s has %d rows, expected %d", ErrVerificationFailed, table, have, want[table])
		}
	}

	for _, kind := range Kinds {
		orphans, err := dataset.CountOrphans(ctx, conn, s.orders, s.dims[kind], res.RunID)
		if err != nil {
			return fmt.Errorf("failed to check %s references: %w", kind, err)
		}
		if orphans > 0 {
			return fmt.Errorf("%w: %d facts reference missing %s rows", ErrVerificationFailed, orphans, kind)
		}
	}
	return nil
}

func (s *ClickHouseStore) retryConfig(table string) retry.Config {
	cfg := s.cfg.Retry
	cfg.OnRetry = func(attempt int, err error) {
		s.log.Warn("clickhouse store: retrying write", "table", table, "attempt", attempt, "error", err)
	}
	return cfg
}
