package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/malbeclabs/orderlake/etl/pkg/clickhouse"
)

var factInternalCols = []string{"run_id", "ingested_at"}

// FactDataset writes the facts of a run into fact_<name>.
type FactDataset struct {
	log    *slog.Logger
	schema FactSchema
	cols   []string
}

func NewFactDataset(log *slog.Logger, schema FactSchema) (*FactDataset, error) {
	cols, err := extractColumnNames(schema.Columns())
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("fact %q has no columns", schema.Name())
	}
	return &FactDataset{
		log:    log,
		schema: schema,
		cols:   cols,
	}, nil
}

func (f *FactDataset) TableName() string {
	return "fact_" + f.schema.Name()
}

func (f *FactDataset) Columns() []string {
	return f.cols
}

func (f *FactDataset) AllColumns() []string {
	return slices.Concat(factInternalCols, f.cols)
}

// WriteBatch inserts count facts. writeRowFn returns values in Columns order.
func (f *FactDataset) WriteBatch(
	ctx context.Context,
	conn clickhouse.Connection,
	count int,
	writeRowFn func(int) ([]any, error),
	cfg *WriteConfig,
) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("failed to validate write config: %w", err)
	}

	return writeBatch(ctx, f.log, conn, f.TableName(), f.AllColumns(), count, func(i int) ([]any, error) {
		row, err := writeRowFn(i)
		if err != nil {
			return nil, err
		}
		if len(row) != len(f.cols) {
			return nil, fmt.Errorf("row %d has %d columns, expected exactly %d", i, len(row), len(f.cols))
		}
		return slices.Concat([]any{cfg.RunID, cfg.IngestedAt}, row), nil
	})
}

func (f *FactDataset) CountRun(ctx context.Context, conn clickhouse.Connection, runID uuid.UUID) (uint64, error) {
	return countRun(ctx, conn, f.TableName(), runID)
}
