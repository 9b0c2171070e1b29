package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/malbeclabs/orderlake/etl/pkg/clickhouse"
)

var dimensionInternalCols = []string{"run_id", "key_hash", "ingested_at"}

// DimensionDataset writes the entities of one dimension for a run into
// dim_<name>.
type DimensionDataset struct {
	log    *slog.Logger
	schema DimensionSchema

	idCol       string
	keyCols     []string
	payloadCols []string
}

func NewDimensionDataset(log *slog.Logger, schema DimensionSchema) (*DimensionDataset, error) {
	idCol, err := extractColumnName(schema.IDColumn())
	if err != nil {
		return nil, fmt.Errorf("failed to extract id column: %w", err)
	}
	keyCols, err := extractColumnNames(schema.NaturalKeyColumns())
	if err != nil {
		return nil, fmt.Errorf("failed to extract natural key columns: %w", err)
	}
	if len(keyCols) == 0 {
		return nil, fmt.Errorf("dimension %q has no natural key columns", schema.Name())
	}
	payloadCols, err := extractColumnNames(schema.PayloadColumns())
	if err != nil {
		return nil, fmt.Errorf("failed to extract payload columns: %w", err)
	}
	return &DimensionDataset{
		log:         log,
		schema:      schema,
		idCol:       idCol,
		keyCols:     keyCols,
		payloadCols: payloadCols,
	}, nil
}

func (d *DimensionDataset) Name() string {
	return d.schema.Name()
}

func (d *DimensionDataset) TableName() string {
	return "dim_" + d.schema.Name()
}

func (d *DimensionDataset) IDColumn() string {
	return d.idCol
}

// RowColumns returns the columns a row callback provides, in order: the id,
// the natural key, then the payload.
func (d *DimensionDataset) RowColumns() []string {
	return slices.Concat([]string{d.idCol}, d.keyCols, d.payloadCols)
}

// AllColumns returns the insert column list, internal columns first.
func (d *DimensionDataset) AllColumns() []string {
	return slices.Concat(dimensionInternalCols, d.RowColumns())
}

// WriteBatch inserts count entities. writeRowFn returns the values for
// RowColumns; key_hash is derived from the natural key values.
func (d *DimensionDataset) WriteBatch(
	ctx context.Context,
	conn clickhouse.Connection,
	count int,
	writeRowFn func(int) ([]any, error),
	cfg *WriteConfig,
) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("failed to validate write config: %w", err)
	}

	rowWidth := 1 + len(d.keyCols) + len(d.payloadCols)
	return writeBatch(ctx, d.log, conn, d.TableName(), d.AllColumns(), count, func(i int) ([]any, error) {
		row, err := writeRowFn(i)
		if err != nil {
			return nil, err
		}
		if len(row) != rowWidth {
			return nil, fmt.Errorf("row %d has %d columns, expected exactly %d", i, len(row), rowWidth)
		}
		keyHash := NaturalKey(row[1 : 1+len(d.keyCols)]).Hash()
		return slices.Concat([]any{cfg.RunID, keyHash, cfg.IngestedAt}, row), nil
	})
}

// CountRun returns how many rows the run has in the dimension table.
func (d *DimensionDataset) CountRun(ctx context.Context, conn clickhouse.Connection, runID uuid.UUID) (uint64, error) {
	return countRun(ctx, conn, d.TableName(), runID)
}
