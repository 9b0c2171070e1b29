package dataset

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/malbeclabs/orderlake/etl/pkg/clickhouse"
)

// Count runs a query returning a single count() value.
func Count(ctx context.Context, conn clickhouse.Connection, query string, args ...any) (uint64, error) {
	var n uint64
	if err := conn.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to execute count query: %w", err)
	}
	return n, nil
}

func countRun(ctx context.Context, conn clickhouse.Connection, table string, runID uuid.UUID) (uint64, error) {
	return Count(ctx, conn, fmt.Sprintf("SELECT count() FROM %s WHERE run_id = ?", table), runID.String())
}

// CountOrphans returns how many facts of the run reference an id that is
// missing from the dimension table. The fact table must carry the dimension's
// id column under the same name.
func CountOrphans(ctx context.Context, conn clickhouse.Connection, fact *FactDataset, dim *DimensionDataset, runID uuid.UUID) (uint64, error) {
	query := fmt.Sprintf(
		"SELECT count() FROM %s WHERE run_id = ? AND %s NOT IN (SELECT %s FROM %s WHERE run_id = ?)",
		fact.TableName(), dim.IDColumn(), dim.IDColumn(), dim.TableName(),
	)
	return Count(ctx, conn, query, runID.String(), runID.String())
}
