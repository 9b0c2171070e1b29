package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/malbeclabs/orderlake/etl/pkg/clickhouse"
)

type WriteConfig struct {
	RunID      uuid.UUID
	IngestedAt time.Time
}

func (c *WriteConfig) Validate() error {
	if c == nil {
		return errors.New("write config is required")
	}
	if c.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if c.IngestedAt.IsZero() {
		c.IngestedAt = time.Now().UTC()
	}
	// DateTime64(3) precision.
	c.IngestedAt = c.IngestedAt.Truncate(time.Millisecond)
	return nil
}

func insertQuery(table string, cols []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s)", table, strings.Join(cols, ", "))
}

// writeBatch appends count rows to a single PrepareBatch insert with an
// explicit column list.
func writeBatch(
	ctx context.Context,
	log *slog.Logger,
	conn clickhouse.Connection,
	table string,
	cols []string,
	count int,
	rowFn func(int) ([]any, error),
) error {
	if count == 0 {
		return nil
	}

	log.Debug("dataset: writing batch", "table", table, "count", count)

	batch, err := conn.PrepareBatch(ctx, insertQuery(table, cols))
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	defer batch.Close()

	for i := range count {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled during batch insert: %w", err)
		}

		row, err := rowFn(i)
		if err != nil {
			return fmt.Errorf("failed to get row data %d: %w", i, err)
		}
		if err := batch.Append(row...); err != nil {
			return fmt.Errorf("failed to append row %d: %w", i, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Debug("dataset: wrote batch", "table", table, "count", count)
	return nil
}
