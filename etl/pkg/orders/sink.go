package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/malbeclabs/orderlake/etl/pkg/metrics"
)

// ErrVerificationFailed means a sink's stored copy of a run does not match
// the in-memory model.
var ErrVerificationFailed = errors.New("sink verification failed")

// Sink persists the star schema of a run.
type Sink interface {
	Name() string
	// Write stores the run. Writing the same run again must not duplicate it.
	Write(ctx context.Context, source string, res *Result) error
	// Verify checks row counts and referential integrity of the stored run.
	Verify(ctx context.Context, res *Result) error
}

// Persist writes and verifies res in every sink, in order, stopping at the
// first failure.
func Persist(ctx context.Context, log *slog.Logger, sinks []Sink, source string, res *Result) error {
	for _, s := range sinks {
		start := time.Now()
		err := s.Write(ctx, source, res)
		if err == nil {
			err = s.Verify(ctx, res)
		}
		metrics.SinkWriteDuration.WithLabelValues(s.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.SinkWritesTotal.WithLabelValues(s.Name(), "error").Inc()
			return fmt.Errorf("failed to persist run to %s: %w", s.Name(), err)
		}
		metrics.SinkWritesTotal.WithLabelValues(s.Name(), "success").Inc()
		log.Info("sink: run persisted", "sink", s.Name(), "run_id", res.RunID, "facts", len(res.Model.Facts), "duration", time.Since(start))
	}
	return nil
}

// expectedCounts returns the row count each table should hold for res.
func expectedCounts(res *Result) map[string]int {
	d := res.Model.Dimensions
	return map[string]int{
		"dim_" + string(KindLocation):   d.Locations.Len(),
		"dim_" + string(KindRestaurant): d.Restaurants.Len(),
		"dim_" + string(KindCategory):   d.Categories.Len(),
		"dim_" + string(KindDish):       d.Dishes.Len(),
		"fact_orders":                   len(res.Model.Facts),
	}
}
