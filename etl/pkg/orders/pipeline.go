package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/malbeclabs/orderlake/etl/pkg/metrics"
	"github.com/malbeclabs/orderlake/etl/pkg/source"
)

// cancelCheckInterval is how many records are processed between context
// checks while reading the source.
const cancelCheckInterval = 1024

type PipelineConfig struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
}

func (cfg *PipelineConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Result is everything a completed run produces: the model for reporting and
// persistence, and the validation summary of the batch.
type Result struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Model      *Model
	Validation ValidationSummary
}

// Pipeline runs load, normalize, build and link in sequence over one source.
type Pipeline struct {
	log *slog.Logger
	cfg PipelineConfig
}

func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		log: cfg.Logger,
		cfg: cfg,
	}, nil
}

// Run consumes r to completion. Dimensions are built only after every record
// has been normalized, and facts are linked only after the dimensions are
// complete. Any read failure aborts the run without a partial result.
func (p *Pipeline) Run(ctx context.Context, r source.Reader) (*Result, error) {
	res, err := p.run(ctx, r)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.PipelineRunsTotal.WithLabelValues("success").Inc()
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, r source.Reader) (*Result, error) {
	runID := uuid.New()
	started := p.cfg.Clock.Now()
	log := p.log.With("run_id", runID)
	log.Info("pipeline: starting run")

	validator := NewValidator()
	var valid []NormalizedRecord
	n := 0
	for raw, err := range r.Records() {
		if err != nil {
			return nil, fmt.Errorf("failed to read record %d: %w", n+1, err)
		}
		n++
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("run cancelled after %d records: %w", n, err)
			}
		}

		rec := Normalize(raw)
		validator.Observe(rec)
		if !rec.Valid() {
			log.Debug("pipeline: excluding invalid record", "record", n, "violations", rec.Violations)
			for _, f := range rec.Violations {
				metrics.RecordsInvalidTotal.WithLabelValues(string(f)).Inc()
			}
			continue
		}
		valid = append(valid, rec)
	}
	metrics.RecordsLoadedTotal.Add(float64(n))

	dims := BuildDimensions(valid)
	for kind, size := range dims.Sizes() {
		metrics.DimensionEntities.WithLabelValues(string(kind)).Set(float64(size))
	}

	facts, err := LinkFacts(valid, dims)
	if err != nil {
		return nil, fmt.Errorf("failed to link facts: %w", err)
	}
	model := &Model{Dimensions: dims, Facts: facts}
	if err := model.Check(); err != nil {
		return nil, err
	}
	metrics.FactsLinkedTotal.Add(float64(len(facts)))

	summary := validator.Summary()
	finished := p.cfg.Clock.Now()
	metrics.PipelineRunDuration.Observe(finished.Sub(started).Seconds())

	log.Info("pipeline: run completed",
		"records", summary.TotalRecords,
		"valid", summary.ValidRecords,
		"invalid", summary.InvalidRecords,
		"duplicates", summary.DuplicateRecords,
		"locations", dims.Locations.Len(),
		"restaurants", dims.Restaurants.Len(),
		"categories", dims.Categories.Len(),
		"dishes", dims.Dishes.Len(),
		"facts", len(facts),
		"duration", finished.Sub(started),
	)

	return &Result{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: finished,
		Model:      model,
		Validation: summary,
	}, nil
}
