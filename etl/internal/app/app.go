// Package app runs one batch: load the source, build the star schema, compute
// the reports, persist to the configured sinks and write the JSON result.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/malbeclabs/orderlake/etl/pkg/clickhouse"
	"github.com/malbeclabs/orderlake/etl/pkg/metrics"
	"github.com/malbeclabs/orderlake/etl/pkg/orders"
	"github.com/malbeclabs/orderlake/etl/pkg/postgres"
	"github.com/malbeclabs/orderlake/etl/pkg/reports"
	"github.com/malbeclabs/orderlake/etl/pkg/source"
)

const pushJob = "orderlake"

type Config struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
	Out    io.Writer

	Source string
	Format source.Format
	Sheet  string

	// AWSRegion overrides the region from the default AWS config chain for
	// s3:// sources.
	AWSRegion string
	// S3 replaces the client built from the AWS config, mainly for tests.
	S3 source.ObjectGetter

	// ClickHouse is used when Addr is set.
	ClickHouse        clickhouse.Config
	ClickHouseMigrate bool
	// Postgres is used when DSN is set.
	Postgres        postgres.Config
	PostgresMigrate bool

	PushgatewayURL string
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Out == nil {
		return errors.New("output writer is required")
	}
	if cfg.Source == "" {
		return errors.New("source is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Output is the JSON document written on success.
type Output struct {
	RunID      uuid.UUID                `json:"run_id"`
	Source     string                   `json:"source"`
	Validation orders.ValidationSummary `json:"validation"`
	Reports    *reports.Reports         `json:"reports"`
}

func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := cfg.Logger

	s3Client, err := s3ClientFor(ctx, cfg)
	if err != nil {
		return err
	}

	ds, err := source.Open(ctx, cfg.Source, source.OpenConfig{
		Logger: log,
		Format: cfg.Format,
		Sheet:  cfg.Sheet,
		S3:     s3Client,
	})
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer ds.Close()

	pipeline, err := orders.NewPipeline(orders.PipelineConfig{Logger: log, Clock: cfg.Clock})
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	res, err := pipeline.Run(ctx, ds)
	if err != nil {
		return err
	}

	rep, err := reports.Compute(ctx, res.Model)
	if err != nil {
		return fmt.Errorf("failed to compute reports: %w", err)
	}

	sinks, closeSinks, err := openSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSinks()
	if err := orders.Persist(ctx, log, sinks, cfg.Source, res); err != nil {
		return err
	}

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(ctx, cfg.PushgatewayURL, pushJob, map[string]string{"run_id": res.RunID.String()}); err != nil {
			log.Warn("app: failed to push metrics", "url", cfg.PushgatewayURL, "error", err)
		}
	}

	enc := json.NewEncoder(cfg.Out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Output{
		RunID:      res.RunID,
		Source:     cfg.Source,
		Validation: res.Validation,
		Reports:    rep,
	}); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func s3ClientFor(ctx context.Context, cfg Config) (source.ObjectGetter, error) {
	if cfg.S3 != nil || !strings.HasPrefix(cfg.Source, "s3://") {
		return cfg.S3, nil
	}
	var opts []func(*config.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, config.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// openSinks connects the configured sinks, applying migrations first when
// asked. The returned func releases every connection.
func openSinks(ctx context.Context, cfg Config) ([]orders.Sink, func(), error) {
	log := cfg.Logger
	var (
		sinks   []orders.Sink
		closers []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.ClickHouse.Addr != "" {
		if cfg.ClickHouseMigrate {
			if err := clickhouse.Up(ctx, log, cfg.ClickHouse); err != nil {
				return nil, closeAll, fmt.Errorf("failed to migrate clickhouse: %w", err)
			}
		}
		client, err := clickhouse.NewClient(ctx, log, cfg.ClickHouse)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { client.Close() })
		store, err := orders.NewClickHouseStore(orders.ClickHouseStoreConfig{Logger: log, Clock: cfg.Clock, ClickHouse: client})
		if err != nil {
			return nil, closeAll, err
		}
		sinks = append(sinks, store)
	}

	if cfg.Postgres.DSN != "" {
		if cfg.PostgresMigrate {
			if err := postgres.Up(ctx, log, cfg.Postgres); err != nil {
				return nil, closeAll, fmt.Errorf("failed to migrate postgres: %w", err)
			}
		}
		pool, err := postgres.NewPool(ctx, log, cfg.Postgres)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, pool.Close)
		store, err := orders.NewPostgresStore(orders.PostgresStoreConfig{Logger: log, Clock: cfg.Clock, Pool: pool})
		if err != nil {
			return nil, closeAll, err
		}
		sinks = append(sinks, store)
	}

	if len(sinks) == 0 {
		log.Info("app: no sinks configured, results are written to output only")
	}
	return sinks, closeAll, nil
}
