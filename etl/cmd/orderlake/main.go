package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	flag "github.com/spf13/pflag"

	"github.com/malbeclabs/orderlake/etl/internal/app"
	"github.com/malbeclabs/orderlake/etl/pkg/clickhouse"
	"github.com/malbeclabs/orderlake/etl/pkg/metrics"
	"github.com/malbeclabs/orderlake/etl/pkg/postgres"
	"github.com/malbeclabs/orderlake/etl/pkg/source"
	"github.com/malbeclabs/orderlake/utils/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment and flags still apply.
	_ = godotenv.Load()

	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	sourceFlag := flag.String("source", "", "dataset path or s3://bucket/key (or set ORDERLAKE_SOURCE env var)")
	formatFlag := flag.String("format", "auto", "source format: auto, csv or xlsx")
	sheetFlag := flag.String("sheet", "", "worksheet to read from an xlsx source (default: first sheet)")
	awsRegionFlag := flag.String("aws-region", "", "AWS region for s3:// sources (or set AWS_REGION env var)")

	// ClickHouse configuration
	clickhouseAddrFlag := flag.String("clickhouse-addr", "", "ClickHouse address (host:port) (or set CLICKHOUSE_ADDR_TCP env var)")
	clickhouseDatabaseFlag := flag.String("clickhouse-database", "default", "ClickHouse database name (or set CLICKHOUSE_DATABASE env var)")
	clickhouseUsernameFlag := flag.String("clickhouse-username", "default", "ClickHouse username (or set CLICKHOUSE_USERNAME env var)")
	clickhousePasswordFlag := flag.String("clickhouse-password", "", "ClickHouse password (or set CLICKHOUSE_PASSWORD env var)")
	clickhouseSecureFlag := flag.Bool("clickhouse-secure", false, "Enable TLS for ClickHouse Cloud (or set CLICKHOUSE_SECURE=true env var)")
	clickhouseMigrateFlag := flag.Bool("clickhouse-migrate", false, "apply ClickHouse migrations before writing")

	// Postgres configuration
	postgresDSNFlag := flag.String("postgres-dsn", "", "Postgres connection string (or set POSTGRES_DSN env var)")
	postgresMigrateFlag := flag.Bool("postgres-migrate", false, "apply Postgres migrations before writing")

	pushgatewayURLFlag := flag.String("pushgateway-url", "", "Prometheus Pushgateway URL (or set PUSHGATEWAY_URL env var)")
	sentryDSNFlag := flag.String("sentry-dsn", "", "Sentry DSN for error reporting (or set SENTRY_DSN env var)")
	timeoutFlag := flag.Duration("timeout", 30*time.Minute, "maximum duration of the run")

	flag.Parse()

	overrideString(sourceFlag, "ORDERLAKE_SOURCE")
	overrideString(awsRegionFlag, "AWS_REGION")
	overrideString(clickhouseAddrFlag, "CLICKHOUSE_ADDR_TCP")
	overrideString(clickhouseDatabaseFlag, "CLICKHOUSE_DATABASE")
	overrideString(clickhouseUsernameFlag, "CLICKHOUSE_USERNAME")
	overrideString(clickhousePasswordFlag, "CLICKHOUSE_PASSWORD")
	if os.Getenv("CLICKHOUSE_SECURE") == "true" {
		*clickhouseSecureFlag = true
	}
	overrideString(postgresDSNFlag, "POSTGRES_DSN")
	overrideString(pushgatewayURLFlag, "PUSHGATEWAY_URL")
	overrideString(sentryDSNFlag, "SENTRY_DSN")

	log := logger.New(os.Stderr, *verboseFlag)
	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	if *sourceFlag == "" {
		return errors.New("--source is required")
	}
	format, err := source.ParseFormat(*formatFlag)
	if err != nil {
		return err
	}

	if *sentryDSNFlag != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:     *sentryDSNFlag,
			Release: version,
		}); err != nil {
			log.Warn("failed to initialize sentry", "error", err)
		} else {
			defer sentry.Flush(5 * time.Second)
		}
	}

	// Reports carry money and ratings; emit them as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeoutFlag)
	defer cancelTimeout()

	err = app.Run(ctx, app.Config{
		Logger:    log,
		Out:       os.Stdout,
		Source:    *sourceFlag,
		Format:    format,
		Sheet:     *sheetFlag,
		AWSRegion: *awsRegionFlag,
		ClickHouse: clickhouse.Config{
			Addr:     *clickhouseAddrFlag,
			Database: *clickhouseDatabaseFlag,
			Username: *clickhouseUsernameFlag,
			Password: *clickhousePasswordFlag,
			Secure:   *clickhouseSecureFlag,
		},
		ClickHouseMigrate: *clickhouseMigrateFlag,
		Postgres:          postgres.Config{DSN: *postgresDSNFlag},
		PostgresMigrate:   *postgresMigrateFlag,
		PushgatewayURL:    *pushgatewayURLFlag,
	})
	if err != nil {
		log.Error("run failed", "source", *sourceFlag, "error", err)
		if *sentryDSNFlag != "" {
			sentry.CaptureException(err)
		}
		return err
	}
	return nil
}

func overrideString(flagValue *string, env string) {
	if v := os.Getenv(env); v != "" {
		*flagValue = v
	}
}
