package clickhousetesting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tcch "github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"github.com/malbeclabs/orderlake/etl/pkg/clickhouse"
	"github.com/malbeclabs/orderlake/utils/pkg/retry"
)

type DBConfig struct {
	Database       string
	Username       string
	Password       string
	Port           string
	ContainerImage string
}

func (cfg *DBConfig) Validate() error {
	if cfg.Database == "" {
		cfg.Database = "test"
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}
	if cfg.Password == "" {
		cfg.Password = "password"
	}
	if cfg.Port == "" {
		cfg.Port = "9000"
	}
	if cfg.ContainerImage == "" {
		cfg.ContainerImage = "clickhouse/clickhouse-server:latest"
	}
	return nil
}

// DB is a ClickHouse container shared by the tests of one package. Each test
// gets its own randomly named database inside it.
type DB struct {
	log       *slog.Logger
	cfg       *DBConfig
	addr      string
	container *tcch.ClickHouseContainer
}

func (db *DB) Addr() string {
	return db.addr
}

// Config returns client settings for the given database in the container.
func (db *DB) Config(database string) clickhouse.Config {
	return clickhouse.Config{
		Addr:     db.addr,
		Database: database,
		Username: db.cfg.Username,
		Password: db.cfg.Password,
	}
}

func (db *DB) Close() {
	terminateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.container.Terminate(terminateCtx); err != nil {
		db.log.Error("failed to terminate ClickHouse container", "error", err)
	}
}

func NewDB(ctx context.Context, log *slog.Logger, cfg *DBConfig) (*DB, error) {
	if cfg == nil {
		cfg = &DBConfig{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate DB config: %w", err)
	}

	var container *tcch.ClickHouseContainer
	err := retry.Do(ctx, containerRetry(), func() error {
		var err error
		container, err = tcch.Run(ctx,
			cfg.ContainerImage,
			tcch.WithDatabase(cfg.Database),
			tcch.WithUsername(cfg.Username),
			tcch.WithPassword(cfg.Password),
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start ClickHouse container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get ClickHouse container host: %w", err)
	}

	mappedPort, err := container.MappedPort(ctx, nat.Port(cfg.Port+"/tcp"))
	if err != nil {
		return nil, fmt.Errorf("failed to get ClickHouse container mapped port: %w", err)
	}

	return &DB{
		log:       log,
		cfg:       cfg,
		addr:      fmt.Sprintf("%s:%s", host, mappedPort.Port()),
		container: container,
	}, nil
}

// TestClient is a client bound to a fresh database that is dropped when the
// test finishes.
type TestClient struct {
	Client   clickhouse.Client
	Database string
	Config   clickhouse.Config
}

func NewTestClient(t *testing.T, db *DB) *TestClient {
	t.Helper()

	admin := connect(t, db, db.cfg.Database)
	adminConn, err := admin.Conn(t.Context())
	require.NoError(t, err)

	database := "test_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	require.NoError(t, clickhouse.CreateDatabase(t.Context(), db.log, adminConn, database))

	client := connect(t, db, database)
	t.Cleanup(func() {
		dropCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := adminConn.Exec(dropCtx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", database)); err != nil {
			db.log.Error("failed to drop test database", "database", database, "error", err)
		}
		client.Close()
		admin.Close()
	})

	return &TestClient{Client: client, Database: database, Config: db.Config(database)}
}

// NewMigratedTestClient is NewTestClient with the star schema migrations
// applied.
func NewMigratedTestClient(t *testing.T, db *DB) *TestClient {
	t.Helper()
	tc := NewTestClient(t, db)
	require.NoError(t, clickhouse.Up(t.Context(), db.log, tc.Config))
	return tc
}

func NewTestConn(t *testing.T, db *DB) clickhouse.Connection {
	t.Helper()
	tc := NewTestClient(t, db)
	conn, err := tc.Client.Conn(t.Context())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// connect retries because the server may refuse connections for a moment
// after the container reports ready.
func connect(t *testing.T, db *DB, database string) clickhouse.Client {
	t.Helper()
	var client clickhouse.Client
	cfg := retry.DefaultConfig()
	err := retry.Do(t.Context(), cfg, func() error {
		var err error
		client, err = clickhouse.NewClient(t.Context(), db.log, db.Config(database))
		return err
	})
	require.NoError(t, err)
	return client
}

func containerRetry() retry.Config {
	return retry.Config{
		MaxAttempts: 3,
		BaseBackoff: 750 * time.Millisecond,
		MaxBackoff:  3 * time.Second,
	}
}
