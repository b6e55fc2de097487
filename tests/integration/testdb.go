// Package integration runs the gateway against real PostgreSQL and Redis
// containers started with testcontainers.
package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
	"github.com/erp/marketplace-gateway/internal/infrastructure/migration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/persistence"
)

var (
	sharedPostgres   *tcpostgres.PostgresContainer
	sharedPostgresMu sync.Mutex
)

// TestDB is a migrated database on the shared PostgreSQL container
type TestDB struct {
	*persistence.Database
	t *testing.T
}

// NewTestDB returns a connection to a freshly migrated database. Each test
// gets its own database on the shared container so tests can run in parallel.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()
	container := postgresContainer(t)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	admin := &config.DatabaseConfig{
		Driver: "postgres", Host: host, Port: port.Int(),
		User: "postgres", Password: "postgres", DBName: "gateway", SSLMode: "disable",
		MaxOpenConns: 2, MaxIdleConns: 1,
	}
	adminDB, err := persistence.NewDatabase(admin)
	require.NoError(t, err)
	name := fmt.Sprintf("test_%d", time.Now().UnixNano())
	require.NoError(t, adminDB.DB.Exec("CREATE DATABASE "+name).Error)
	require.NoError(t, adminDB.Close())

	cfg := *admin
	cfg.DBName = name
	cfg.MaxOpenConns = 10
	cfg.MaxIdleConns = 5
	db, err := persistence.NewDatabase(&cfg)
	require.NoError(t, err, "Failed to connect to test database")

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	m, err := migration.New(sqlDB, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Up(), "Failed to run migrations")

	t.Cleanup(func() {
		_ = db.Close()
	})
	return &TestDB{Database: db, t: t}
}

// CleanTables empties every integration table
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	for _, table := range []string{
		"webhook_events", "order_records", "product_sync_records", "stock_levels",
		"webhook_logs", "notifications", "api_request_logs",
	} {
		require.NoError(tdb.t, tdb.DB.Exec("TRUNCATE TABLE "+table).Error)
	}
}

func postgresContainer(t *testing.T) *tcpostgres.PostgresContainer {
	t.Helper()
	sharedPostgresMu.Lock()
	defer sharedPostgresMu.Unlock()

	if sharedPostgres != nil {
		return sharedPostgres
	}
	container, err := tcpostgres.Run(context.Background(),
		"postgres:16-alpine",
		tcpostgres.WithDatabase("gateway"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	sharedPostgres = container
	return container
}

// NewTestRedis starts a Redis container for the calling test
func NewTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	require.NoError(t, client.Ping(ctx).Err())
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

// CleanupSharedContainer terminates the shared PostgreSQL container
func CleanupSharedContainer() {
	sharedPostgresMu.Lock()
	defer sharedPostgresMu.Unlock()
	if sharedPostgres != nil {
		_ = sharedPostgres.Terminate(context.Background())
		sharedPostgres = nil
	}
}
