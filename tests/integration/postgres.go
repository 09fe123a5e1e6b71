package integration

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	acmeauth "gitlab.com/acme/acme-auth"
	"gitlab.com/acme/acme-auth/internal/domain/user"
	"gitlab.com/acme/acme-auth/internal/domain/verification"
	postgrespkg "gitlab.com/acme/acme-auth/pkg/postgres"
	"gitlab.com/acme/acme-auth/pkg/watermillx"
)

// Streams lists every outbox stream the service publishes to.
var Streams = []string{
	verification.EventStreamName,
	user.EventStreamName,
}

// Database is a migrated Postgres running in a throwaway container.
type Database struct {
	Pool      *pgxpool.Pool
	DSN       string
	container *postgres.PostgresContainer
}

// StartPostgres boots postgres:17-alpine, applies migrations and creates the
// outbox tables. Tests calling it are skipped with -short.
func StartPostgres(t testing.TB) *Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:17-alpine",
		postgres.WithDatabase("acme_auth_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, postgrespkg.Migrate(dsn, acmeauth.Migrations), "failed to migrate")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)

	err = watermillx.InitializeEventSchema(ctx, pool, watermill.NopLogger{}, Streams...)
	require.NoError(t, err, "failed to initialize outbox schema")

	return &Database{Pool: pool, DSN: dsn, container: container}
}

func (d *Database) Close(t testing.TB) {
	t.Helper()
	if d.Pool != nil {
		d.Pool.Close()
	}
	if d.container != nil {
		require.NoError(t, d.container.Terminate(context.Background()))
	}
}

// Truncate empties every table including the outbox, so each test starts clean.
func (d *Database) Truncate(t testing.TB) {
	t.Helper()

	tables := []string{`verification`, `account`, `session`, `"user"`}
	for _, stream := range Streams {
		tables = append(tables, `"watermill_`+stream+`"`)
	}
	for _, table := range tables {
		_, err := d.Pool.Exec(context.Background(), "TRUNCATE TABLE "+table+" CASCADE")
		require.NoError(t, err, "failed to truncate table %s", table)
	}
}
