package pg_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/macrohuang/invest-log/internal/infrastructure/pg"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const pgImage = "postgres:16-alpine"

// startPostgres starts a disposable postgres, runs the migrations against it
// and returns a connected pool. Cleanup is registered on t.
func startPostgres(t *testing.T) *pg.DB {
	t.Helper()
	if os.Getenv("TESTCONTAINERS") == "" {
		t.Skip("set TESTCONTAINERS=1 to run containerized PG tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	pgc, err := postgres.Run(ctx, pgImage,
		postgres.WithDatabase("investlog"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgc.Terminate(context.Background()) })

	uri, err := pgc.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := pg.Connect(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, pg.RunMigrations(ctx, db))
	return db
}
