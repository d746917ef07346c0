package pg_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionguard/core/traffic"
	"github.com/dmitrymomot/sessionguard/core/traffic/traffictest"
	"github.com/dmitrymomot/sessionguard/integration/database/pg"
)

func testConfig(t *testing.T) pg.Config {
	t.Helper()

	url := os.Getenv("PG_CONN_URL")
	if url == "" {
		t.Skip("PG_CONN_URL not set")
	}
	return pg.Config{
		ConnectionString: url,
		MaxOpenConns:     10,
		RetryAttempts:    2,
		RetryInterval:    100 * time.Millisecond,
		MigrationsTable:  "schema_migrations",
	}
}

func TestConnect_InvalidConfig(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		_, err := pg.Connect(context.Background(), pg.Config{})
		assert.ErrorIs(t, err, pg.ErrEmptyConnectionString)
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()
		_, err := pg.Connect(context.Background(), pg.Config{ConnectionString: "postgres://%zz"})
		assert.ErrorIs(t, err, pg.ErrFailedToParseDBConfig)
	})
}

func TestMigrate_MissingDir(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	defer pool.Close()

	cfg.MigrationsPath = t.TempDir() + "/nope"
	assert.ErrorIs(t, pg.Migrate(ctx, pool, cfg, nil), pg.ErrMigrationsDirNotFound)
}

func TestStore(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Healthcheck(pool)(ctx))
	require.NoError(t, pg.Migrate(ctx, pool, cfg, nil))
	// A second run finds nothing pending.
	require.NoError(t, pg.Migrate(ctx, pool, cfg, nil))

	store := pg.NewStore(pool)
	traffictest.RunStoreSuite(t, store)

	t.Run("rolled back transaction leaves no record", func(t *testing.T) {
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)

		txCtx := pg.WithTx(ctx, tx)
		id, err := store.InsertRecord(txCtx, &traffic.Record{ClientID: "tx-client", Timestamp: time.Now()})
		require.NoError(t, err)

		_, err = store.GetRecord(txCtx, id)
		require.NoError(t, err)

		require.NoError(t, tx.Rollback(ctx))

		_, err = store.GetRecord(ctx, id)
		assert.ErrorIs(t, err, traffic.ErrNotFound)
	})
}
