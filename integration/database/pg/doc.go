// Package pg connects to PostgreSQL through pgx, applies the schema with goose
// and stores traffic in it.
//
// Connect builds a pgxpool.Pool and retries the initial ping with a growing
// delay. Migrate runs the SQL migrations embedded in this package (or the
// directory named by PG_MIGRATIONS_PATH) through a database/sql view of the
// same pool, which is what goose requires.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//		return err
//	}
//	store := pg.NewStore(pool)
//
// Store implements traffic.Store on two tables: client_ips and http_logs.
// Record ids are UUIDv7 strings and an unassigned record has a NULL
// session_id; AssignSession only updates rows where it is still NULL.
//
// # Transactions
//
// Store methods join a transaction attached to the context with WithTx:
//
//	tx, err := pool.Begin(ctx)
//	if err != nil {
//		return err
//	}
//	defer tx.Rollback(ctx)
//
//	if err := store.SetBlacklisted(pg.WithTx(ctx, tx), clientID, now); err != nil {
//		return err
//	}
//	return tx.Commit(ctx)
//
// # Error Handling
//
// Store methods return traffic.ErrNotFound for missing rows and wrap
// connection failures with traffic.ErrStoreUnavailable. IsNotFoundError,
// IsDuplicateKeyError, IsForeignKeyViolationError, IsTxClosedError and
// IsConnectionError classify raw pgx errors.
package pg
