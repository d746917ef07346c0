package pg

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"

	"github.com/dmitrymomot/sessionguard/core/logger"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migrate applies pending migrations with goose. goose works on database/sql,
// so the pool is wrapped in a *sql.DB that shares its connections.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg Config, log *slog.Logger) error {
	if log == nil {
		log = logger.Nop()
	}

	fsys, err := migrationsFS(cfg.MigrationsPath)
	if err != nil {
		return err
	}

	store, err := database.NewStore(goose.DialectPostgres, cfg.MigrationsTable)
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider("", db, fsys, goose.WithStore(store))
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	for _, r := range results {
		log.InfoContext(ctx, "migration applied",
			logger.Component("pg"),
			slog.Int64("version", r.Source.Version),
			slog.String("file", r.Source.Path),
			logger.Duration(r.Duration))
	}
	if len(results) == 0 {
		log.DebugContext(ctx, "schema up to date", logger.Component("pg"))
	}
	return nil
}

func migrationsFS(path string) (fs.FS, error) {
	if path == "" {
		return fs.Sub(embedded, "migrations")
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, errors.Join(ErrMigrationsDirNotFound, err)
	}
	return os.DirFS(path), nil
}
