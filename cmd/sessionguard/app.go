package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/sessionguard/core/config"
	"github.com/dmitrymomot/sessionguard/core/guard"
	"github.com/dmitrymomot/sessionguard/core/health"
	"github.com/dmitrymomot/sessionguard/core/lease"
	"github.com/dmitrymomot/sessionguard/core/logger"
	"github.com/dmitrymomot/sessionguard/core/traffic"
	"github.com/dmitrymomot/sessionguard/integration/database/mongo"
	"github.com/dmitrymomot/sessionguard/integration/database/pg"
	"github.com/dmitrymomot/sessionguard/integration/database/redis"
)

const serviceName = "sessionguard"

var (
	errUnknownStore     = errors.New("unknown store")
	errUnknownLocker    = errors.New("unknown locker")
	errPersistentNeeded = errors.New("this command needs a persistent store, use --store mongo or --store pg")
)

// appConfig selects the backends; flags override it.
type appConfig struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Store   string `env:"SESSIONGUARD_STORE" envDefault:"memory"`
	Locker  string `env:"SESSIONGUARD_LOCKER" envDefault:"local"`
	NATSURL string `env:"NATS_URL"`
}

func loadAppConfig() appConfig {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return appConfig{Env: "development", Store: "memory", Locker: "local"}
	}
	return cfg
}

func newLogger() *slog.Logger {
	switch envName {
	case "production":
		return logger.New(logger.WithProduction(serviceName))
	case "staging":
		return logger.New(logger.WithStaging(serviceName))
	default:
		return logger.New(logger.WithDevelopment(serviceName))
	}
}

// backend is an opened store with its readiness checks.
type backend struct {
	store   traffic.Store
	locker  lease.Locker
	checks  []health.Check
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openStore connects the store selected by --store.
func openStore(ctx context.Context, b *backend, log *slog.Logger) error {
	switch storeKind {
	case "memory":
		b.store = traffic.NewMemoryStore()

	case "mongo":
		var cfg mongo.Config
		if err := config.Load(&cfg); err != nil {
			return err
		}
		db, err := mongo.NewWithDatabase(ctx, cfg, "")
		if err != nil {
			return err
		}
		b.closers = append(b.closers, func() { _ = db.Client().Disconnect(context.Background()) })

		store := mongo.NewStore(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			return err
		}
		b.store = store
		b.checks = append(b.checks, health.Check{Name: "mongodb", Fn: mongo.Healthcheck(db.Client())})

	case "pg":
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, pool.Close)
		b.store = pg.NewStore(pool)
		b.checks = append(b.checks, health.Check{Name: "postgres", Fn: pg.Healthcheck(pool)})

	default:
		return fmt.Errorf("%w: %q", errUnknownStore, storeKind)
	}

	log.InfoContext(ctx, "traffic store ready", logger.Component("cli"), slog.String("store", storeKind))
	return nil
}

// openLocker connects the lease selected by --locker. The local lease is left
// to the guard.
func openLocker(ctx context.Context, b *backend, cfg guard.Config) error {
	switch lockerKind {
	case "local", "":
		return nil

	case "redis":
		var rcfg redis.Config
		if err := config.Load(&rcfg); err != nil {
			return err
		}
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.locker = lease.NewRedis(client,
			lease.WithKeyPrefix(rcfg.LeaseKeyPrefix),
			lease.WithWait(cfg.LockWait),
			lease.WithTTL(cfg.LockTTL))
		b.checks = append(b.checks, health.Check{Name: "redis", Fn: redis.Healthcheck(client)})
		return nil

	default:
		return fmt.Errorf("%w: %q", errUnknownLocker, lockerKind)
	}
}

// openGuard builds a guard over the configured store for admin commands.
func openGuard(ctx context.Context, log *slog.Logger) (*guard.Guard, func(), error) {
	if storeKind == "memory" {
		return nil, nil, errPersistentNeeded
	}

	var cfg guard.Config
	if err := config.Load(&cfg); err != nil {
		return nil, nil, err
	}

	b := &backend{}
	if err := openStore(ctx, b, log); err != nil {
		b.Close()
		return nil, nil, err
	}

	g := guard.New(cfg, b.store, guard.WithLogger(log))
	if err := g.Err(); err != nil {
		b.Close()
		return nil, nil, err
	}
	return g, b.Close, nil
}
