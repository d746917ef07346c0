package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/sessionguard/core/config"
	"github.com/dmitrymomot/sessionguard/integration/database/mongo"
	"github.com/dmitrymomot/sessionguard/integration/database/pg"
)

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	Short:   "Create the traffic schema in the configured store",
	GroupID: "server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := newLogger()

		switch storeKind {
		case "pg":
			var cfg pg.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}
			pool, err := pg.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			return pg.Migrate(ctx, pool, cfg, log)

		case "mongo":
			var cfg mongo.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}
			db, err := mongo.NewWithDatabase(ctx, cfg, "")
			if err != nil {
				return err
			}
			defer db.Client().Disconnect(ctx)
			return mongo.NewStore(db).EnsureIndexes(ctx)

		case "memory":
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to migrate for the memory store")
			return nil

		default:
			return fmt.Errorf("%w: %q", errUnknownStore, storeKind)
		}
	},
}
