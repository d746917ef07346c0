package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	storeKind  string
	lockerKind string
	envName    string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "sessionguard",
	Short:         "HTTP traffic recorder, session segmenter and blacklist gate",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	app := loadAppConfig()

	rootCmd.PersistentFlags().StringVar(&storeKind, "store", app.Store, "traffic store: memory, mongo or pg")
	rootCmd.PersistentFlags().StringVar(&lockerKind, "locker", app.Locker, "segmentation lease: local or redis")
	rootCmd.PersistentFlags().StringVar(&envName, "env", app.Env, "environment: development, staging or production")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "server", Title: "Server:"},
		&cobra.Group{ID: "admin", Title: "Administration:"},
	)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(blacklistCmd)
	rootCmd.AddCommand(unblockCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
