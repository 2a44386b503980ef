package main

import (
	"fmt"

	"github.com/shenikar/incident_triage/internal/config"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  "Applies all pending SQL migrations from MIGRATIONS_PATH to DATABASE_URL.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.StoreDriver != config.StoreDriverPostgres {
			return fmt.Errorf("migrate requires STORE_DRIVER=%s", config.StoreDriverPostgres)
		}
		return applyMigrations()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
