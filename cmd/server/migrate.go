package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/config"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infrastructure/persistence/sqlite"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the SQLite schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(*configPath)
			if err != nil {
				return err
			}

			db, err := sqlite.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := sqlite.RunMigrations(db); err != nil {
				return fmt.Errorf("migrate %s: %w", cfg.Database.Path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date: %s\n", cfg.Database.Path)
			return nil
		},
	}
}
