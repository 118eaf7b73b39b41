package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rcarvalho-pb/checkout_gateway-go/internal/domain/checkout"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infra/config"
	"github.com/rcarvalho-pb/checkout_gateway-go/internal/infrastructure/persistence/sqlite"
)

func themeCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Manage checkout themes",
	}
	cmd.AddCommand(themeAddCmd(configPath))
	return cmd
}

func themeAddCmd(configPath *string) *cobra.Command {
	var storeID, name, version string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a checkout theme for a store",
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
				return err
			}

			theme := &checkout.Theme{
				ID:        uuid.NewString(),
				Name:      name,
				Version:   version,
				StoreID:   storeID,
				CreatedAt: time.Now().UTC(),
			}
			if err := sqlite.NewThemeRepository(db).Save(cmd.Context(), theme); err != nil {
				return fmt.Errorf("save theme: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), theme.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&storeID, "store", "", "owning store id")
	cmd.Flags().StringVar(&name, "name", "", "theme name")
	cmd.Flags().StringVar(&version, "version", "1", "theme version")
	cmd.MarkFlagRequired("store")
	cmd.MarkFlagRequired("name")

	return cmd
}
