package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/restaurant-table-reservation/internal/config"
	"github.com/iliyamo/restaurant-table-reservation/internal/database"
	"github.com/iliyamo/restaurant-table-reservation/internal/logging"
)

var migratePrint bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database tables if they do not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if cfg.StoreDriver == config.DriverMemory {
			return fmt.Errorf("migrate: STORE_DRIVER is %q, nothing to migrate", cfg.StoreDriver)
		}
		if migratePrint {
			stmts, err := database.Schema(cfg.StoreDriver)
			if err != nil {
				return err
			}
			for _, s := range stmts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", s)
			}
			return nil
		}

		log := logging.FromStrings(cfg.LogLevel, cfg.LogFormat)
		db, err := database.Open(cmd.Context(), dbOptions(cfg))
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(cmd.Context(), db, cfg.StoreDriver); err != nil {
			return err
		}
		log.Info("migrations applied", "driver", cfg.StoreDriver, "database", cfg.DBName)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migratePrint, "print", false, "print the DDL instead of running it")
	rootCmd.AddCommand(migrateCmd)
}
