package main

import (
	"errors"
	"fmt"

	"github.com/salonpos/backend/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return migrateUp()
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	Example: `  # Undo the latest migration
  salonpos migrate down --steps 1`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		steps, _ := cmd.Flags().GetInt("steps")
		if steps <= 0 {
			return fmt.Errorf("--steps must be positive")
		}
		mg, err := database.NewMigrator(cfg.Database)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, mg.Close()) }()
		return mg.Down(steps)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		mg, err := database.NewMigrator(cfg.Database)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, mg.Close()) }()

		v, dirty, err := mg.Version()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	migrateDownCmd.Flags().Int("steps", 1, "Number of migrations to roll back")
}

func migrateUp() (err error) {
	mg, err := database.NewMigrator(cfg.Database)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, mg.Close()) }()
	return mg.Up()
}
