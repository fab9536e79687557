package main

import (
	"fmt"
	"time"

	"github.com/salonpos/backend/internal/database"
	"github.com/salonpos/backend/internal/logger"
	"github.com/salonpos/backend/internal/services"
	"github.com/spf13/cobra"
)

var sequencesCmd = &cobra.Command{
	Use:   "sequences",
	Short: "Manage invoice number sequences",
}

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create the invoice sequence for a fiscal year ahead of time",
	Long: `Creates the invoice counter for the given fiscal year so the first bill
of the year does not depend on auto-provisioning. Existing sequences are
left untouched.`,
	Example: `  salonpos sequences provision --year 2027`,
	RunE:    runProvision,
}

func init() {
	rootCmd.AddCommand(sequencesCmd)
	sequencesCmd.AddCommand(provisionCmd)
	provisionCmd.Flags().Int("year", 0, "Fiscal year to provision (default: current)")
}

func runProvision(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("sequences")
	ctx := cmd.Context()

	year, _ := cmd.Flags().GetInt("year")
	if year == 0 {
		year = time.Now().In(cfg.Billing.Location()).Year()
	}
	if year < 2000 || year > 2999 {
		return fmt.Errorf("year %d out of range", year)
	}

	db, err := database.InitDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	numbering := services.NewNumberingService(cfg.Billing, nil)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	created, err := numbering.ProvisionInvoiceYear(ctx, tx, year)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	log.Info().Int("year", year).Bool("created", created).Msg("invoice sequence provisioned")
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "invoice sequence for %d created\n", year)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "invoice sequence for %d already exists\n", year)
	}
	return nil
}
