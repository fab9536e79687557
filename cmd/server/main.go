package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/salonpos/backend/internal/config"
	"github.com/salonpos/backend/internal/logger"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

// cfg is resolved once in PersistentPreRunE for every subcommand.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "salonpos",
	Short: "Salon POS backend: billing, pending balances and daily cash reconciliation",
	Long: `salonpos runs the salon point-of-sale API and its maintenance tasks.

Configuration is read from the environment. A .env file in the working
directory is loaded first when present.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load .env: %w", err)
		}

		c, err := config.Load()
		if err != nil {
			return err
		}
		if err := logger.Setup(c.Log); err != nil {
			return fmt.Errorf("setup logger: %w", err)
		}
		cfg = c
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
