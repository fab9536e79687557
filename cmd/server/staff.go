package main

import (
	"errors"
	"fmt"

	"github.com/salonpos/backend/internal/database"
	"github.com/salonpos/backend/internal/logger"
	"github.com/salonpos/backend/internal/policy"
	"github.com/salonpos/backend/internal/services"
	"github.com/spf13/cobra"
)

var staffCmd = &cobra.Command{
	Use:   "staff",
	Short: "Staff account maintenance",
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the first owner account on an empty database",
	Example: `  salonpos staff bootstrap --name "Asha" --phone +919800000001 --password s3cret-pass`,
	RunE: runBootstrap,
}

func init() {
	rootCmd.AddCommand(staffCmd)
	staffCmd.AddCommand(bootstrapCmd)
	bootstrapCmd.Flags().String("name", "", "Owner name")
	bootstrapCmd.Flags().String("phone", "", "Owner phone, used to log in")
	bootstrapCmd.Flags().String("password", "", "Owner password (min 8 characters)")
	_ = bootstrapCmd.MarkFlagRequired("name")
	_ = bootstrapCmd.MarkFlagRequired("phone")
	_ = bootstrapCmd.MarkFlagRequired("password")
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("bootstrap")
	ctx := cmd.Context()

	db, err := database.InitDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	auth := services.NewAuthService(db, nil, cfg)
	staff := services.NewStaffService(db, auth, services.NewAuditRecorder(), cfg.Billing.Location())

	n, err := staff.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return errors.New("staff accounts already exist; create more through the API")
	}

	name, _ := cmd.Flags().GetString("name")
	phone, _ := cmd.Flags().GetString("phone")
	password, _ := cmd.Flags().GetString("password")

	st, err := staff.Create(ctx, services.CreateStaffRequest{
		Name:     name,
		Phone:    phone,
		Role:     string(policy.RoleOwner),
		Password: password,
	}, "system")
	if err != nil {
		return err
	}

	log.Info().Str("staff_id", st.ID).Msg("owner account created")
	fmt.Fprintf(cmd.OutOrStdout(), "owner %s created (%s)\n", st.Name, st.ID)
	return nil
}
