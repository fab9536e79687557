package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/salonpos/backend/internal/database"
	"github.com/salonpos/backend/internal/handlers"
	"github.com/salonpos/backend/internal/logger"
	"github.com/salonpos/backend/internal/policy"
	"github.com/salonpos/backend/internal/server"
	"github.com/salonpos/backend/internal/services"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if m, _ := cmd.Flags().GetBool("migrate"); m {
		if err := migrateUp(); err != nil {
			return err
		}
	}

	db, err := database.InitDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := database.InitRedis(ctx, cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(collectors.NewDBStatsCollector(db, cfg.Database.Name))
	metrics := services.NewMetrics(reg)

	loc := cfg.Billing.Location()
	audit := services.NewAuditRecorder()
	gate := policy.NewGate(nil)

	authService := services.NewAuthService(db, redisClient, cfg)
	settingsService := services.NewSettingsService(db, redisClient, cfg, audit)
	numbering := services.NewNumberingService(cfg.Billing, metrics)
	ledger := services.NewLedgerService(db, audit, metrics)
	customers := services.NewCustomerService(db, audit)
	tickets := services.NewTicketService(db, numbering, audit, loc)
	billing := services.NewBillingService(db, settingsService, numbering, ledger, tickets, audit, metrics)
	receipts := services.NewReceiptService(billing, customers, settingsService, services.NewQRService(cfg.Billing.Currency))
	drawer := services.NewCashDrawerService(db, audit, metrics, cfg.CashDrawer.Denominations, loc)
	reconciliation := services.NewReconciliationService(db, audit, metrics, loc)
	staff := services.NewStaffService(db, authService, audit, loc)
	inventory := services.NewInventoryService(db, audit, metrics)

	router := server.NewRouter(server.Deps{
		Config:         cfg.Server,
		Verifier:       authService,
		Gate:           gate,
		Gatherer:       reg,
		Duration:       metrics.HTTPDuration,
		DB:             db,
		Auth:           handlers.NewAuthHandler(authService),
		Customers:      handlers.NewCustomerHandler(customers, ledger, receipts),
		Tickets:        handlers.NewTicketHandler(tickets, loc),
		Bills:          handlers.NewBillHandler(billing, receipts),
		CashDrawer:     handlers.NewCashDrawerHandler(drawer),
		Reconciliation: handlers.NewReconciliationHandler(reconciliation),
		Staff:          handlers.NewStaffHandler(staff, gate),
		Settings:       handlers.NewSettingsHandler(settingsService),
		Inventory:      handlers.NewInventoryHandler(inventory),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("timezone", loc.String()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
