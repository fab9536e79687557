package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/salonpos/backend/internal/config"
	"github.com/salonpos/backend/internal/handlers"
	"github.com/salonpos/backend/internal/logger"
	mw "github.com/salonpos/backend/internal/middleware"
	"github.com/salonpos/backend/internal/policy"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps is everything the router needs. Handlers are built by the caller.
type Deps struct {
	Config   config.ServerConfig
	Verifier mw.TokenVerifier
	Gate     *policy.Gate
	Gatherer prometheus.Gatherer
	Duration *prometheus.HistogramVec
	DB       Pinger

	Auth           *handlers.AuthHandler
	Customers      *handlers.CustomerHandler
	Tickets        *handlers.TicketHandler
	Bills          *handlers.BillHandler
	CashDrawer     *handlers.CashDrawerHandler
	Reconciliation *handlers.ReconciliationHandler
	Staff          *handlers.StaffHandler
	Settings       *handlers.SettingsHandler
	Inventory      *handlers.InventoryHandler
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.RequestLogger(logger.WithComponent("http"), d.Duration))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", health(d.DB))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	if d.Config.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", mw.StaticFileServer(d.Config.StaticDir)))
	}

	allow := func(op policy.Operation) func(http.Handler) http.Handler {
		return mw.Require(d.Gate, op)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", d.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(d.Verifier))

			r.Post("/auth/logout", d.Auth.Logout)

			r.Route("/customers", func(r chi.Router) {
				r.With(allow(policy.OpCustomerRead)).Get("/", d.Customers.List)
				r.With(allow(policy.OpCustomerWrite)).Post("/", d.Customers.Create)
				r.With(allow(policy.OpCustomerRead)).Get("/{id}", d.Customers.Get)
				r.With(allow(policy.OpCustomerWrite)).Put("/{id}", d.Customers.Update)
				r.With(allow(policy.OpCustomerDelete)).Delete("/{id}", d.Customers.Delete)
				r.With(allow(policy.OpCollectionRecord)).Post("/{id}/collections", d.Customers.RecordCollection)
				r.With(allow(policy.OpCollectionRead)).Get("/{id}/collections", d.Customers.ListCollections)
				r.With(allow(policy.OpLedgerVerify)).Get("/{id}/ledger/verify", d.Customers.VerifyLedger)
				r.With(allow(policy.OpCollectionRecord)).Get("/{id}/collect-qr", d.Customers.CollectQR)
			})

			r.Route("/tickets", func(r chi.Router) {
				r.With(allow(policy.OpTicketWrite)).Post("/", d.Tickets.Create)
				r.With(allow(policy.OpTicketRead)).Get("/", d.Tickets.List)
				r.With(allow(policy.OpTicketWrite)).Put("/{id}/status", d.Tickets.UpdateStatus)
			})

			r.Route("/bills", func(r chi.Router) {
				r.With(allow(policy.OpBillCreate)).Post("/", d.Bills.Create)
				r.With(allow(policy.OpBillRead)).Get("/{id}", d.Bills.Get)
				r.With(allow(policy.OpBillRead)).Get("/{id}/receipt", d.Bills.Receipt)
			})

			r.Route("/cash-drawer", func(r chi.Router) {
				r.With(allow(policy.OpDrawerRead)).Get("/", d.CashDrawer.Get)
				r.With(allow(policy.OpDrawerOpen)).Post("/open", d.CashDrawer.Open)
				r.With(allow(policy.OpDrawerClose)).Post("/{id}/close", d.CashDrawer.Close)
			})

			r.Route("/reconciliations", func(r chi.Router) {
				r.With(allow(policy.OpReconciliationWrite)).Post("/", d.Reconciliation.Create)
				r.With(allow(policy.OpReconciliationRead)).Get("/{date}", d.Reconciliation.Get)
				r.With(allow(policy.OpReconciliationWrite)).Post("/{date}/snapshot", d.Reconciliation.Snapshot)
				r.With(allow(policy.OpReconciliationFinal)).Post("/{date}/finalize", d.Reconciliation.Finalize)
				r.With(allow(policy.OpReconciliationCorrect)).Post("/{date}/corrections", d.Reconciliation.AddCorrection)
			})

			r.Route("/staff", func(r chi.Router) {
				r.With(allow(policy.OpStaffRead)).Get("/", d.Staff.List)
				r.With(allow(policy.OpStaffManage)).Post("/", d.Staff.Create)
				// the handler narrows these to the caller's own record
				r.With(allow(policy.OpAttendanceSelf)).Post("/{id}/clock-in", d.Staff.ClockIn)
				r.With(allow(policy.OpAttendanceSelf)).Post("/{id}/clock-out", d.Staff.ClockOut)
				r.With(allow(policy.OpAttendanceSelf)).Get("/{id}/attendance", d.Staff.Attendance)
			})

			r.Route("/inventory", func(r chi.Router) {
				r.With(allow(policy.OpInventoryRead)).Get("/items", d.Inventory.ListItems)
				r.With(allow(policy.OpInventoryManage)).Post("/items", d.Inventory.CreateItem)
				r.With(allow(policy.OpInventoryAdjust)).Post("/items/{id}/adjustments", d.Inventory.Adjust)
				r.With(allow(policy.OpInventoryRead)).Get("/items/{id}/movements", d.Inventory.Movements)
				r.With(allow(policy.OpInventoryManage)).Post("/purchases", d.Inventory.RecordPurchase)
			})

			r.With(allow(policy.OpSettingsRead)).Get("/settings", d.Settings.Get)
			r.With(allow(policy.OpSettingsWrite)).Put("/settings", d.Settings.Update)
		})
	})

	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unhealthy"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"healthy"}`))
	}
}
