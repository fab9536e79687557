package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/salonpos/backend/internal/logger"
	"github.com/salonpos/backend/internal/models"
	"github.com/salonpos/backend/internal/services"
)

type customerStore interface {
	Create(ctx context.Context, req services.CustomerRequest, actor string) (*models.Customer, error)
	Get(ctx context.Context, id string) (*models.Customer, error)
	List(ctx context.Context, f services.CustomerFilter) ([]models.Customer, error)
	Update(ctx context.Context, id string, req services.CustomerRequest, actor string) (*models.Customer, error)
	Delete(ctx context.Context, id, actor string) error
}

type pendingLedger interface {
	RecordCollection(ctx context.Context, req services.CollectionRequest) (*models.PendingPaymentCollection, error)
	ListCollections(ctx context.Context, customerID string) ([]models.PendingPaymentCollection, error)
	VerifyBalance(ctx context.Context, customerID string) (*services.BalanceCheck, error)
}

type collectQR interface {
	CollectQR(ctx context.Context, customerID string) (*services.PaymentQR, error)
}

type CustomerHandler struct {
	customers customerStore
	ledger    pendingLedger
	qr        collectQR
	log       zerolog.Logger
}

func NewCustomerHandler(customers customerStore, ledger pendingLedger, qr collectQR) *CustomerHandler {
	return &CustomerHandler{
		customers: customers,
		ledger:    ledger,
		qr:        qr,
		log:       logger.WithComponent("customer_handler"),
	}
}

// List searches customers by name or phone.
// @Summary List customers
// @Tags customers
// @Produce json
// @Security BearerAuth
// @Param q query string false "name or phone fragment"
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {array} models.Customer
// @Router /customers [get]
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.customers.List(r.Context(), services.CustomerFilter{
		Query:  r.URL.Query().Get("q"),
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if list == nil {
		list = []models.Customer{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CustomerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.customers.Create(r.Context(), req, actorID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.customers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req services.CustomerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.customers.Update(r.Context(), chi.URLParam(r, "id"), req, actorID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.customers.Delete(r.Context(), chi.URLParam(r, "id"), actorID(r)); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordCollection takes a payment against the customer's pending balance.
// @Summary Record pending-balance collection
// @Tags customers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "customer id"
// @Param request body services.CollectionRequest true "Collection"
// @Success 201 {object} models.PendingPaymentCollection
// @Failure 422 {object} services.ErrorResponse "collection exceeds pending balance"
// @Router /customers/{id}/collections [post]
func (h *CustomerHandler) RecordCollection(w http.ResponseWriter, r *http.Request) {
	var req services.CollectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CustomerID = chi.URLParam(r, "id")
	req.CollectedBy = actorID(r)

	c, err := h.ledger.RecordCollection(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CustomerHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	list, err := h.ledger.ListCollections(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if list == nil {
		list = []models.PendingPaymentCollection{}
	}
	writeJSON(w, http.StatusOK, list)
}

// VerifyLedger reports whether the stored balance matches the ledger. A
// mismatch is still a 200 with consistent=false so the figures are visible.
func (h *CustomerHandler) VerifyLedger(w http.ResponseWriter, r *http.Request) {
	check, err := h.ledger.VerifyBalance(r.Context(), chi.URLParam(r, "id"))
	if check == nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *CustomerHandler) CollectQR(w http.ResponseWriter, r *http.Request) {
	qr, err := h.qr.CollectQR(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, qr)
}
