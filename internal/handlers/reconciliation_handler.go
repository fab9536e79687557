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

type reconciler interface {
	Create(ctx context.Context, date, actor string) (*models.DailyReconciliation, error)
	Snapshot(ctx context.Context, date string) (*models.DailyReconciliation, error)
	Finalize(ctx context.Context, date string, req services.FinalizeRequest, actor string) (*models.DailyReconciliation, error)
	AddCorrection(ctx context.Context, date string, req services.CorrectionRequest, actor string) (*models.ReconciliationCorrection, error)
	Get(ctx context.Context, date string) (*models.DailyReconciliation, error)
}

type ReconciliationHandler struct {
	recon reconciler
	log   zerolog.Logger
}

func NewReconciliationHandler(recon reconciler) *ReconciliationHandler {
	return &ReconciliationHandler{recon: recon, log: logger.WithComponent("reconciliation_handler")}
}

// Create opens the reconciliation for a business date.
// @Summary Create daily reconciliation
// @Tags reconciliations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{business_date=string} true "Date (YYYY-MM-DD)"
// @Success 201 {object} models.DailyReconciliation
// @Failure 409 {object} services.ErrorResponse "already exists"
// @Router /reconciliations [post]
func (h *ReconciliationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BusinessDate string `json:"business_date"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.recon.Create(r.Context(), req.BusinessDate, actorID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *ReconciliationHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	rec, err := h.recon.Snapshot(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Finalize records the counted cash and locks the day.
// @Summary Finalize daily reconciliation
// @Tags reconciliations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param date path string true "business date"
// @Param request body services.FinalizeRequest true "Counted cash"
// @Success 200 {object} models.DailyReconciliation
// @Failure 409 {object} services.ErrorResponse "already reconciled"
// @Failure 422 {object} services.ErrorResponse "drawer still open"
// @Router /reconciliations/{date}/finalize [post]
func (h *ReconciliationHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req services.FinalizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.recon.Finalize(r.Context(), chi.URLParam(r, "date"), req, actorID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *ReconciliationHandler) AddCorrection(w http.ResponseWriter, r *http.Request) {
	var req services.CorrectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.recon.AddCorrection(r.Context(), chi.URLParam(r, "date"), req, actorID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ReconciliationHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.recon.Get(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
