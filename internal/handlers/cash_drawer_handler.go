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

type drawerStore interface {
	Open(ctx context.Context, req services.OpenDrawerRequest, actor string) (*models.CashDrawerSession, error)
	Close(ctx context.Context, sessionID string, req services.CloseDrawerRequest, actor string) (*models.CashDrawerSession, error)
	GetByDate(ctx context.Context, date string) (*models.CashDrawerSession, error)
}

type CashDrawerHandler struct {
	drawer drawerStore
	log    zerolog.Logger
}

func NewCashDrawerHandler(drawer drawerStore) *CashDrawerHandler {
	return &CashDrawerHandler{drawer: drawer, log: logger.WithComponent("drawer_handler")}
}

func (h *CashDrawerHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req services.OpenDrawerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.drawer.Open(r.Context(), req, actorID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// Close records the day-end count. The response carries the variance
// against the expected drawer.
func (h *CashDrawerHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req services.CloseDrawerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.drawer.Close(r.Context(), chi.URLParam(r, "id"), req, actorID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session":  s,
		"variance": s.Variance(),
	})
}

func (h *CashDrawerHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.drawer.GetByDate(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
