package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/salonpos/backend/internal/logger"
	"github.com/salonpos/backend/internal/models"
	"github.com/salonpos/backend/internal/services"
)

type ticketStore interface {
	Create(ctx context.Context, req services.CreateTicketRequest, actor string) (*models.Ticket, error)
	ListByDate(ctx context.Context, date string) ([]models.Ticket, error)
	UpdateStatus(ctx context.Context, id, status, actor string) (*models.Ticket, error)
}

type TicketHandler struct {
	tickets ticketStore
	loc     *time.Location
	log     zerolog.Logger
}

func NewTicketHandler(tickets ticketStore, loc *time.Location) *TicketHandler {
	return &TicketHandler{tickets: tickets, loc: loc, log: logger.WithComponent("ticket_handler")}
}

func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateTicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.tickets.Create(r.Context(), req, actorID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// List returns the tickets of ?date=YYYY-MM-DD, today when omitted.
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().In(h.loc).Format("2006-01-02")
	}
	list, err := h.tickets.ListByDate(r.Context(), date)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if list == nil {
		list = []models.Ticket{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *TicketHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.tickets.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, actorID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
