package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/salonpos/backend/internal/logger"
	"github.com/salonpos/backend/internal/models"
	"github.com/salonpos/backend/internal/policy"
	"github.com/salonpos/backend/internal/services"
)

type staffStore interface {
	Create(ctx context.Context, req services.CreateStaffRequest, actor string) (*models.Staff, error)
	List(ctx context.Context) ([]models.Staff, error)
	ClockIn(ctx context.Context, staffID string) (*models.Attendance, error)
	ClockOut(ctx context.Context, staffID string) (*models.Attendance, error)
	ListAttendance(ctx context.Context, staffID, from, to string) ([]models.Attendance, error)
}

type StaffHandler struct {
	staff staffStore
	gate  *policy.Gate
	log   zerolog.Logger
}

func NewStaffHandler(staff staffStore, gate *policy.Gate) *StaffHandler {
	return &StaffHandler{staff: staff, gate: gate, log: logger.WithComponent("staff_handler")}
}

func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.staff.List(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if list == nil {
		list = []models.Staff{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateStaffRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.staff.Create(r.Context(), req, actorID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// self reports whether the caller may act on staff id: their own record, or
// anyone's when the role may read attendance.
func (h *StaffHandler) self(r *http.Request, id string) bool {
	p, ok := policy.FromContext(r.Context())
	if !ok {
		return false
	}
	return p.StaffID == id || h.gate.Allowed(p.Role, policy.OpAttendanceRead)
}

func (h *StaffHandler) ClockIn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.self(r, id) {
		services.SendErrorResponse(w, "You can only clock in for yourself", http.StatusForbidden, nil)
		return
	}
	a, err := h.staff.ClockIn(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *StaffHandler) ClockOut(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.self(r, id) {
		services.SendErrorResponse(w, "You can only clock out for yourself", http.StatusForbidden, nil)
		return
	}
	a, err := h.staff.ClockOut(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *StaffHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.self(r, id) {
		services.SendErrorResponse(w, "You are not allowed to perform this action", http.StatusForbidden, nil)
		return
	}
	q := r.URL.Query()
	list, err := h.staff.ListAttendance(r.Context(), id, q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if list == nil {
		list = []models.Attendance{}
	}
	writeJSON(w, http.StatusOK, list)
}
