package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/salonpos/backend/internal/logger"
	"github.com/salonpos/backend/internal/models"
	"github.com/salonpos/backend/internal/services"
)

type settingsStore interface {
	Get(ctx context.Context) (*models.SalonSettings, error)
	Update(ctx context.Context, req services.UpdateSettingsRequest, actor string) (*models.SalonSettings, error)
}

type SettingsHandler struct {
	settings settingsStore
	log      zerolog.Logger
}

func NewSettingsHandler(settings settingsStore) *SettingsHandler {
	return &SettingsHandler{settings: settings, log: logger.WithComponent("settings_handler")}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.settings.Update(r.Context(), req, actorID(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
