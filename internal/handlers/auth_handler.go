package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/salonpos/backend/internal/logger"
	"github.com/salonpos/backend/internal/middleware"
	"github.com/salonpos/backend/internal/services"
)

type authenticator interface {
	Login(ctx context.Context, req services.LoginRequest) (*services.AuthResponse, error)
	Logout(ctx context.Context, claims *services.Claims) error
}

type AuthHandler struct {
	auth authenticator
	log  zerolog.Logger
}

func NewAuthHandler(auth authenticator) *AuthHandler {
	return &AuthHandler{auth: auth, log: logger.WithComponent("auth_handler")}
}

// Login exchanges a staff phone and password for a bearer token.
// @Summary Staff login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.LoginRequest true "Login request"
// @Success 200 {object} services.AuthResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout revokes the caller's token.
// @Summary Logout
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	if err := h.auth.Logout(r.Context(), claims); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}
