package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/salonpos/backend/internal/policy"
	"github.com/salonpos/backend/internal/services"
)

const maxBodyBytes = 1_048_576

// decodeJSON reads exactly one JSON object into dst, rejecting unknown
// fields. It writes the 400 response itself and reports false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch services.KindOf(err) {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindAuthorization:
		if errors.Is(err, services.ErrInvalidCredentials) || errors.Is(err, services.ErrInvalidToken) {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindConsistency:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Infrastructure failures are logged and hidden
// behind a generic message.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		services.SendErrorResponse(w, "An Internal Error Occurred", status, nil)
		return
	}

	msg := err.Error()
	var opErr *services.OpError
	if errors.As(err, &opErr) {
		msg = opErr.Err.Error()
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		services.SendErrorResponse(w, "Validation failed", status, err)
		return
	}
	services.SendErrorResponse(w, msg, status, nil)
}

// actorID is the staff id of the authenticated caller.
func actorID(r *http.Request) string {
	p, _ := policy.FromContext(r.Context())
	return p.StaffID
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}
