package middleware

import (
	"errors"
	"net/http"

	"github.com/salonpos/backend/internal/policy"
	"github.com/salonpos/backend/internal/services"
)

// Require rejects requests whose principal may not perform op.
func Require(gate *policy.Gate, op policy.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := gate.Authorize(r.Context(), op)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, policy.ErrUnauthenticated):
				services.SendErrorResponse(w, "Authentication required", http.StatusUnauthorized, nil)
			default:
				services.SendErrorResponse(w, "You are not allowed to perform this action", http.StatusForbidden, nil)
			}
		})
	}
}
