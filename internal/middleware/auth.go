package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/salonpos/backend/internal/logger"
	"github.com/salonpos/backend/internal/policy"
	"github.com/salonpos/backend/internal/services"
)

// TokenVerifier parses bearer tokens and checks the revocation list.
type TokenVerifier interface {
	ParseToken(token string) (*services.Claims, error)
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type claimsKey struct{}

// ClaimsFromContext returns the token claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (*services.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*services.Claims)
	return c, ok
}

// Authenticate requires a valid, unrevoked bearer token and stores the
// staff principal in the request context.
func Authenticate(v TokenVerifier) func(http.Handler) http.Handler {
	log := logger.WithComponent("auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				services.SendErrorResponse(w, "Authorization header required", http.StatusUnauthorized, nil)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				services.SendErrorResponse(w, "Invalid authorization header format", http.StatusUnauthorized, nil)
				return
			}

			claims, err := v.ParseToken(parts[1])
			if err != nil {
				log.Debug().Err(err).Msg("token rejected")
				services.SendErrorResponse(w, "Invalid token", http.StatusUnauthorized, nil)
				return
			}

			revoked, err := v.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				log.Error().Err(err).Msg("revocation check failed")
				services.SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
				return
			}
			if revoked {
				services.SendErrorResponse(w, "Token has been revoked", http.StatusUnauthorized, nil)
				return
			}

			role := policy.Role(claims.Role)
			if !role.Valid() {
				services.SendErrorResponse(w, "Invalid token", http.StatusUnauthorized, nil)
				return
			}

			ctx := policy.WithPrincipal(r.Context(), policy.Principal{
				StaffID: claims.Subject,
				Role:    role,
				TokenID: claims.ID,
			})
			ctx = context.WithValue(ctx, claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
