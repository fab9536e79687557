package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/salonpos/backend/internal/config"
	"github.com/salonpos/backend/internal/handlers"
	"github.com/salonpos/backend/internal/models"
	"github.com/salonpos/backend/internal/policy"
	"github.com/salonpos/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokens maps a bearer token straight to a role.
type tokens map[string]string

func (t tokens) ParseToken(token string) (*services.Claims, error) {
	role, ok := t[token]
	if !ok {
		return nil, services.ErrInvalidToken
	}
	return &services.Claims{Role: role, RegisteredClaims: jwt.RegisteredClaims{Subject: role + "-id", ID: token}}, nil
}

func (t tokens) IsRevoked(context.Context, string) (bool, error) { return false, nil }

type settingsStub struct{}

func (settingsStub) Get(context.Context) (*models.SalonSettings, error) {
	return &models.SalonSettings{}, nil
}

func (settingsStub) Update(context.Context, services.UpdateSettingsRequest, string) (*models.SalonSettings, error) {
	return &models.SalonSettings{}, nil
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func testRouter(t *testing.T, db Pinger) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := services.NewMetrics(reg)
	return NewRouter(Deps{
		Config:         config.ServerConfig{AllowedOrigins: []string{"http://*"}, StaticDir: t.TempDir()},
		Verifier:       tokens{"own": "owner", "rec": "receptionist", "sty": "staff"},
		Gate:           policy.NewGate(nil),
		Gatherer:       reg,
		Duration:       metrics.HTTPDuration,
		DB:             db,
		Auth:           handlers.NewAuthHandler(nil),
		Customers:      handlers.NewCustomerHandler(nil, nil, nil),
		Tickets:        handlers.NewTicketHandler(nil, nil),
		Bills:          handlers.NewBillHandler(nil, nil),
		CashDrawer:     handlers.NewCashDrawerHandler(nil),
		Reconciliation: handlers.NewReconciliationHandler(nil),
		Staff:          handlers.NewStaffHandler(nil, policy.NewGate(nil)),
		Settings:       handlers.NewSettingsHandler(settingsStub{}),
		Inventory:      handlers.NewInventoryHandler(nil),
	})
}

func call(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestRouter_Health(t *testing.T) {
	w := call(testRouter(t, pinger{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())

	w = call(testRouter(t, pinger{err: errors.New("down")}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_Metrics(t *testing.T) {
	h := testRouter(t, nil)
	call(h, http.MethodGet, "/health", "")

	w := call(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "salon_http_request_duration_seconds")
}

func TestRouter_Authorization(t *testing.T) {
	h := testRouter(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"no token", http.MethodGet, "/api/v1/settings", "", http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "/api/v1/settings", "nope", http.StatusUnauthorized},
		{"any role reads settings", http.MethodGet, "/api/v1/settings", "sty", http.StatusOK},
		{"stylist cannot finalize", http.MethodPost, "/api/v1/reconciliations/2026-01-25/finalize", "sty", http.StatusForbidden},
		{"receptionist cannot finalize", http.MethodPost, "/api/v1/reconciliations/2026-01-25/finalize", "rec", http.StatusForbidden},
		{"stylist cannot post bills", http.MethodPost, "/api/v1/bills", "sty", http.StatusForbidden},
		{"receptionist cannot verify ledger", http.MethodGet, "/api/v1/customers/c1/ledger/verify", "rec", http.StatusForbidden},
		{"stylist cannot book purchases", http.MethodPost, "/api/v1/inventory/purchases", "sty", http.StatusForbidden},
		{"only owner changes settings", http.MethodPut, "/api/v1/settings", "rec", http.StatusForbidden},
		{"unknown route", http.MethodGet, "/api/v1/nothing", "own", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(h, tt.method, tt.path, tt.token)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRouter_StaticPlaceholder(t *testing.T) {
	w := call(testRouter(t, nil), http.MethodGet, "/static/logo.svg", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
}
