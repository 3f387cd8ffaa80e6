package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pos-backend/api/middleware"
	"github.com/angelmondragon/pos-backend/pkg/config"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func testConfig() *config.Config {
	return &config.Config{
		App:   config.AppConfig{Env: "test"},
		Sales: config.SalesConfig{ElevatedRoles: []string{"admin", "manager"}},
	}
}

func newTestRouter(db stubPinger) http.Handler {
	return NewRouter(RouterParams{
		Config:   testConfig(),
		DB:       db,
		Gatherer: prometheus.NewRegistry(),
	})
}

func actorRequest(method, path, role string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
	req.Header.Set(middleware.HeaderActorID, uuid.NewString())
	req.Header.Set(middleware.HeaderBusinessID, uuid.NewString())
	if role != "" {
		req.Header.Set(middleware.HeaderActorRole, role)
	}
	return req
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(stubPinger{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "test", resp.Header().Get("X-POS-Env"))

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"database":"ok"`)
}

func TestReadyReportsDatabaseOutage(t *testing.T) {
	router := newTestRouter(stubPinger{err: errors.New("connection refused")})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestAPIRequiresActorHeaders(t *testing.T) {
	router := newTestRouter(stubPinger{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestElevatedRoutesRejectCashiers(t *testing.T) {
	router := newTestRouter(stubPinger{})

	for _, req := range []*http.Request{
		actorRequest(http.MethodPost, "/api/v1/inventory/adjustments", "cashier"),
		actorRequest(http.MethodGet, "/api/v1/inventory/verify?product_id="+uuid.NewString(), ""),
	} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		require.Equal(t, http.StatusForbidden, resp.Code, req.URL.Path)
	}

	// A manager passes the role gate and reaches the (unwired) handler.
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, actorRequest(http.MethodPost, "/api/v1/inventory/adjustments", "Manager"))
	require.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(stubPinger{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
}
