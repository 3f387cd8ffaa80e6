package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	pkgredis "github.com/angelmondragon/pos-backend/pkg/redis"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", pkgredis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func saleRequest(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return req
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{http.MethodPost, "/api/v1/sales", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/orders/3f0c2a9e-4a4b-4a43-9d4e-0c2f4f1b9a11/returns", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/orders//returns", 0, false},
		{http.MethodPost, "/api/v1/orders/x/returns/extra", 0, false},
		{http.MethodPost, "/api/v1/inventory/transfers", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/quotes", 0, false},
		{http.MethodGet, "/api/v1/sales", 0, false},
	}
	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.path)
		require.Equal(t, tt.ok, ok, tt.path)
		require.Equal(t, tt.want, ttl, tt.path)
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	Idempotency(newFakeStore(), nil)(handler).ServeHTTP(resp, saleRequest(`{}`, ""))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.False(t, handlerCalled)
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number":"VTA-2026-00001"}`))
	})

	first := httptest.NewRecorder()
	mw(handler).ServeHTTP(first, saleRequest(`{"lines":[]}`, "abc"))
	require.Equal(t, http.StatusCreated, first.Code)

	replay := httptest.NewRecorder()
	mw(handler).ServeHTTP(replay, saleRequest(`{"lines":[]}`, "abc"))
	require.Equal(t, http.StatusCreated, replay.Code)
	require.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	require.Equal(t, "true", replay.Header().Get("Idempotent-Replay"))
	require.JSONEq(t, `{"number":"VTA-2026-00001"}`, replay.Body.String())
	require.Equal(t, 1, calls)
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw(handler).ServeHTTP(httptest.NewRecorder(), saleRequest(`{"foo":"bar"}`, "xyz"))

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, saleRequest(`{"foo":"diff"}`, "xyz"))

	require.Equal(t, http.StatusConflict, resp.Code)
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.Equal(t, string(pkgerrors.CodeConflict), payload.Error.Code)
}

func TestIdempotencyMiddlewareDoesNotRememberServerErrors(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), saleRequest(`{}`, "k"))
	mw(handler).ServeHTTP(httptest.NewRecorder(), saleRequest(`{}`, "k"))
	require.Equal(t, 2, calls)
}
