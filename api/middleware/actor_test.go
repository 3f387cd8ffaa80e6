package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestActorMiddlewareRequiresIdentityHeaders(t *testing.T) {
	called := false
	h := Actor(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/x", nil)
	req.Header.Set(HeaderActorID, "not-a-uuid")
	req.Header.Set(HeaderBusinessID, uuid.NewString())
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders/x", nil)
	req.Header.Set(HeaderActorID, uuid.NewString())
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.False(t, called)
}

func TestActorMiddlewareStoresIdentity(t *testing.T) {
	actorID, businessID := uuid.New(), uuid.New()
	var got Actor
	h := Actor(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderActorID, actorID.String())
	req.Header.Set(HeaderBusinessID, businessID.String())
	req.Header.Set(HeaderActorRole, " Manager ")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, Actor{ID: actorID, Role: "manager", BusinessID: businessID}, got)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(nil, "admin", "manager")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for role, want := range map[string]int{"manager": http.StatusNoContent, "cashier": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(WithActor(req.Context(), Actor{ID: uuid.New(), Role: role, BusinessID: uuid.New()}))
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		require.Equal(t, want, resp.Code, role)
	}
}
