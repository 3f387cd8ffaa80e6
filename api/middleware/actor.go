package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/pos-backend/api/responses"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

const (
	HeaderActorID    = "X-Actor-Id"
	HeaderActorRole  = "X-Actor-Role"
	HeaderBusinessID = "X-Business-Id"
)

// Actor reads the caller identity forwarded by the upstream gateway. Session
// handling happens there; this service trusts the headers it receives.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID, err := uuid.Parse(strings.TrimSpace(r.Header.Get(HeaderActorID)))
			if err != nil || actorID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor id header required"))
				return
			}
			businessID, err := uuid.Parse(strings.TrimSpace(r.Header.Get(HeaderBusinessID)))
			if err != nil || businessID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "business id header required"))
				return
			}
			role := strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderActorRole)))

			ctx := WithActor(r.Context(), Actor{ID: actorID, Role: role, BusinessID: businessID})
			if logg != nil {
				ctx = logg.WithActorID(ctx, actorID.String())
				ctx = logg.WithBusinessID(ctx, businessID.String())
				ctx = logg.WithActorRole(ctx, role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
