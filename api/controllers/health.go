package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/pos-backend/api/responses"
	"github.com/angelmondragon/pos-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

const readyTimeout = 2 * time.Second

// Pinger is anything the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-POS-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every named dependency. Nil pingers are reported as
// skipped so a deployment without redis still reports ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-POS-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		for name, pinger := range deps {
			if pinger == nil {
				checks[name] = "skipped"
				continue
			}
			if err := pinger.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").WithDetails(map[string]any{"dependency": name}))
				return
			}
			checks[name] = "ok"
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
