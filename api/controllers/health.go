package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/catalogo-presupuesto/api/responses"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/config"
	pkgerrors "github.com/angelmondragon/catalogo-presupuesto/pkg/errors"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
)

const readyTimeout = 2 * time.Second

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Catalogo-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready once the optional cache backend answers. Missing catalog
// credentials are reported but do not fail readiness.
func HealthReady(cfg *config.Config, redis Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Catalogo-Env", cfg.App.Env)

		checks := map[string]string{"notion": "configured"}
		if !cfg.Notion.Configured() {
			checks["notion"] = "missing_config"
		}

		if redis != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()
			if err := redis.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable").
					WithDetails(map[string]string{"redis": "unreachable"}))
				return
			}
			checks["redis"] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
