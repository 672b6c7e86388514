package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/nahuelcoria/tienda-backend/api/responses"
	"github.com/nahuelcoria/tienda-backend/pkg/config"
	pkgerrors "github.com/nahuelcoria/tienda-backend/pkg/errors"
	"github.com/nahuelcoria/tienda-backend/pkg/kv"
	"github.com/nahuelcoria/tienda-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tienda-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the key/value store is reachable before reporting ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, store kv.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tienda-Env", cfg.App.Env)

		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "key/value store unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
