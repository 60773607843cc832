package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/movemarket-backend/api/responses"
	"github.com/angelmondragon/movemarket-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
	"github.com/angelmondragon/movemarket-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is any dependency that can report its own liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck names one dependency checked by HealthReady.
type ReadinessCheck struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MoveMarket-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady answers 503 when any dependency fails its ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MoveMarket-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := map[string]string{}
		failed := false
		for _, check := range checks {
			if check.Pinger == nil {
				continue
			}
			if err := check.Pinger.Ping(ctx); err != nil {
				failed = true
				status[check.Name] = "down"
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": check.Name, "error": err.Error()}), "health.dependency_down")
				}
				continue
			}
			status[check.Name] = "up"
		}

		if failed {
			responses.WriteError(r.Context(), nil, w, pkgerrors.NewBilingual(pkgerrors.CodeDependency, "service not ready", "tjänsten är inte redo").WithDetails(status))
			return
		}
		status["status"] = "ready"
		responses.WriteSuccess(w, status)
	}
}
