package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/api/responses"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/config"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
)

const (
	envHeader        = "X-Fresaterra-Env"
	readinessTimeout = 2 * time.Second
)

// Pinger is a dependency the API needs before it can serve traffic.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every named dependency and fails with 503 when any is down.
func HealthReady(cfg *config.Config, deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		var failed []string
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				failed = append(failed, name)
				continue
			}
			checks[name] = "up"
		}

		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").
				WithDetails(map[string]any{"checks": checks}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
