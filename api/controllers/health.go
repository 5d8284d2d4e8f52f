package controllers

import (
	"net/http"

	"github.com/tableside/tableside/api/responses"
	"github.com/tableside/tableside/pkg/config"

	"github.com/tableside/tableside/internal/session"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tableside-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports live once the first orders snapshot has landed; before
// that the daemon is up but has nothing trustworthy to show.
func HealthReady(cfg *config.Config, engine *session.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tableside-Env", cfg.App.Env)
		_, loaded := engine.Orders()
		if !loaded {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "warming"})
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
