package controllers

import (
	"net/http"

	"github.com/tableside/tableside/api/responses"
	"github.com/tableside/tableside/pkg/logger"

	"github.com/tableside/tableside/internal/closure"
	"github.com/tableside/tableside/internal/session"
)

type closureResponse struct {
	Notification *closure.Notification `json:"notification"`
}

func ClosureFetch(engine *session.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, closureResponse{Notification: engine.Closure()})
	}
}

func ClosureDismiss(engine *session.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine.DismissClosure()
		responses.WriteSuccess(w, map[string]string{"status": "dismissed"})
	}
}
