package controllers

import (
	"net/http"

	"github.com/tableside/tableside/api/responses"
	"github.com/tableside/tableside/pkg/enums"
	"github.com/tableside/tableside/pkg/logger"

	"github.com/tableside/tableside/internal/session"
)

type timelineResponse struct {
	Step enums.TimelineStep `json:"step"`
}

func TimelineFetch(engine *session.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, timelineResponse{Step: engine.TimelineStep()})
	}
}
