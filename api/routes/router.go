package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tableside/tableside/api/controllers"
	"github.com/tableside/tableside/api/middleware"
	"github.com/tableside/tableside/pkg/config"
	"github.com/tableside/tableside/pkg/logger"

	"github.com/tableside/tableside/internal/draft"
	"github.com/tableside/tableside/internal/session"
)

// NewRouter wires the table-session surface: the draft cart, the reconciled
// order view, the timeline, and the closure banner.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	engine *session.Engine,
	draftStore *draft.Store,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, engine))
	})

	if cfg.Metrics.Enabled && registry != nil {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(draftStore, logg))
			r.Delete("/", controllers.CartClear(draftStore, logg))
			r.Post("/items", controllers.CartAdd(draftStore, logg))
			r.Put("/items/{dishId}", controllers.CartSetQuantity(draftStore, logg))
			r.Delete("/items/{dishId}", controllers.CartRemove(draftStore, logg))
		})

		r.Route("/order", func(r chi.Router) {
			r.Get("/groups", controllers.OrderGroups(engine, logg))
			r.Post("/groups/{dishId}/quantity", controllers.OrderAdjustQuantity(engine, logg))
			r.Post("/submit", controllers.OrderSubmit(engine, logg))
		})

		r.Get("/timeline", controllers.TimelineFetch(engine, logg))

		r.Route("/closure", func(r chi.Router) {
			r.Get("/", controllers.ClosureFetch(engine, logg))
			r.Post("/dismiss", controllers.ClosureDismiss(engine, logg))
		})
	})

	return r
}
