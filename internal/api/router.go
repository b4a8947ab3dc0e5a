package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/CrewMatch/internal/store"
)

type RouterConfig struct {
	AdminToken string
	RateLimit  int
}

// NewRouter mounts the public job endpoints and the token-guarded operator
// endpoints. roster is what admins see (cache included); cache may be nil.
func NewRouter(o Optimiser, s store.Store, roster store.RosterSource, cache RosterInvalidator, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(cfg.RateLimit))

	jobs := NewJobsHandler(o, s, logger)
	admin := NewAdminHandler(roster, cache, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/jobs/optimise", jobs.Optimise)
		r.Post("/jobs/preview", jobs.Preview)
		r.Get("/jobs/{id}", jobs.Get)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminToken))
			r.Get("/workers", admin.Workers)
			r.Post("/roster/refresh", admin.RefreshRoster)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
