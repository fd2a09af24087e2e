package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/infinity-labs/dominion/internal/authz"
	"github.com/infinity-labs/dominion/internal/directory"
	"github.com/infinity-labs/dominion/internal/observability"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthzHandler     *authz.Handler
	DirectoryHandler *directory.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	checkLimit := 600
	if params.Config != nil && params.Config.CheckRateLimit > 0 {
		checkLimit = params.Config.CheckRateLimit
	}

	r.Route("/v1", func(r chi.Router) {
		if params.AuthzHandler != nil {
			r.Group(func(r chi.Router) {
				r.Use(httprate.Limit(checkLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
				r.Route("/authz", params.AuthzHandler.MountRoutes)
			})
		}
		if params.DirectoryHandler != nil {
			r.Route("/directory", params.DirectoryHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
