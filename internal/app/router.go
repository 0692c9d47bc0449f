package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/quantfolio/quantfolio/internal/auth"
	"github.com/quantfolio/quantfolio/internal/authz"
	"github.com/quantfolio/quantfolio/internal/bots"
	"github.com/quantfolio/quantfolio/internal/observability"
	"github.com/quantfolio/quantfolio/internal/shared"
	"github.com/quantfolio/quantfolio/internal/strategies"
	"github.com/quantfolio/quantfolio/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthHandler    *auth.Handler
	AuthzHandler   *authz.ConfigHandler
	ModelsHandler  *strategies.Handler
	BotsHandler    *bots.Handler
	JobsHandler    *jobs.Handler
	JobsGate       authz.Middleware
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with quantfolio defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		if params.AuthzHandler != nil {
			r.Route("/authz", params.AuthzHandler.MountRoutes)
		}
		if params.ModelsHandler != nil {
			r.Route("/models", params.ModelsHandler.MountRoutes)
		}
		if params.BotsHandler != nil {
			r.Route("/bots", params.BotsHandler.MountRoutes)
		}
		if params.JobsHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(params.JobsGate.Require(authz.RoleResearcher))
				params.JobsHandler.MountRoutes(r)
			})
		}
	})

	return r
}
