package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/auth"
	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/observability"
	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/rbac"
	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/roles"
	"github.com/FreezerDie/GameKeyStoreBackEnd/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	Verifier     auth.Verifier
	Gate         rbac.Gate
	RBACHandler  *rbac.Handler
	RolesHandler *roles.Handler
	UsersHandler *users.Handler
	Metrics      *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Verifier: params.Verifier,
		Metrics:  params.Metrics,
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

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(auth.RequireIdentity)
		api.Route("/rbac", func(rt chi.Router) {
			params.RBACHandler.MountRoutes(rt, params.Gate)
		})
		api.Route("/roles", func(rt chi.Router) {
			params.RolesHandler.MountRoutes(rt, params.Gate)
		})
		api.Route("/users", func(rt chi.Router) {
			params.UsersHandler.MountRoutes(rt, params.Gate)
		})
	})

	return r
}
