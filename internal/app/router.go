package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/courierdash/courierdash/internal/auth"
	"github.com/courierdash/courierdash/internal/authz"
	"github.com/courierdash/courierdash/internal/guard"
	"github.com/courierdash/courierdash/internal/home"
	"github.com/courierdash/courierdash/internal/observability"
	"github.com/courierdash/courierdash/internal/orders"
	"github.com/courierdash/courierdash/internal/riders"
	"github.com/courierdash/courierdash/internal/settings"
	"github.com/courierdash/courierdash/internal/shared"
	"github.com/courierdash/courierdash/internal/users"
	"github.com/courierdash/courierdash/jobs"
	"github.com/courierdash/courierdash/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	SessionManager  *shared.SessionManager
	CSRFManager     *shared.CSRFManager
	Guard           *guard.Guard
	AuthzMiddleware authz.Middleware

	AuthHandler     *auth.Handler
	HomeHandler     *home.Handler
	OrdersHandler   *orders.Handler
	UsersHandler    *users.Handler
	RidersHandler   *riders.Handler
	SettingsHandler *settings.Handler
	JobsHandler     *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Courierdash defaults. Everything
// except login, health and metrics sits behind the route guard.
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

	params.AuthHandler.MountRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(params.Guard.Protect)

		params.HomeHandler.MountRoutes(r)
		r.Route("/orders", params.OrdersHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/riders", params.RidersHandler.MountRoutes)
		r.Route("/settings", func(r chi.Router) {
			// Settings is gated as a whole, not per control.
			r.Use(params.AuthzMiddleware.Require(authz.ResourceSettings, authz.ActionView))
			params.SettingsHandler.MountRoutes(r)
		})
		if params.JobsHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(params.AuthzMiddleware.Require(authz.ResourceSettings, authz.ActionView))
				params.JobsHandler.MountRoutes(r)
			})
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
