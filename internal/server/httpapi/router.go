// Package httpapi is the HTTP JSON boundary of the server, built on chi.
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/go-chi/chi/v5"
)

// RouterDeps collects what NewRouter wires together. RateLimiter,
// Recorder and Metrics may be nil.
type RouterDeps struct {
	Auth        AuthAPI
	Users       UserAPI
	Resolver    auth.PrincipalResolver
	Logger      logging.Logger
	RateLimiter *RateLimiter
	Recorder    ResponseRecorder
	Metrics     http.Handler
}

// NewRouter builds the route tree.
//
// Middleware order: Logging -> Recovery, then RateLimiter on /auth/* and
// Authenticate on /users/*.
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop{}
	}
	h := NewHandler(deps.Auth, deps.Users, logger)

	r := chi.NewRouter()
	r.Use(NewLoggingMiddleware(logger, deps.Recorder))
	r.Use(NewRecoveryMiddleware(logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/healthz", h.Health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware)
		}
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(Authenticate(auth.BearerFromRequest, deps.Resolver, logger))

		r.Get("/me", h.Me)
		r.Patch("/me", h.UpdateMe)
		r.Delete("/me", h.DeleteMe)
		r.Get("/{id}", h.GetUser)
	})

	return r
}
