// Package http assembles the HTTP surface: middleware chain, page routes,
// API routes, and the metrics endpoint.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accounthandler "quizforge/internal/account/handler"
	"quizforge/internal/auth/guard"
	"quizforge/internal/auth/session"
	"quizforge/internal/platform/middleware"
	quizhandler "quizforge/internal/quiz/handler"
)

// Deps is everything the router needs, built in cmd/server.
type Deps struct {
	Logger   *slog.Logger
	Resolver *session.Resolver
	Guard    *guard.Guard
	Accounts *accounthandler.Handler
	Quizzes  *quizhandler.Handler
}

// NewRouter builds the full chi router. The session is resolved exactly once
// per request, ahead of the guard, so every downstream consumer reads the
// same answer from the context.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Tracing)
	r.Use(deps.Resolver.Middleware)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Page routes run behind the guard so role-gated redirection happens
	// before any page handler.
	r.Group(func(r chi.Router) {
		r.Use(deps.Guard.Middleware)
		registerPages(r)
	})

	// API routes enforce roles per route group and answer 401 JSON instead
	// of redirecting.
	deps.Accounts.Register(r)
	deps.Quizzes.Register(r)

	return r
}
