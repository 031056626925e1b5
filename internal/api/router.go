// Package api assembles the HTTP surface of the assistant.
package api

import (
	"net/http"

	"github.com/dvloznov/monomind/internal/api/handlers"
	"github.com/dvloznov/monomind/internal/api/middleware"
	"github.com/dvloznov/monomind/internal/jobs"
	"github.com/dvloznov/monomind/internal/pipeline"
	"github.com/dvloznov/monomind/internal/risk"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "monomind"

// Dependencies are the services behind the routes. Users and Jobs are
// optional; their routes are not mounted when nil.
type Dependencies struct {
	Chat     handlers.ChatService
	Ledger   pipeline.LedgerStore
	Assessor *risk.Assessor
	Users    handlers.UserStore
	Jobs     jobs.JobStore
}

// Options tune the router.
type Options struct {
	CORSOrigin string
}

// NewRouter builds the chi router with every middleware and route.
func NewRouter(log zerolog.Logger, deps Dependencies, opts Options) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestID(log))
	router.Use(middleware.Logger)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS(opts.CORSOrigin))

	health := handlers.NewHealthHandler(ServiceName)
	router.Get("/health", health.Health)

	router.Route("/api/v1", func(r chi.Router) {
		if deps.Chat != nil {
			r.Post("/chat", handlers.NewChatHandler(deps.Chat).Ask)
		}
		if deps.Ledger != nil && deps.Assessor != nil {
			finance := handlers.NewFinanceHandler(deps.Ledger, deps.Assessor)
			r.Get("/users/{user_id}/metrics", finance.Metrics)
			r.Post("/users/{user_id}/assess", finance.Assess)
		}
		if deps.Jobs != nil {
			runs := handlers.NewRunsHandler(deps.Jobs)
			r.Get("/runs/{run_id}", runs.GetRun)
			r.Get("/users/{user_id}/runs", runs.ListRuns)
		}
		if deps.Users != nil {
			ledger := handlers.NewLedgerHandler(deps.Users)
			r.Post("/users", ledger.CreateUser)
			r.Get("/users/{user_id}", ledger.GetUser)
			r.Post("/transactions", ledger.CreateTransaction)
		}
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return router
}
