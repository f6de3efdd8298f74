package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/account"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/budget"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/category"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/export"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/importcsv"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/matching"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/transaction"
	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/http/transfer"
)

// Handlers groups the v1 API handlers.
type Handlers struct {
	Accounts     *account.Handler
	Categories   *category.Handler
	Transactions *transaction.Handler
	Transfers    *transfer.Handler
	Budgets      *budget.Handler
	Rules        *matching.Handler
	Import       *importcsv.Handler
	Export       *export.Handler
}

// New builds the API router. Every /api/v1 route requires authentication.
func New(h Handlers, authenticate func(http.Handler) http.Handler, allowedOrigins []string) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Row-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticate)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))

			r.Route("/accounts", h.Accounts.Routes)
			r.Route("/categories", h.Categories.Routes)
			r.Route("/transactions", h.Transactions.Routes)
			r.Route("/transfers", h.Transfers.Routes)
			r.Route("/budgets", h.Budgets.Routes)
			r.Route("/rules", h.Rules.Routes)
		})

		r.Route("/import", h.Import.Routes)
		r.Route("/export", h.Export.Routes)
	})

	return router
}
