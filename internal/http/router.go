package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/colmado/internal/http/auth"
	"github.com/MrJamesThe3rd/colmado/internal/http/inventory"
	"github.com/MrJamesThe3rd/colmado/internal/http/ledger"
	"github.com/MrJamesThe3rd/colmado/internal/http/sale"
	"github.com/MrJamesThe3rd/colmado/internal/http/settlement"
	"github.com/MrJamesThe3rd/colmado/internal/http/tax"
)

type Options struct {
	CORSOrigins []string
	JWTSecret   string
	Timeout     time.Duration
}

func New(
	opts Options,
	salesV1 *sale.Handler,
	settlementsV1 *settlement.Handler,
	inventoryV1 *inventory.Handler,
	ledgerV1 *ledger.Handler,
	taxV1 *tax.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(opts.JWTSecret))
		r.Use(middleware.AllowContentType("application/json"))

		r.Route("/sales", salesV1.Routes)
		r.Route("/settlements", settlementsV1.Routes)
		r.Route("/inventory", inventoryV1.Routes)
		r.Route("/ledger", ledgerV1.Routes)
		r.Route("/tax", taxV1.Routes)
	})

	return router
}
