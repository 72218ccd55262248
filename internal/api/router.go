// internal/api/router.go
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"finflow-ledger/internal/api/handler"
	authmw "finflow-ledger/internal/api/middleware"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Wallet     *handler.WalletHandler
	Investment *handler.InvestmentHandler
	Request    *handler.RequestHandler
}

// NewRouter sets up and returns a new HTTP router. jwtSecret verifies Bearer tokens on every
// /api/v1 route except the public plan catalog.
func NewRouter(h Handlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(authmw.Metrics)
	r.Use(middleware.Timeout(handler.DefaultTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", h.Investment.ListPlans)

		r.Group(func(r chi.Router) {
			r.Use(authmw.Authenticate(jwtSecret))

			r.Get("/wallet", h.Wallet.GetWallet)
			r.Get("/wallet/overview", h.Wallet.GetOverview)
			r.Get("/transactions", h.Wallet.ListTransactions)

			r.Route("/investments", func(r chi.Router) {
				r.Post("/", h.Investment.Start)
				r.Get("/", h.Investment.List)
				r.Get("/active", h.Investment.ListActive)
				r.Get("/{id}", h.Investment.Get)
				r.Get("/{id}/profit", h.Investment.GetProfit)
			})

			r.Post("/deposits", h.Request.CreateDeposit)
			r.Get("/deposits", h.Request.ListDeposits)
			r.Post("/withdrawals", h.Request.CreateWithdrawal)
			r.Get("/withdrawals", h.Request.ListWithdrawals)

			r.Route("/admin", func(r chi.Router) {
				r.Use(authmw.RequireAdmin)

				r.Post("/investments/complete-expired", h.Investment.CompleteExpired)
				r.Patch("/deposits/{id}", h.Request.DecideDeposit)
				r.Patch("/withdrawals/{id}", h.Request.DecideWithdrawal)
				r.Get("/transactions", h.Wallet.AdminListTransactions)
				r.Get("/wallets/{userID}/reconcile", h.Wallet.Reconcile)
				r.Post("/wallets/{userID}/adjustments", h.Wallet.Adjust)
			})
		})
	})

	return r
}
