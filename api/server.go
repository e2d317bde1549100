/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend, origins from config
  5. Auth:       /api only; resolves the acting user (auth.go)

ROUTE GROUPS:
  /health               Liveness, unauthenticated
  /api/wallets/*        Wallets and per-wallet views
  /api/transactions/*   Income and expense records
  /api/transfers/*      Wallet-to-wallet movements
  /api/debts/*          Informational debts
  /api/scenarios/*      Demo data, only with RouterOptions.Scenarios

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	AllowedOrigins []string
	Auth           *Authenticator
	Scenarios      bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", DevUserHeader},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(opts.Auth.Middleware)

		r.Route("/wallets", func(r chi.Router) {
			r.Get("/", h.ListWallets)
			r.Post("/", h.CreateWallet)
			r.Get("/summary", h.WalletSummary)
			r.Get("/{id}", h.GetWallet)
			r.Put("/{id}", h.UpdateWallet)
			r.Delete("/{id}", h.DeleteWallet)
			r.Post("/{id}/balance", h.UpdateBalance)
			r.Get("/{id}/transactions", h.WalletTransactions)
			r.Get("/{id}/transfers", h.WalletTransfers)
			r.Get("/{id}/transfers/summary", h.WalletTransferSummary)
			r.Get("/{id}/debts", h.WalletDebts)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Post("/bulk", h.BulkCreateTransactions)
			r.Get("/summary", h.TransactionSummary)
			r.Get("/{id}", h.GetTransaction)
			r.Put("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Get("/", h.ListTransfers)
			r.Post("/", h.CreateTransfer)
			r.Get("/summary", h.TransferSummary)
			r.Get("/{id}", h.GetTransfer)
			r.Delete("/{id}", h.DeleteTransfer)
		})

		r.Route("/debts", func(r chi.Router) {
			r.Get("/", h.ListDebts)
			r.Post("/", h.CreateDebt)
			r.Get("/summary", h.DebtSummary)
			r.Get("/{id}", h.GetDebt)
			r.Put("/{id}", h.UpdateDebt)
			r.Delete("/{id}", h.DeleteDebt)
			r.Post("/{id}/paid", h.MarkDebtPaid)
		})

		if opts.Scenarios {
			r.Get("/scenarios", h.ListScenarios)
			r.Post("/scenarios/load", h.LoadScenario)
		}
	})

	return r
}
