package router

import (
	"net/http"

	"mediahub-credits-api/internal/handler"
	"mediahub-credits-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handlers holds all HTTP handlers for the API.
type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Purchase *handler.PurchaseHandler
	Wallet   *handler.WalletHandler
	Media    *handler.MediaHandler
	Admin    *handler.AdminHandler
}

// Config holds router configuration.
type Config struct {
	Auth middleware.AuthConfig
}

// New creates and configures the main router.
func New(h Handlers, cfg Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Token", "X-User-ID", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Public status endpoint
	r.Get("/api/status", h.Health.Status)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health.Health)
		r.Get("/ready", h.Health.Ready)

		// Session management
		r.Route("/auth", func(r chi.Router) {
			r.Post("/sessions", h.Auth.CreateSession)
			r.Post("/sessions/refresh", h.Auth.RefreshSession)
			r.Delete("/sessions", h.Auth.RevokeSession)
		})

		// Authenticated API surface
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthMiddleware(cfg.Auth))

			r.Post("/purchases", h.Purchase.Purchase)

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/balance", h.Wallet.GetBalance)
				r.Get("/unlocks", h.Wallet.ListUnlocks)
			})

			r.Get("/sales", h.Wallet.ListSales)

			r.Get("/media/{media_id}", h.Media.GetMedia)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/stats", h.Admin.GetStats)
				r.Post("/cleanup", h.Admin.TriggerCleanup)
			})
		})
	})

	return r
}
