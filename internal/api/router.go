/**
 * @description
 * HTTP router setup for the settlement service using go-chi/chi.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the settlement routes.
func NewRouter(h *Handler, jwksURL string, internalKey string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Internal-API-Key", SignatureHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Settlement service is healthy"))
	})

	// The gateway endpoint authenticates via the HMAC signature, not a token.
	r.Post("/webhooks/gateway", h.handleGatewayWebhook)

	r.Route("/internal", func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalKey))
		r.Post("/earnings/{id}/settle", h.handleSettleEarning)
		r.Get("/releases/{id}/recuperable-balance", h.handleRecuperableBalance)
	})

	r.Group(func(r chi.Router) {
		r.Use(AdminAuthMiddleware(jwksURL))
		r.Get("/orders/{id}", h.handleGetOrder)
		r.Post("/orders/{id}/resend", h.handleResendOrder)
		r.Post("/orders/{id}/cancel", h.handleCancelOrder)
	})

	return r
}
