package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sevasangam/puja-bookings/internal/observability"
	"github.com/sevasangam/puja-bookings/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(MetricsMiddleware)
	r.Use(TracingMiddleware)
	r.Use(ActorMiddleware)
	r.Use(RateLimitMiddleware(rl))

	r.Post("/v1/payments/intent", h.CreatePaymentIntent)
	r.With(IdempotencyKeyMiddleware).Post("/v1/payments/verify", h.VerifyPayment)

	r.Get("/v1/orders/unassigned", h.ListUnassigned)
	r.Get("/v1/orders/{id}", h.GetOrder)
	r.Post("/v1/orders/{id}/assign", h.AssignPandit)
	r.Post("/v1/orders/{id}/unassign", h.UnassignPandit)
	r.Post("/v1/orders/{id}/status", h.SetFulfillmentStatus)
	r.Post("/v1/orders/{id}/proof", h.AttachProof)
	r.Post("/v1/orders/{id}/cancel", h.CancelOrder)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
