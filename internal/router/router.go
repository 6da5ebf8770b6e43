package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/TheoDuToit1/sella/internal/handler"
)

type Handlers struct {
	Order   *handler.OrderHandler
	Payment *handler.PaymentHandler
	Weight  *handler.WeightHandler
	Health  *handler.HealthHandler
}

// New builds the HTTP route table for the API surface.
func New(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.Order.CreateOrder)
			r.Get("/", h.Order.ListOrders)
			r.Get("/{id}", h.Order.GetOrderByID)
		})

		r.Route("/payments/payfast", func(r chi.Router) {
			r.Post("/", h.Payment.CreatePayment)
			r.Post("/notify", h.Payment.Notify)
			r.Get("/notify", h.Payment.NotifyProbe)
		})

		r.Post("/order-items/{id}/finalize-weight", h.Weight.FinalizeWeight)
	})

	return r
}
