package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	Bookings *BookingHandler
	Orders   *OrderHandler
	Webhooks *WebhookHandler // nil when payments are disabled
	Health   *HealthHandler
}

func NewRouter(h Handlers, jwtSecret []byte, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log.Named("http")))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health.Health)

	r.Route("/api/v1", func(r chi.Router) {
		if h.Webhooks != nil {
			r.Post("/webhooks/omise", h.Webhooks.Omise)
		}

		r.Group(func(r chi.Router) {
			r.Use(Authenticator(jwtSecret))

			r.Get("/events/{id}/availability", h.Bookings.GetAvailability)

			r.Post("/bookings", h.Bookings.CreateBooking)
			r.Get("/bookings", h.Bookings.ListBookings)
			r.Get("/bookings/{id}", h.Bookings.GetBooking)
			r.Post("/bookings/{id}/cancel", h.Bookings.CancelBooking)

			r.Post("/orders", h.Orders.CreateOrder)
			r.Get("/orders/{id}", h.Orders.GetOrder)
			r.Get("/orders/{id}/history", h.Orders.GetHistory)
			r.Get("/orders/{id}/grants", h.Orders.GetGrants)
			r.Post("/orders/{id}/payment-intent", h.Orders.StartPayment)
			r.Post("/orders/{id}/cancel", h.Orders.Cancel)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(RoleAdmin))
				r.Post("/orders/{id}/payment-reference", h.Orders.AttachPaymentReference)
				r.Post("/orders/{id}/mark-paid", h.Orders.MarkPaid)
				r.Post("/orders/{id}/fulfill", h.Orders.Fulfill)
				r.Post("/orders/{id}/refund", h.Orders.Refund)
			})
		})
	})

	return r
}
