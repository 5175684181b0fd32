package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts all reservation endpoints on a chi router.
func NewRouter(h *HTTPHandler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/trips", h.RegisterTrip)
		r.Get("/trips/{tripID}", h.GetTrip)
		r.Patch("/trips/{tripID}/status", h.UpdateTripStatus)

		r.Post("/holds", h.CreateHold)
		r.Get("/holds/{holdID}", h.GetHold)
		r.Delete("/holds/{holdID}", h.CancelHold)

		r.Post("/payments/confirm", h.ConfirmPayment)

		r.Get("/tickets/{ticketID}", h.GetTicket)
		r.Get("/tickets/code/{code}", h.GetTicketByCode)
		r.Post("/tickets/{ticketID}/board", h.BoardTicket)
		r.Post("/tickets/{ticketID}/transfer", h.CreateTransferToken)
		r.Post("/tickets/{ticketID}/cancel", h.CancelTicket)
		r.Post("/transfers/redeem", h.RedeemTransfer)

		r.Post("/bookings/round-trip", h.BookRoundTrip)
		r.Get("/bookings/{bookingID}", h.GetBooking)
		r.Post("/bookings/{bookingID}/confirm", h.ConfirmBooking)

		r.Get("/admin/sweeper", h.SweeperStatus)
	})

	return r
}
