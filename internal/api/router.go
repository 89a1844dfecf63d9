package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter registers all API endpoints. verify may be nil; the
// verification routes are mounted only when a code store is configured.
func NewRouter(svc BookingService, verify VerificationService) http.Handler {
	h := NewHandler(svc, verify)
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/user/{userID}", func(r chi.Router) {
		r.Post("/bookings", h.CommitBookingHandler)
		r.Get("/bookings", h.ListBookingsHandler)
		r.Get("/bookings/{bookingID}", h.GetBookingHandler)
		r.Patch("/bookings/{bookingID}", h.EditBookingHandler)
		r.Post("/bookings/{bookingID}/cancel", h.CancelBookingHandler)

		r.Get("/wallet", h.GetWalletHandler)
		r.Get("/wallet/entries", h.ListWalletEntriesHandler)
	})

	if verify != nil {
		r.Post("/verification/codes", h.IssueCodeHandler)
		r.Post("/verification/confirm", h.ConfirmCodeHandler)
	}

	return r
}
