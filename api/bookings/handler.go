package bookings

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	corebooking "github.com/kilianp07/agriroute/core/booking"
	"github.com/kilianp07/agriroute/infra/booking"
)

// Ledger answers booking queries. *booking.JSONLSink satisfies it.
type Ledger interface {
	Query(ctx context.Context, q booking.Query) ([]corebooking.Booking, error)
}

// NewLogHandler returns an HTTP handler exposing the booking ledger via GET /api/bookings.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
func NewLogHandler(store Ledger, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		q := booking.Query{}
		if s := r.URL.Query().Get("start"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid start", http.StatusBadRequest)
				return
			}
			q.Start = t
		}
		if s := r.URL.Query().Get("end"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid end", http.StatusBadRequest)
				return
			}
			q.End = t
		}
		q.VehicleID = r.URL.Query().Get("vehicle_id")
		q.Product = r.URL.Query().Get("product")
		q.Channel = r.URL.Query().Get("channel")
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []corebooking.Booking{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
