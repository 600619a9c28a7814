package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alisproject111/tripeasy-client/internal/handlers"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(h *handlers.Handler) *mux.Router {
	r := mux.NewRouter()

	// CORS middleware
	r.Use(corsMiddleware)

	// Gateway return target lives outside /api: the payment gateway
	// navigates the browser straight here.
	r.HandleFunc("/payment/return", h.PaymentReturn).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Catalog
	api.HandleFunc("/packages", h.GetPackages).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/packages/{id}", h.GetPackage).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/destinations", h.GetDestinations).Methods(http.MethodGet, http.MethodOptions)

	// Booking form
	api.HandleFunc("/bookings/{packageId}/draft", h.GetDraft).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/bookings/{packageId}/draft", h.UpdateDraft).Methods(http.MethodPut, http.MethodOptions)
	api.HandleFunc("/bookings/{packageId}/travelers", h.SetTravelerCount).Methods(http.MethodPut, http.MethodOptions)
	api.HandleFunc("/bookings/{packageId}/inquiry", h.SubmitInquiry).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/bookings/{packageId}/checkout", h.Checkout).Methods(http.MethodPost, http.MethodOptions)

	// Settlement
	api.HandleFunc("/settlements/{orderId}", h.GetSettlement).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/settlements/{orderId}/email", h.RetryReceiptEmail).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/settlements/{orderId}/ws", h.SettlementWS)

	// Receipts
	api.HandleFunc("/receipts", h.RenderReceipt).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/receipts/pdf", h.ReceiptPDF).Methods(http.MethodPost, http.MethodOptions)

	// Admin proxy
	api.PathPrefix("/admin/packages").HandlerFunc(h.AdminProxy)

	// Health check
	api.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
