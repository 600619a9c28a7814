package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/alisproject111/tripeasy-client/internal/booking"
	"github.com/alisproject111/tripeasy-client/internal/models"
	"github.com/alisproject111/tripeasy-client/internal/service"
	"github.com/alisproject111/tripeasy-client/internal/upstream"
	"github.com/alisproject111/tripeasy-client/internal/websocket"
)

// Handler contains HTTP handlers for the portal API
type Handler struct {
	portal service.PortalService
	hub    *websocket.Hub
}

// NewHandler creates a new Handler instance
func NewHandler(portal service.PortalService, hub *websocket.Hub) *Handler {
	return &Handler{
		portal: portal,
		hub:    hub,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service-layer failures to HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	var apiErr *upstream.APIError
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, upstream.ErrUnavailable):
		respondError(w, http.StatusBadGateway, "Server unreachable")
	case errors.As(err, &apiErr):
		respondError(w, http.StatusBadGateway, apiErr.Message)
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// GetPackages handles GET /api/packages
func (h *Handler) GetPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.portal.GetPackages(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, packages)
}

// GetPackage handles GET /api/packages/{id}
func (h *Handler) GetPackage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	pkg, err := h.portal.GetPackage(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Package not found")
			return
		}
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pkg)
}

// GetDestinations handles GET /api/destinations
func (h *Handler) GetDestinations(w http.ResponseWriter, r *http.Request) {
	destinations, err := h.portal.GetDestinations(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, destinations)
}

type draftUpdateRequest struct {
	Field         string `json:"field"`
	Value         string `json:"value"`
	TravelerIndex *int   `json:"travelerIndex,omitempty"`
}

// GetDraft handles GET /api/bookings/{packageId}/draft
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	packageID := mux.Vars(r)["packageId"]
	view, err := h.portal.GetDraft(r.Context(), packageID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// UpdateDraft handles PUT /api/bookings/{packageId}/draft
func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	packageID := mux.Vars(r)["packageId"]

	var req draftUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Field == "" {
		respondError(w, http.StatusBadRequest, "Field is required")
		return
	}

	var view *service.DraftView
	var err error
	if req.TravelerIndex != nil {
		view, err = h.portal.UpdateTraveler(r.Context(), packageID, *req.TravelerIndex, req.Field, req.Value)
	} else {
		view, err = h.portal.UpdateDraftField(r.Context(), packageID, req.Field, req.Value)
	}
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Package not found")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, view)
}

type travelerCountRequest struct {
	Count int `json:"count"`
}

// SetTravelerCount handles PUT /api/bookings/{packageId}/travelers
func (h *Handler) SetTravelerCount(w http.ResponseWriter, r *http.Request) {
	packageID := mux.Vars(r)["packageId"]

	var req travelerCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := h.portal.SetTravelerCount(r.Context(), packageID, req.Count)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// SubmitInquiry handles POST /api/bookings/{packageId}/inquiry
func (h *Handler) SubmitInquiry(w http.ResponseWriter, r *http.Request) {
	packageID := mux.Vars(r)["packageId"]

	view, err := h.portal.SubmitInquiry(r.Context(), packageID)
	if err != nil {
		if errors.Is(err, booking.ErrValidation) {
			respondJSON(w, http.StatusUnprocessableEntity, view)
			return
		}
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Checkout handles POST /api/bookings/{packageId}/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	packageID := mux.Vars(r)["packageId"]

	result, view, err := h.portal.Checkout(r.Context(), packageID)
	if err != nil {
		if errors.Is(err, booking.ErrValidation) {
			respondJSON(w, http.StatusUnprocessableEntity, view)
			return
		}
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// PaymentReturn handles GET /payment/return, the gateway's redirect target.
func (h *Handler) PaymentReturn(w http.ResponseWriter, r *http.Request) {
	orderID, err := h.portal.HandleGatewayReturn(r.Context(), r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"orderId": orderID})
}

// GetSettlement handles GET /api/settlements/{orderId}
func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	status, err := h.portal.SettlementStatus(r.Context(), orderID)
	if err != nil {
		respondError(w, http.StatusNotFound, "No settlement for order")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// RetryReceiptEmail handles POST /api/settlements/{orderId}/email
func (h *Handler) RetryReceiptEmail(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	if err := h.portal.RetryReceiptEmail(r.Context(), orderID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(w, http.StatusNotFound, "No settlement for order")
			return
		}
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Receipt sent"})
}

// SettlementWS handles GET /api/settlements/{orderId}/ws
func (h *Handler) SettlementWS(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]
	h.hub.ServeWS(w, r, orderID)
}

// RenderReceipt handles POST /api/receipts
func (h *Handler) RenderReceipt(w http.ResponseWriter, r *http.Request) {
	var req models.SaveBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	doc := h.portal.RenderReceipt(r.Context(), &req)
	respondJSON(w, http.StatusOK, doc)
}

// ReceiptPDF handles POST /api/receipts/pdf
func (h *Handler) ReceiptPDF(w http.ResponseWriter, r *http.Request) {
	var req models.SaveBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pdf, err := h.portal.ReceiptPDF(r.Context(), &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="receipt.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// HealthCheck handles GET /api/health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.portal.Health(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// AdminProxy handles /api/admin/packages and /api/admin/packages/{id},
// forwarding the caller's bearer token to the remote API.
func (h *Handler) AdminProxy(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	upstreamPath := r.URL.Path
	if r.URL.RawQuery != "" {
		upstreamPath += "?" + r.URL.RawQuery
	}
	status, respBody, err := h.portal.ProxyAdmin(r.Context(), r.Method, upstreamPath, token, body)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(respBody)
}
