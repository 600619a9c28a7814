package models

import "time"

// OrderStatus is the payment-gateway-tracked status of an order. Terminal
// statuses come only from server-side verification, never inferred locally.
type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "CREATED"
	OrderStatusPaid    OrderStatus = "PAID"
	OrderStatusFailed  OrderStatus = "FAILED"
	OrderStatusExpired OrderStatus = "EXPIRED"
)

// OrderRecord represents one payment attempt. Wire field names follow the
// remote API's contract.
type OrderRecord struct {
	OrderID     string      `json:"order_id"`
	OrderAmount float64     `json:"order_amount"`
	OrderStatus OrderStatus `json:"order_status"`
	PaymentTime time.Time   `json:"payment_time"`
	BookingDate time.Time   `json:"booking_date"`
}

// CustomerDetails identifies the paying customer to the gateway.
type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

// CreateOrderRequest is the payload for the remote create-order endpoint.
type CreateOrderRequest struct {
	Amount          float64         `json:"amount"`
	Currency        string          `json:"currency"`
	CustomerDetails CustomerDetails `json:"customerDetails"`
}

// CreateOrderResponse carries the gateway session the hosted checkout needs.
type CreateOrderResponse struct {
	OrderID          string  `json:"order_id"`
	OrderAmount      float64 `json:"order_amount"`
	PaymentSessionID string  `json:"payment_session_id"`
}

// VerifyPaymentResponse is the remote verification result for an order.
type VerifyPaymentResponse struct {
	Status  OrderStatus  `json:"status"`
	Message string       `json:"message"`
	Data    *OrderRecord `json:"data,omitempty"`
}

// SaveBookingRequest is the confirmed booking record persisted after a
// successful payment.
type SaveBookingRequest struct {
	OrderData      *OrderRecord    `json:"orderData"`
	BookingDetails *BookingDraft   `json:"bookingDetails"`
	PackageDetails *PackageSummary `json:"packageDetails"`
}
