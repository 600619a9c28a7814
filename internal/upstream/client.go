package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alisproject111/tripeasy-client/internal/models"
)

var (
	// ErrNotFound means the remote API has no such resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadySaved means the booking already exists server-side; callers
	// treat this as a successful, idempotent outcome.
	ErrAlreadySaved = errors.New("booking already saved")
	// ErrUnavailable means the remote API could not be reached at all.
	ErrUnavailable = errors.New("server unreachable")
)

const (
	listRetryAttempts = 3
	listRetryDelay    = 2 * time.Second
	pdfTimeout        = 30 * time.Second
)

// APIError carries the remote API's status code and message through to the
// caller so user-facing errors can repeat what the server said.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client talks to the remote Package/Booking API, the source of truth for
// packages, bookings, payment orders and receipts.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

type packageListResponse struct {
	Success  bool                     `json:"success"`
	Packages []*models.PackageSummary `json:"packages"`
	Message  string                   `json:"message"`
}

type packageResponse struct {
	Success bool                   `json:"success"`
	Package *models.PackageSummary `json:"package"`
	Message string                 `json:"message"`
}

type destinationListResponse struct {
	Success      bool                  `json:"success"`
	Destinations []*models.Destination `json:"destinations"`
	Message      string                `json:"message"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// GetPackages lists all packages. Transient failures are retried a bounded
// number of times with a fixed delay; after that the last error is surfaced
// rather than looping silently.
func (c *Client) GetPackages(ctx context.Context) ([]*models.PackageSummary, error) {
	var lastErr error
	for attempt := 0; attempt < listRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(listRetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var out packageListResponse
		lastErr = c.getJSON(ctx, "/api/packages", &out)
		if lastErr == nil {
			if !out.Success {
				return nil, &APIError{StatusCode: http.StatusOK, Message: out.Message}
			}
			return out.Packages, nil
		}
	}
	return nil, fmt.Errorf("failed to list packages after %d attempts: %w", listRetryAttempts, lastErr)
}

// GetPackage fetches a single package by id.
func (c *Client) GetPackage(ctx context.Context, id string) (*models.PackageSummary, error) {
	var out packageResponse
	if err := c.getJSON(ctx, "/api/packages/"+id, &out); err != nil {
		return nil, err
	}
	if !out.Success || out.Package == nil {
		return nil, ErrNotFound
	}
	return out.Package, nil
}

// GetDestinations lists browsable destinations.
func (c *Client) GetDestinations(ctx context.Context) ([]*models.Destination, error) {
	var out destinationListResponse
	if err := c.getJSON(ctx, "/api/destinations", &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &APIError{StatusCode: http.StatusOK, Message: out.Message}
	}
	return out.Destinations, nil
}

// SubmitBookingRequest sends a pre-payment booking inquiry.
func (c *Client) SubmitBookingRequest(ctx context.Context, inquiry *models.BookingInquiry) error {
	var out statusResponse
	if err := c.postJSON(ctx, "/api/booking-requests", inquiry, &out); err != nil {
		return err
	}
	if !out.Success {
		return &APIError{StatusCode: http.StatusOK, Message: out.Message}
	}
	return nil
}

// CreateOrder requests a payable order from the remote API.
func (c *Client) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	var out models.CreateOrderResponse
	if err := c.postJSON(ctx, "/api/create-order", req, &out); err != nil {
		return nil, err
	}
	if out.OrderID == "" || out.PaymentSessionID == "" {
		return nil, &APIError{StatusCode: http.StatusOK, Message: "malformed create-order response"}
	}
	return &out, nil
}

// VerifyPayment asks the remote API for the authoritative status of an order.
func (c *Client) VerifyPayment(ctx context.Context, orderID string) (*models.VerifyPaymentResponse, error) {
	var out models.VerifyPaymentResponse
	if err := c.getJSON(ctx, "/api/verify-payment/"+orderID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveBooking persists the confirmed booking. A 409 response means the
// booking already exists and is reported as ErrAlreadySaved.
func (c *Client) SaveBooking(ctx context.Context, req *models.SaveBookingRequest, requestID string) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode booking: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/save-booking", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return ErrAlreadySaved
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}
	return nil
}

// SendReceipt triggers server-side receipt email dispatch.
func (c *Client) SendReceipt(ctx context.Context, req *models.SaveBookingRequest) error {
	var out statusResponse
	if err := c.postJSON(ctx, "/api/send-receipt", req, &out); err != nil {
		return err
	}
	if !out.Success {
		return &APIError{StatusCode: http.StatusOK, Message: out.Message}
	}
	return nil
}

// GenerateReceiptPDF asks the remote API to render a receipt PDF. This is
// the only call with a hard client-side timeout.
func (c *Client) GenerateReceiptPDF(ctx context.Context, req *models.SaveBookingRequest) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, pdfTimeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode receipt request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate-receipt", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.decodeError(resp)
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt body: %w", err)
	}
	return pdf, nil
}

// Health checks whether the remote API is reachable.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/ha", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// ProxyAdmin forwards an authorized admin request to the remote API and
// returns its status and body untouched.
func (c *Client) ProxyAdmin(ctx context.Context, method, path, bearerToken string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	if len(body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if bearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read admin response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Message == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: out.Message}
}
