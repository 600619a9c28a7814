package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/alisproject111/tripeasy-client/internal/booking"
	"github.com/alisproject111/tripeasy-client/internal/gateway"
	"github.com/alisproject111/tripeasy-client/internal/models"
	"github.com/alisproject111/tripeasy-client/internal/receipt"
	"github.com/alisproject111/tripeasy-client/internal/settlement"
	"github.com/alisproject111/tripeasy-client/internal/store"
	"github.com/alisproject111/tripeasy-client/internal/upstream"
)

// ErrNotFound means the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Upstream is the remote API surface the portal service depends on.
type Upstream interface {
	GetPackages(ctx context.Context) ([]*models.PackageSummary, error)
	GetPackage(ctx context.Context, id string) (*models.PackageSummary, error)
	GetDestinations(ctx context.Context) ([]*models.Destination, error)
	SubmitBookingRequest(ctx context.Context, inquiry *models.BookingInquiry) error
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error)
	VerifyPayment(ctx context.Context, orderID string) (*models.VerifyPaymentResponse, error)
	SaveBooking(ctx context.Context, req *models.SaveBookingRequest, requestID string) error
	SendReceipt(ctx context.Context, req *models.SaveBookingRequest) error
	GenerateReceiptPDF(ctx context.Context, req *models.SaveBookingRequest) ([]byte, error)
	Health(ctx context.Context) error
	ProxyAdmin(ctx context.Context, method, path, bearerToken string, body []byte) (int, []byte, error)
}

// DraftView is the booking form state returned after every draft operation.
// StaleCheckout is true exactly once after a checkout redirect was started
// but the user navigated back, so the browser can reset a stuck
// "processing" state.
type DraftView struct {
	Draft         *models.BookingDraft `json:"draft"`
	Errors        *booking.ErrorMap    `json:"errors"`
	TotalPrice    float64              `json:"totalPrice"`
	StaleCheckout bool                 `json:"staleCheckout,omitempty"`
}

// CheckoutResult carries everything the browser needs to hand off to the
// hosted payment page.
type CheckoutResult struct {
	OrderID     string  `json:"orderId"`
	CheckoutURL string  `json:"checkoutUrl"`
	TotalPrice  float64 `json:"totalPrice"`
}

// PortalService defines the portal's application operations.
type PortalService interface {
	GetPackages(ctx context.Context) ([]*models.PackageSummary, error)
	GetPackage(ctx context.Context, id string) (*models.PackageSummary, error)
	GetDestinations(ctx context.Context) ([]*models.Destination, error)

	GetDraft(ctx context.Context, packageID string) (*DraftView, error)
	UpdateDraftField(ctx context.Context, packageID, field, value string) (*DraftView, error)
	UpdateTraveler(ctx context.Context, packageID string, index int, field, value string) (*DraftView, error)
	SetTravelerCount(ctx context.Context, packageID string, count int) (*DraftView, error)
	SubmitInquiry(ctx context.Context, packageID string) (*DraftView, error)

	Checkout(ctx context.Context, packageID string) (*CheckoutResult, *DraftView, error)
	HandleGatewayReturn(ctx context.Context, query url.Values) (string, error)
	SettlementStatus(ctx context.Context, orderID string) (models.SettlementStatus, error)
	RetryReceiptEmail(ctx context.Context, orderID string) error

	RenderReceipt(ctx context.Context, req *models.SaveBookingRequest) receipt.Document
	ReceiptPDF(ctx context.Context, req *models.SaveBookingRequest) ([]byte, error)

	Health(ctx context.Context) error
	ProxyAdmin(ctx context.Context, method, path, bearerToken string, body []byte) (int, []byte, error)
}

// portalServiceImpl implements PortalService.
type portalServiceImpl struct {
	api         Upstream
	kv          store.KV
	redirector  *gateway.Redirector
	settlements *settlement.Registry

	mu sync.Mutex
}

// NewPortalService creates a PortalService.
func NewPortalService(api Upstream, kv store.KV, redirector *gateway.Redirector, settlements *settlement.Registry) PortalService {
	return &portalServiceImpl{
		api:         api,
		kv:          kv,
		redirector:  redirector,
		settlements: settlements,
	}
}

func (s *portalServiceImpl) GetPackages(ctx context.Context) ([]*models.PackageSummary, error) {
	return s.api.GetPackages(ctx)
}

func (s *portalServiceImpl) GetPackage(ctx context.Context, id string) (*models.PackageSummary, error) {
	pkg, err := s.api.GetPackage(ctx, id)
	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return pkg, nil
}

func (s *portalServiceImpl) GetDestinations(ctx context.Context) ([]*models.Destination, error) {
	return s.api.GetDestinations(ctx)
}

// form reconstructs the booking form for a package; the draft itself lives
// in the session store, so each request gets a consistent view.
func (s *portalServiceImpl) form(ctx context.Context, packageID string) (*booking.Form, error) {
	pkg, err := s.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}
	return booking.NewForm(ctx, packageID, pkg, s.kv), nil
}

func view(f *booking.Form) *DraftView {
	return &DraftView{
		Draft:      f.Draft(),
		Errors:     f.Errors(),
		TotalPrice: f.TotalPrice(),
	}
}

func (s *portalServiceImpl) GetDraft(ctx context.Context, packageID string) (*DraftView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.form(ctx, packageID)
	if err != nil {
		return nil, err
	}

	v := view(f)
	// Consume the redirect flag exactly once: a draft read after a
	// checkout began means the user came back instead of paying.
	if _, err := s.kv.Get(ctx, redirectKey(packageID)); err == nil {
		v.StaleCheckout = true
		if err := s.kv.Remove(ctx, redirectKey(packageID)); err != nil {
			return nil, fmt.Errorf("failed to clear redirect flag: %w", err)
		}
	}
	return v, nil
}

func redirectKey(packageID string) string {
	return "redirecting_" + packageID
}

func (s *portalServiceImpl) UpdateDraftField(ctx context.Context, packageID, field, value string) (*DraftView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.form(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if err := f.UpdateField(ctx, field, value); err != nil {
		return nil, err
	}
	return view(f), nil
}

func (s *portalServiceImpl) UpdateTraveler(ctx context.Context, packageID string, index int, field, value string) (*DraftView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.form(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if err := f.UpdateTraveler(ctx, index, field, value); err != nil {
		return nil, err
	}
	return view(f), nil
}

func (s *portalServiceImpl) SetTravelerCount(ctx context.Context, packageID string, count int) (*DraftView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.form(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if err := f.SetTravelerCount(ctx, count); err != nil {
		return nil, err
	}
	return view(f), nil
}

// SubmitInquiry validates the draft and forwards it as a pre-payment
// booking request. Validation failures come back in the view's error map
// together with booking.ErrValidation.
func (s *portalServiceImpl) SubmitInquiry(ctx context.Context, packageID string) (*DraftView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.form(ctx, packageID)
	if err != nil {
		return nil, err
	}

	snapshot, err := f.Submit()
	if err != nil {
		return view(f), err
	}

	inquiry := &models.BookingInquiry{
		BookingDetails: snapshot.BookingDetails,
		PackageDetails: snapshot.PackageDetails,
		TotalPrice:     snapshot.TotalPrice,
	}
	if err := s.api.SubmitBookingRequest(ctx, inquiry); err != nil {
		return view(f), fmt.Errorf("failed to submit booking request: %w", err)
	}
	return view(f), nil
}

// Checkout validates the draft, creates a payable order, snapshots the
// booking for post-redirect recovery and returns the hosted checkout URL.
func (s *portalServiceImpl) Checkout(ctx context.Context, packageID string) (*CheckoutResult, *DraftView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.form(ctx, packageID)
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := f.Submit()
	if err != nil {
		return nil, view(f), err
	}

	order, err := s.api.CreateOrder(ctx, &models.CreateOrderRequest{
		Amount:   snapshot.TotalPrice,
		Currency: "INR",
		CustomerDetails: models.CustomerDetails{
			CustomerID:    "cust_" + uuid.New().String()[:12],
			CustomerName:  snapshot.BookingDetails.FullName,
			CustomerEmail: snapshot.BookingDetails.Email,
			CustomerPhone: snapshot.BookingDetails.Phone,
		},
	})
	if err != nil {
		return nil, view(f), fmt.Errorf("failed to create order: %w", err)
	}

	// Snapshot before redirect: this is what the settlement recovers from
	// once the gateway sends the browser back.
	if err := settlement.WriteSnapshot(ctx, s.kv, packageID, snapshot); err != nil {
		return nil, view(f), fmt.Errorf("failed to snapshot checkout: %w", err)
	}
	if err := s.kv.Set(ctx, redirectKey(packageID), "true"); err != nil {
		return nil, view(f), fmt.Errorf("failed to flag redirect: %w", err)
	}

	checkoutURL, err := s.redirector.CheckoutURL(order, snapshot)
	if err != nil {
		return nil, view(f), err
	}

	return &CheckoutResult{
		OrderID:     order.OrderID,
		CheckoutURL: checkoutURL,
		TotalPrice:  snapshot.TotalPrice,
	}, view(f), nil
}

// HandleGatewayReturn parses the gateway's return query and starts the
// settlement for the order. The settlement runs in the background; callers
// poll SettlementStatus or subscribe over the websocket.
func (s *portalServiceImpl) HandleGatewayReturn(ctx context.Context, query url.Values) (string, error) {
	ret, err := gateway.ParseReturn(query)
	if err != nil {
		return "", err
	}

	var recovered *settlement.Recovered
	if ret.Snapshot != nil {
		recovered = &settlement.Recovered{
			BookingDetails: ret.Snapshot.BookingDetails,
			PackageDetails: ret.Snapshot.PackageDetails,
		}
	}

	o := s.settlements.For(ret.OrderID)
	go o.Run(context.WithoutCancel(ctx), recovered)

	return ret.OrderID, nil
}

func (s *portalServiceImpl) SettlementStatus(ctx context.Context, orderID string) (models.SettlementStatus, error) {
	o, ok := s.settlements.Lookup(orderID)
	if !ok {
		return models.SettlementStatus{}, ErrNotFound
	}
	return o.Status(), nil
}

func (s *portalServiceImpl) RetryReceiptEmail(ctx context.Context, orderID string) error {
	o, ok := s.settlements.Lookup(orderID)
	if !ok {
		return ErrNotFound
	}
	return o.RetryEmail(ctx)
}

func (s *portalServiceImpl) RenderReceipt(ctx context.Context, req *models.SaveBookingRequest) receipt.Document {
	return receipt.Render(req.OrderData, req.BookingDetails, req.PackageDetails)
}

func (s *portalServiceImpl) ReceiptPDF(ctx context.Context, req *models.SaveBookingRequest) ([]byte, error) {
	return s.api.GenerateReceiptPDF(ctx, req)
}

func (s *portalServiceImpl) Health(ctx context.Context) error {
	return s.api.Health(ctx)
}

func (s *portalServiceImpl) ProxyAdmin(ctx context.Context, method, path, bearerToken string, body []byte) (int, []byte, error) {
	return s.api.ProxyAdmin(ctx, method, path, bearerToken, body)
}
