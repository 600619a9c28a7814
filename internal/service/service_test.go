package service

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alisproject111/tripeasy-client/internal/booking"
	"github.com/alisproject111/tripeasy-client/internal/gateway"
	"github.com/alisproject111/tripeasy-client/internal/models"
	"github.com/alisproject111/tripeasy-client/internal/settlement"
	"github.com/alisproject111/tripeasy-client/internal/store"
)

type mockUpstream struct {
	mock.Mock
}

func (m *mockUpstream) GetPackages(ctx context.Context) ([]*models.PackageSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PackageSummary), args.Error(1)
}

func (m *mockUpstream) GetPackage(ctx context.Context, id string) (*models.PackageSummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PackageSummary), args.Error(1)
}

func (m *mockUpstream) GetDestinations(ctx context.Context) ([]*models.Destination, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Destination), args.Error(1)
}

func (m *mockUpstream) SubmitBookingRequest(ctx context.Context, inquiry *models.BookingInquiry) error {
	args := m.Called(ctx, inquiry)
	return args.Error(0)
}

func (m *mockUpstream) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CreateOrderResponse), args.Error(1)
}

func (m *mockUpstream) VerifyPayment(ctx context.Context, orderID string) (*models.VerifyPaymentResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VerifyPaymentResponse), args.Error(1)
}

func (m *mockUpstream) SaveBooking(ctx context.Context, req *models.SaveBookingRequest, requestID string) error {
	args := m.Called(ctx, req, requestID)
	return args.Error(0)
}

func (m *mockUpstream) SendReceipt(ctx context.Context, req *models.SaveBookingRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *mockUpstream) GenerateReceiptPDF(ctx context.Context, req *models.SaveBookingRequest) ([]byte, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockUpstream) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockUpstream) ProxyAdmin(ctx context.Context, method, path, bearerToken string, body []byte) (int, []byte, error) {
	args := m.Called(ctx, method, path, bearerToken, body)
	var respBody []byte
	if args.Get(1) != nil {
		respBody = args.Get(1).([]byte)
	}
	return args.Int(0), respBody, args.Error(2)
}

func testPackage() *models.PackageSummary {
	return &models.PackageSummary{ID: "pkg-42", Name: "Kerala Backwaters", Location: "Alleppey", Price: 12500, Duration: 5}
}

func seedValidDraft(t *testing.T, kv store.KV) {
	t.Helper()
	draft := models.NewBookingDraft()
	draft.FullName = "Asha Nair"
	draft.Email = "asha@example.com"
	draft.Phone = "9876543210"
	draft.Gender = "female"
	draft.Age = "32"
	draft.TravelDate = "2026-09-15"
	draft.TermsAccepted = true

	data, err := json.Marshal(draft)
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), "bookingFormData_pkg-42", string(data)))
}

func newTestService(api *mockUpstream, kv store.KV) PortalService {
	redirector := gateway.NewRedirector("https://pay.example.com/checkout", "https://portal.example.com/payment/return")
	return NewPortalService(api, kv, redirector, settlement.NewRegistry(api, kv, nil))
}

func TestCheckout_CreatesOrderAndSnapshots(t *testing.T) {
	api := &mockUpstream{}
	kv := store.NewMemoryStore()
	seedValidDraft(t, kv)
	ctx := context.Background()

	api.On("GetPackage", mock.Anything, "pkg-42").Return(testPackage(), nil)
	api.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req *models.CreateOrderRequest) bool {
		return req.Amount == 12500 && req.CustomerDetails.CustomerEmail == "asha@example.com"
	})).Return(&models.CreateOrderResponse{
		OrderID:          "ord-1",
		OrderAmount:      12500,
		PaymentSessionID: "sess-abc",
	}, nil)

	svc := newTestService(api, kv)
	result, view, err := svc.Checkout(ctx, "pkg-42")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "ord-1", result.OrderID)
	assert.Equal(t, 12500.0, result.TotalPrice)
	assert.Contains(t, result.CheckoutURL, "payment_session_id=sess-abc")
	assert.Contains(t, result.CheckoutURL, "return_url=")
	assert.True(t, view.Errors.Empty())

	// The pre-redirect snapshot is in place for post-return recovery.
	current, err := kv.Get(ctx, "currentPackageId")
	require.NoError(t, err)
	assert.Equal(t, "pkg-42", current)
	_, err = kv.Get(ctx, "bookingDetails_pkg-42")
	assert.NoError(t, err)
}

func TestCheckout_InvalidDraftRefusesOrder(t *testing.T) {
	api := &mockUpstream{}
	kv := store.NewMemoryStore() // no draft persisted

	api.On("GetPackage", mock.Anything, "pkg-42").Return(testPackage(), nil)

	svc := newTestService(api, kv)
	result, view, err := svc.Checkout(context.Background(), "pkg-42")

	require.ErrorIs(t, err, booking.ErrValidation)
	assert.Nil(t, result)
	require.NotNil(t, view)
	assert.False(t, view.Errors.Empty())
	api.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestSubmitInquiry_ForwardsSnapshotTotals(t *testing.T) {
	api := &mockUpstream{}
	kv := store.NewMemoryStore()
	seedValidDraft(t, kv)

	api.On("GetPackage", mock.Anything, "pkg-42").Return(testPackage(), nil)
	api.On("SubmitBookingRequest", mock.Anything, mock.MatchedBy(func(inquiry *models.BookingInquiry) bool {
		return inquiry.TotalPrice == 12500 && inquiry.PackageDetails.ID == "pkg-42"
	})).Return(nil)

	svc := newTestService(api, kv)
	view, err := svc.SubmitInquiry(context.Background(), "pkg-42")
	require.NoError(t, err)
	assert.True(t, view.Errors.Empty())
	api.AssertNumberOfCalls(t, "SubmitBookingRequest", 1)
}

func TestUpdateDraftField_PersistsAcrossCalls(t *testing.T) {
	api := &mockUpstream{}
	kv := store.NewMemoryStore()
	api.On("GetPackage", mock.Anything, "pkg-42").Return(testPackage(), nil)

	svc := newTestService(api, kv)
	ctx := context.Background()

	_, err := svc.UpdateDraftField(ctx, "pkg-42", "fullName", "Asha Nair")
	require.NoError(t, err)

	view, err := svc.GetDraft(ctx, "pkg-42")
	require.NoError(t, err)
	assert.Equal(t, "Asha Nair", view.Draft.FullName)
}

func TestSetTravelerCount_ScalesTotalPrice(t *testing.T) {
	api := &mockUpstream{}
	kv := store.NewMemoryStore()
	seedValidDraft(t, kv)
	api.On("GetPackage", mock.Anything, "pkg-42").Return(testPackage(), nil)

	svc := newTestService(api, kv)
	view, err := svc.SetTravelerCount(context.Background(), "pkg-42", 4)
	require.NoError(t, err)
	assert.Equal(t, 50000.0, view.TotalPrice)
	assert.Len(t, view.Draft.AdditionalTravelers, 3)
}

func TestGetDraft_ConsumesRedirectFlagOnce(t *testing.T) {
	api := &mockUpstream{}
	kv := store.NewMemoryStore()
	seedValidDraft(t, kv)
	ctx := context.Background()

	api.On("GetPackage", mock.Anything, "pkg-42").Return(testPackage(), nil)
	api.On("CreateOrder", mock.Anything, mock.Anything).Return(&models.CreateOrderResponse{
		OrderID:          "ord-1",
		OrderAmount:      12500,
		PaymentSessionID: "sess-abc",
	}, nil)

	svc := newTestService(api, kv)
	_, _, err := svc.Checkout(ctx, "pkg-42")
	require.NoError(t, err)

	// First draft read after a checkout reports the abandoned redirect,
	// the second does not.
	view, err := svc.GetDraft(ctx, "pkg-42")
	require.NoError(t, err)
	assert.True(t, view.StaleCheckout)

	view, err = svc.GetDraft(ctx, "pkg-42")
	require.NoError(t, err)
	assert.False(t, view.StaleCheckout)
}

func TestGetDraft_NoRedirectFlagWithoutCheckout(t *testing.T) {
	api := &mockUpstream{}
	kv := store.NewMemoryStore()
	seedValidDraft(t, kv)
	api.On("GetPackage", mock.Anything, "pkg-42").Return(testPackage(), nil)

	svc := newTestService(api, kv)
	view, err := svc.GetDraft(context.Background(), "pkg-42")
	require.NoError(t, err)
	assert.False(t, view.StaleCheckout)
}

func TestHandleGatewayReturn_RequiresOrderID(t *testing.T) {
	api := &mockUpstream{}
	svc := newTestService(api, store.NewMemoryStore())

	_, err := svc.HandleGatewayReturn(context.Background(), url.Values{})
	assert.EqualError(t, err, "no order ID found")
}

func TestSettlementStatus_UnknownOrder(t *testing.T) {
	api := &mockUpstream{}
	svc := newTestService(api, store.NewMemoryStore())

	_, err := svc.SettlementStatus(context.Background(), "ord-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
