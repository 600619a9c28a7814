package mocks

import (
	"context"
	"net/url"

	"github.com/stretchr/testify/mock"

	"github.com/alisproject111/tripeasy-client/internal/models"
	"github.com/alisproject111/tripeasy-client/internal/receipt"
	"github.com/alisproject111/tripeasy-client/internal/service"
)

// MockPortalService is a mock implementation of service.PortalService
type MockPortalService struct {
	mock.Mock
}

func (m *MockPortalService) GetPackages(ctx context.Context) ([]*models.PackageSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PackageSummary), args.Error(1)
}

func (m *MockPortalService) GetPackage(ctx context.Context, id string) (*models.PackageSummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PackageSummary), args.Error(1)
}

func (m *MockPortalService) GetDestinations(ctx context.Context) ([]*models.Destination, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Destination), args.Error(1)
}

func (m *MockPortalService) GetDraft(ctx context.Context, packageID string) (*service.DraftView, error) {
	args := m.Called(ctx, packageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DraftView), args.Error(1)
}

func (m *MockPortalService) UpdateDraftField(ctx context.Context, packageID, field, value string) (*service.DraftView, error) {
	args := m.Called(ctx, packageID, field, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DraftView), args.Error(1)
}

func (m *MockPortalService) UpdateTraveler(ctx context.Context, packageID string, index int, field, value string) (*service.DraftView, error) {
	args := m.Called(ctx, packageID, index, field, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DraftView), args.Error(1)
}

func (m *MockPortalService) SetTravelerCount(ctx context.Context, packageID string, count int) (*service.DraftView, error) {
	args := m.Called(ctx, packageID, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DraftView), args.Error(1)
}

func (m *MockPortalService) SubmitInquiry(ctx context.Context, packageID string) (*service.DraftView, error) {
	args := m.Called(ctx, packageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DraftView), args.Error(1)
}

func (m *MockPortalService) Checkout(ctx context.Context, packageID string) (*service.CheckoutResult, *service.DraftView, error) {
	args := m.Called(ctx, packageID)
	var result *service.CheckoutResult
	var view *service.DraftView
	if args.Get(0) != nil {
		result = args.Get(0).(*service.CheckoutResult)
	}
	if args.Get(1) != nil {
		view = args.Get(1).(*service.DraftView)
	}
	return result, view, args.Error(2)
}

func (m *MockPortalService) HandleGatewayReturn(ctx context.Context, query url.Values) (string, error) {
	args := m.Called(ctx, query)
	return args.String(0), args.Error(1)
}

func (m *MockPortalService) SettlementStatus(ctx context.Context, orderID string) (models.SettlementStatus, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(models.SettlementStatus), args.Error(1)
}

func (m *MockPortalService) RetryReceiptEmail(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockPortalService) RenderReceipt(ctx context.Context, req *models.SaveBookingRequest) receipt.Document {
	args := m.Called(ctx, req)
	return args.Get(0).(receipt.Document)
}

func (m *MockPortalService) ReceiptPDF(ctx context.Context, req *models.SaveBookingRequest) ([]byte, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockPortalService) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPortalService) ProxyAdmin(ctx context.Context, method, path, bearerToken string, body []byte) (int, []byte, error) {
	args := m.Called(ctx, method, path, bearerToken, body)
	var body2 []byte
	if args.Get(1) != nil {
		body2 = args.Get(1).([]byte)
	}
	return args.Int(0), body2, args.Error(2)
}
