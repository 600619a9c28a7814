package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alisproject111/tripeasy-client/internal/models"
	"github.com/alisproject111/tripeasy-client/internal/store"
	"github.com/alisproject111/tripeasy-client/internal/upstream"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) VerifyPayment(ctx context.Context, orderID string) (*models.VerifyPaymentResponse, error) {
	args := m.Called(ctx, orderID)
	if resp := args.Get(0); resp != nil {
		return resp.(*models.VerifyPaymentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) SaveBooking(ctx context.Context, req *models.SaveBookingRequest, requestID string) error {
	args := m.Called(ctx, req, requestID)
	return args.Error(0)
}

func (m *mockAPI) SendReceipt(ctx context.Context, req *models.SaveBookingRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// sleepRecorder replaces the orchestrator's sleep so tests run instantly
// while still observing requested hold durations.
type sleepRecorder struct {
	mu        sync.Mutex
	durations []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) {
	if ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	s.durations = append(s.durations, d)
	s.mu.Unlock()
}

func (s *sleepRecorder) slept(d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, got := range s.durations {
		if got == d {
			return true
		}
	}
	return false
}

// statusLog collects every notified status for later inspection.
type statusLog struct {
	mu       sync.Mutex
	statuses []models.SettlementStatus
}

func (l *statusLog) notify(status models.SettlementStatus) {
	l.mu.Lock()
	l.statuses = append(l.statuses, status)
	l.mu.Unlock()
}

func (l *statusLog) all() []models.SettlementStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.SettlementStatus(nil), l.statuses...)
}

func paidResponse(amount float64) *models.VerifyPaymentResponse {
	return &models.VerifyPaymentResponse{
		Status: models.OrderStatusPaid,
		Data: &models.OrderRecord{
			OrderAmount: amount,
			OrderStatus: models.OrderStatusPaid,
		},
	}
}

func seedSnapshot(t *testing.T, kv store.KV, packageID string) {
	t.Helper()
	ctx := context.Background()

	draft := models.NewBookingDraft()
	draft.FullName = "Asha Nair"
	draft.Email = "asha@example.com"
	pkg := &models.PackageSummary{ID: packageID, Name: "Kerala Backwaters", Price: 12500}

	draftData, err := json.Marshal(draft)
	require.NoError(t, err)
	pkgData, err := json.Marshal(pkg)
	require.NoError(t, err)

	require.NoError(t, kv.Set(ctx, "currentPackageId", packageID))
	require.NoError(t, kv.Set(ctx, "bookingDetails_"+packageID, string(draftData)))
	require.NoError(t, kv.Set(ctx, "packageDetails_"+packageID, string(pkgData)))
}

func newTestOrchestrator(t *testing.T, orderID string, api *mockAPI, kv store.KV) (*Orchestrator, *sleepRecorder) {
	t.Helper()
	o := New(orderID, api, kv, nil)
	rec := &sleepRecorder{}
	o.sleep = rec.sleep
	o.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	return o, rec
}

func TestRun_PaidOrderSettlesAndEmails(t *testing.T) {
	api := &mockAPI{}
	kv := store.NewMemoryStore()
	seedSnapshot(t, kv, "pkg-42")

	api.On("VerifyPayment", mock.Anything, "XYZ123").Return(paidResponse(50000), nil)
	api.On("SaveBooking", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	api.On("SendReceipt", mock.Anything, mock.Anything).Return(nil)

	o, rec := newTestOrchestrator(t, "XYZ123", api, kv)
	o.Run(context.Background(), nil)

	status := o.Status()
	assert.Equal(t, models.PhaseEmailSent, status.Phase)
	assert.True(t, status.Verified)
	assert.True(t, status.BookingSaved)
	assert.True(t, status.EmailSent)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.OrderDetails)
	assert.Equal(t, "XYZ123", status.OrderDetails.OrderID)
	assert.Equal(t, 50000.0, status.OrderDetails.OrderAmount)
	assert.False(t, status.OrderDetails.PaymentTime.IsZero())

	// The email stage stays visible for the full minimum duration even
	// though the send itself resolved immediately.
	assert.True(t, rec.slept(minEmailDuration))

	api.AssertNumberOfCalls(t, "SaveBooking", 1)
	api.AssertNumberOfCalls(t, "SendReceipt", 1)
}

func TestRun_DoubleTriggerSavesOnce(t *testing.T) {
	api := &mockAPI{}
	kv := store.NewMemoryStore()
	seedSnapshot(t, kv, "pkg-42")

	api.On("VerifyPayment", mock.Anything, "ord-1").Return(paidResponse(12500), nil)
	api.On("SaveBooking", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	api.On("SendReceipt", mock.Anything, mock.Anything).Return(nil)

	o, _ := newTestOrchestrator(t, "ord-1", api, kv)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Run(context.Background(), nil)
		}()
	}
	wg.Wait()

	api.AssertNumberOfCalls(t, "VerifyPayment", 1)
	api.AssertNumberOfCalls(t, "SaveBooking", 1)
	api.AssertNumberOfCalls(t, "SendReceipt", 1)
}

func TestRun_ConflictOnSaveProceedsToEmail(t *testing.T) {
	api := &mockAPI{}
	kv := store.NewMemoryStore()
	seedSnapshot(t, kv, "pkg-42")

	api.On("VerifyPayment", mock.Anything, "ord-2").Return(paidResponse(12500), nil)
	api.On("SaveBooking", mock.Anything, mock.Anything, mock.Anything).Return(upstream.ErrAlreadySaved)
	api.On("SendReceipt", mock.Anything, mock.Anything).Return(nil)

	o, _ := newTestOrchestrator(t, "ord-2", api, kv)
	o.Run(context.Background(), nil)

	status := o.Status()
	assert.Equal(t, models.PhaseEmailSent, status.Phase)
	assert.True(t, status.BookingSaved)
	assert.True(t, status.EmailSent)
	api.AssertNumberOfCalls(t, "SendReceipt", 1)
}

func TestRun_FailedPaymentStopsBeforeSave(t *testing.T) {
	api := &mockAPI{}
	kv := store.NewMemoryStore()
	seedSnapshot(t, kv, "pkg-42")

	api.On("VerifyPayment", mock.Anything, "ord-3").Return(&models.VerifyPaymentResponse{
		Status:  models.OrderStatusFailed,
		Message: "Payment was declined by the bank",
	}, nil)

	o, _ := newTestOrchestrator(t, "ord-3", api, kv)
	o.Run(context.Background(), nil)

	status := o.Status()
	assert.Equal(t, models.PhaseVerifiedFailed, status.Phase)
	assert.Equal(t, "Payment was declined by the bank", status.Message)
	assert.False(t, status.BookingSaved)
	assert.False(t, status.EmailSent)
	assert.True(t, status.Phase.Terminal())

	api.AssertNotCalled(t, "SaveBooking", mock.Anything, mock.Anything, mock.Anything)
	api.AssertNotCalled(t, "SendReceipt", mock.Anything, mock.Anything)
}

func TestRun_VerifyTransportFailureAllowsRetry(t *testing.T) {
	api := &mockAPI{}
	kv := store.NewMemoryStore()
	seedSnapshot(t, kv, "pkg-42")

	api.On("VerifyPayment", mock.Anything, "ord-4").Return(nil, errors.New("connection refused")).Once()
	api.On("VerifyPayment", mock.Anything, "ord-4").Return(paidResponse(12500), nil).Once()
	api.On("SaveBooking", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	api.On("SendReceipt", mock.Anything, mock.Anything).Return(nil)

	o, _ := newTestOrchestrator(t, "ord-4", api, kv)

	o.Run(context.Background(), nil)
	assert.Equal(t, models.PhaseError, o.Status().Phase)

	// The transport failure released the latch, so a second run verifies
	// again and completes.
	o.Run(context.Background(), nil)
	assert.Equal(t, models.PhaseEmailSent, o.Status().Phase)
	api.AssertNumberOfCalls(t, "VerifyPayment", 2)
}

func TestRun_SaveFailureReleasesLatchAndSkipsEmail(t *testing.T) {
	api := &mockAPI{}
	kv := store.NewMemoryStore()
	seedSnapshot(t, kv, "pkg-42")

	api.On("VerifyPayment", mock.Anything, "ord-5").Return(paidResponse(12500), nil)
	api.On("SaveBooking", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("boom"))

	o, _ := newTestOrchestrator(t, "ord-5", api, kv)
	o.Run(context.Background(), nil)

	status := o.Status()
	assert.Equal(t, models.PhaseError, status.Phase)
	assert.False(t, status.BookingSaved)
	api.AssertNotCalled(t, "SendReceipt", mock.Anything, mock.Anything)
}

func TestRun_SaveRetryReusesVerifiedOrder(t *testing.T) {
	api := &mockAPI{}
	kv := store.NewMemoryStore()
	seedSnapshot(t, kv, "pkg-42")

	api.On("VerifyPayment", mock.Anything, "ord-14").Return(paidResponse(12500), nil)
	api.On("SaveBooking", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("boom")).Once()
	api.On("SaveBooking", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	api.On("SendReceipt", mock.Anything, mock.Anything).Return(nil)

	o, _ := newTestOrchestrator(t, "ord-14", api, kv)

	o.Run(context.Background(), nil)
	assert.Equal(t, models.PhaseError, o.Status().Phase)

	o.Run(context.Background(), nil)
	assert.Equal(t, models.PhaseEmailSent, o.Status().Phase)

	// The second run keeps the verified result instead of verifying again.
	api.AssertNumberOfCalls(t, "VerifyPayment", 1)
	api.AssertNumberOfCalls(t, "SaveBooking", 2)
}

func TestRun_EmailFailureIsNonFatalAndRetryable(t *testing.T) {
	api := &mockAPI{}
	kv := store.NewMemoryStore()
	seedSnapshot(t, kv, "pkg-42")

	api.On("VerifyPayment", mock.Anything, "ord-6").Return(paidResponse(12500), nil)
	api.On("SaveBooking", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	api.On("SendReceipt", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
	api.On("SendReceipt", mock.Anything, mock.Anything).Return(nil).Once()

	o, _ := newTestOrchestrator(t, "ord-6", api, kv)
	o.Run(context.Background(), nil)

	// The booking stays confirmed; only the receipt is pending.
	status := o.Status()
	assert.Equal(t, models.PhaseSaved, status.Phase)
	assert.True(t, status.BookingSaved)
	assert.False(t, status.EmailSent)
	assert.Equal(t, 0, status.Progress)

	require.NoError(t, o.RetryEmail(context.Background()))
	status = o.Status()
	assert.Equal(t, models.PhaseEmailSent, status.Phase)
	assert.True(t, status.EmailSent)
	assert.Equal(t, 100, status.Progress)
}

func TestRetryEmail_ConcurrentCallsSendOnce(t *testing.T) {
	api := &mockAPI{}
	kv := store.NewMemoryStore()

	// A slow send keeps the first retry in flight while the second arrives.
	api.On("SendReceipt", mock.Anything, mock.Anything).Return(nil).After(100 * time.Millisecond)

	o, _ := newTestOrchestrator(t, "ord-15", api, kv)
	o.mu.Lock()
	o.verified = true
	o.saved = true
	o.phase = models.PhaseSaved
	o.order = &models.OrderRecord{OrderID: "ord-15", OrderStatus: models.OrderStatusPaid}
	o.draft = models.NewBookingDraft()
	o.pkg = &models.PackageSummary{ID: "pkg-42"}
	o.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, o.RetryEmail(context.Background()))
		}()
	}
	wg.Wait()

	api.AssertNumberOfCalls(t, "SendReceipt", 1)
	status := o.Status()
	assert.Equal(t, models.PhaseEmailSent, status.Phase)
	assert.True(t, status.EmailSent)
}

func TestRetryEmail_RefusedWhenNotSaved(t *testing.T) {
	api := &mockAPI{}
	o, _ := newTestOrchestrator(t, "ord-7", api, store.NewMemoryStore())

	err := o.RetryEmail(context.Background())
	assert.Error(t, err)
	api.AssertNotCalled(t, "SendReceipt", mock.Anything, mock.Anything)
}

func TestRun_RecoversSnapshotFromReturnURL(t *testing.T) {
	api := &mockAPI{}
	kv := store.NewMemoryStore() // empty session store

	api.On("VerifyPayment", mock.Anything, "ord-8").Return(paidResponse(12500), nil)
	api.On("SaveBooking", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	api.On("SendReceipt", mock.Anything, mock.Anything).Return(nil)

	draft := models.NewBookingDraft()
	draft.FullName = "Asha Nair"
	recovered := &Recovered{
		BookingDetails: draft,
		PackageDetails: &models.PackageSummary{ID: "pkg-42", Name: "Kerala Backwaters"},
	}

	o, _ := newTestOrchestrator(t, "ord-8", api, kv)
	o.Run(context.Background(), recovered)

	assert.Equal(t, models.PhaseEmailSent, o.Status().Phase)
}

func TestRun_MissingBookingDetailsIsFatal(t *testing.T) {
	api := &mockAPI{}
	kv := store.NewMemoryStore()

	api.On("VerifyPayment", mock.Anything, "ord-9").Return(paidResponse(12500), nil)

	o, _ := newTestOrchestrator(t, "ord-9", api, kv)
	o.Run(context.Background(), nil)

	status := o.Status()
	assert.Equal(t, models.PhaseError, status.Phase)
	assert.Contains(t, status.Message, "missing booking details")
	api.AssertNotCalled(t, "SaveBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_ProgressReachesHundredOnlyAfterEmailResolves(t *testing.T) {
	api := &mockAPI{}
	kv := store.NewMemoryStore()
	seedSnapshot(t, kv, "pkg-42")

	api.On("VerifyPayment", mock.Anything, "ord-10").Return(paidResponse(12500), nil)
	api.On("SaveBooking", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	api.On("SendReceipt", mock.Anything, mock.Anything).Return(nil)

	log := &statusLog{}
	o := New("ord-10", api, kv, log.notify)
	rec := &sleepRecorder{}
	o.sleep = rec.sleep

	o.Run(context.Background(), nil)

	for _, status := range log.all() {
		if status.Phase == models.PhaseEmailing {
			assert.Less(t, status.Progress, 100, "in-flight email may never report completion")
		}
	}
	assert.Equal(t, 100, o.Status().Progress)
}

func TestRun_EmailProgressNeverDecreases(t *testing.T) {
	api := &mockAPI{}
	kv := store.NewMemoryStore()
	seedSnapshot(t, kv, "pkg-42")

	api.On("VerifyPayment", mock.Anything, "ord-16").Return(paidResponse(12500), nil)
	api.On("SaveBooking", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	api.On("SendReceipt", mock.Anything, mock.Anything).Return(nil)

	log := &statusLog{}
	o := New("ord-16", api, kv, log.notify)
	rec := &sleepRecorder{}
	o.sleep = rec.sleep

	o.Run(context.Background(), nil)

	// The indicator never moves backwards, including across the jump to
	// the ceiling while the minimum duration plays out.
	prev := -1
	for _, status := range log.all() {
		if status.Phase != models.PhaseEmailing {
			continue
		}
		assert.GreaterOrEqual(t, status.Progress, prev)
		prev = status.Progress
	}
}

func TestRun_NotificationsArriveInOrder(t *testing.T) {
	api := &mockAPI{}
	kv := store.NewMemoryStore()
	seedSnapshot(t, kv, "pkg-42")

	api.On("VerifyPayment", mock.Anything, "ord-17").Return(paidResponse(12500), nil)
	api.On("SaveBooking", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	api.On("SendReceipt", mock.Anything, mock.Anything).Return(nil)

	log := &statusLog{}
	o := New("ord-17", api, kv, log.notify)
	rec := &sleepRecorder{}
	o.sleep = rec.sleep

	o.Run(context.Background(), nil)

	statuses := log.all()
	require.NotEmpty(t, statuses)

	// The terminal status is the last thing a watcher sees; nothing
	// trailing it could leave the browser stuck on stale state.
	last := statuses[len(statuses)-1]
	assert.Equal(t, models.PhaseEmailSent, last.Phase)
	assert.Equal(t, 100, last.Progress)
	for i, status := range statuses[:len(statuses)-1] {
		assert.False(t, status.Phase.Terminal(), "status %d reported terminal before the end", i)
	}
}

func TestRegistry_SharesOrchestratorPerOrder(t *testing.T) {
	api := &mockAPI{}
	reg := NewRegistry(api, store.NewMemoryStore(), nil)

	first := reg.For("ord-11")
	second := reg.For("ord-11")
	other := reg.For("ord-12")

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)

	got, ok := reg.Lookup("ord-11")
	assert.True(t, ok)
	assert.Same(t, first, got)

	_, ok = reg.Lookup("ord-99")
	assert.False(t, ok)
}

func TestWriteSnapshot_RoundTripsThroughRecovery(t *testing.T) {
	kv := store.NewMemoryStore()
	ctx := context.Background()

	draft := models.NewBookingDraft()
	draft.FullName = "Asha Nair"
	snapshot := &models.CheckoutSnapshot{
		BookingDetails: draft,
		PackageDetails: &models.PackageSummary{ID: "pkg-42", Name: "Kerala Backwaters", Price: 12500},
		TotalPrice:     12500,
	}
	require.NoError(t, WriteSnapshot(ctx, kv, "pkg-42", snapshot))

	api := &mockAPI{}
	o, _ := newTestOrchestrator(t, "ord-13", api, kv)
	gotDraft, gotPkg := o.fromSessionStore(ctx)
	require.NotNil(t, gotDraft)
	require.NotNil(t, gotPkg)
	assert.Equal(t, "Asha Nair", gotDraft.FullName)
	assert.Equal(t, "Kerala Backwaters", gotPkg.Name)

	total, err := kv.Get(ctx, "totalPrice_pkg-42")
	require.NoError(t, err)
	assert.Equal(t, "12500", total)
}
