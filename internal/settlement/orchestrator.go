// Package settlement implements the post-payment workflow: once the
// gateway returns the browser with an order id, the orchestrator verifies
// the payment, persists the booking and triggers the receipt email, each
// exactly once, while publishing a progressive status to the user.
package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alisproject111/tripeasy-client/internal/models"
	"github.com/alisproject111/tripeasy-client/internal/store"
	"github.com/alisproject111/tripeasy-client/internal/upstream"
)

// API is the slice of the remote API the settlement needs.
type API interface {
	VerifyPayment(ctx context.Context, orderID string) (*models.VerifyPaymentResponse, error)
	SaveBooking(ctx context.Context, req *models.SaveBookingRequest, requestID string) error
	SendReceipt(ctx context.Context, req *models.SaveBookingRequest) error
}

// Notifier receives every status change, typically to fan it out over a
// websocket to the waiting browser.
type Notifier func(status models.SettlementStatus)

// Recovered is booking context carried through the gateway's return URL,
// tried after the session store comes up empty.
type Recovered struct {
	BookingDetails *models.BookingDraft
	PackageDetails *models.PackageSummary
}

// Orchestrator runs the verify → save → email sequence for one order. Its
// state is deliberately in-memory only; durability lives server-side and
// duplicate saves are absorbed by the API's conflict handling.
type Orchestrator struct {
	orderID string
	api     API
	kv      store.KV
	notify  Notifier

	// injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)

	mu sync.Mutex

	// one-shot latches, set before the guarded call begins
	started  bool
	verified bool
	saved    bool
	emailing bool
	emailed  bool

	phase    models.SettlementPhase
	message  string
	progress int
	order    *models.OrderRecord
	draft    *models.BookingDraft
	pkg      *models.PackageSummary
}

// New creates an orchestrator for an order.
func New(orderID string, api API, kv store.KV, notify Notifier) *Orchestrator {
	if notify == nil {
		notify = func(models.SettlementStatus) {}
	}
	return &Orchestrator{
		orderID: orderID,
		api:     api,
		kv:      kv,
		notify:  notify,
		now:     time.Now,
		sleep: func(ctx context.Context, d time.Duration) {
			select {
			case <-time.After(d):
			case <-ctx.Done():
			}
		},
		phase:   models.PhaseIdle,
		message: "Verifying payment status...",
	}
}

// Status returns a snapshot of the settlement's current state.
func (o *Orchestrator) Status() models.SettlementStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statusLocked()
}

func (o *Orchestrator) statusLocked() models.SettlementStatus {
	return models.SettlementStatus{
		OrderID:      o.orderID,
		Phase:        o.phase,
		Verified:     o.verified,
		BookingSaved: o.saved,
		EmailSent:    o.emailed,
		Message:      o.message,
		Progress:     o.progress,
		OrderDetails: o.order,
	}
}

// setPhaseLocked updates phase and message. Callers must hold o.mu and
// notify with the snapshot after unlocking, so watchers observe
// transitions in the order they happened.
func (o *Orchestrator) setPhaseLocked(phase models.SettlementPhase, message string) {
	o.phase = phase
	o.message = message
}

// Run executes the settlement. It is safe to call from multiple goroutines
// and from repeated gateway-return hits: an entry latch, set before any
// network call, ensures the sequence starts at most once per orchestrator;
// later calls simply observe the state of the first.
func (o *Orchestrator) Run(ctx context.Context, recovered *Recovered) {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return
	}
	o.started = true
	o.mu.Unlock()

	order, ok := o.verify(ctx)
	if !ok {
		return
	}

	draft, pkg, ok := o.recoverContext(ctx, recovered)
	if !ok {
		return
	}

	record := &models.SaveBookingRequest{
		OrderData:      order,
		BookingDetails: draft,
		PackageDetails: pkg,
	}

	if !o.save(ctx, record) {
		return
	}

	o.email(ctx, record)
}

// RetryEmail re-attempts the receipt email after a non-fatal failure. It is
// a no-op unless the booking is already saved and no email has gone out.
func (o *Orchestrator) RetryEmail(ctx context.Context) error {
	o.mu.Lock()
	if !o.saved || o.emailed {
		o.mu.Unlock()
		return fmt.Errorf("email retry not available in phase %s", o.phase)
	}
	record := &models.SaveBookingRequest{
		OrderData:      o.order,
		BookingDetails: o.draft,
		PackageDetails: o.pkg,
	}
	o.mu.Unlock()

	if !o.email(ctx, record) {
		return errors.New("failed to send receipt email")
	}
	return nil
}

func (o *Orchestrator) verify(ctx context.Context) (*models.OrderRecord, bool) {
	o.mu.Lock()
	if o.verified {
		o.mu.Unlock()
		return o.order, o.order != nil
	}
	// Latch before the call so a racing re-entry cannot start a second
	// verification while this one is in flight.
	o.verified = true
	o.setPhaseLocked(models.PhaseVerifying, "Verifying payment status...")
	status := o.statusLocked()
	o.mu.Unlock()
	o.notify(status)

	resp, err := o.api.VerifyPayment(ctx, o.orderID)
	if err != nil {
		// Transport failure: release the latches so one retry path exists.
		o.mu.Lock()
		o.verified = false
		o.started = false
		o.setPhaseLocked(models.PhaseError, "Failed to verify payment. Please try again later.")
		status := o.statusLocked()
		o.mu.Unlock()
		o.notify(status)
		log.Printf("settlement %s: verification failed: %v", o.orderID, err)
		return nil, false
	}

	if resp.Status != models.OrderStatusPaid {
		message := resp.Message
		if message == "" {
			message = fmt.Sprintf("Payment not successful. Status: %s", resp.Status)
		}
		o.mu.Lock()
		o.setPhaseLocked(models.PhaseVerifiedFailed, message)
		status := o.statusLocked()
		o.mu.Unlock()
		o.notify(status)
		return nil, false
	}

	order := resp.Data
	if order == nil {
		order = &models.OrderRecord{}
	}
	order.OrderID = o.orderID
	order.OrderStatus = models.OrderStatusPaid
	// The server may omit timestamps; fall back to the current time.
	now := o.now()
	if order.PaymentTime.IsZero() {
		order.PaymentTime = now
	}
	if order.BookingDate.IsZero() {
		order.BookingDate = now
	}

	o.mu.Lock()
	o.order = order
	o.setPhaseLocked(models.PhaseVerifiedPaid, "Payment successful! Your booking is confirmed.")
	status = o.statusLocked()
	o.mu.Unlock()
	o.notify(status)
	return order, true
}

// recoverContext restores the booking and package details that in-memory
// state lost across the gateway's full-page redirect: the session store is
// tried first, then snapshots carried in the return URL.
func (o *Orchestrator) recoverContext(ctx context.Context, recovered *Recovered) (*models.BookingDraft, *models.PackageSummary, bool) {
	draft, pkg := o.fromSessionStore(ctx)

	if draft == nil || pkg == nil {
		if recovered != nil {
			if draft == nil {
				draft = recovered.BookingDetails
			}
			if pkg == nil {
				pkg = recovered.PackageDetails
			}
		}
	}

	if draft == nil || pkg == nil {
		o.mu.Lock()
		o.setPhaseLocked(models.PhaseError, "Could not process payment: missing booking details")
		status := o.statusLocked()
		o.mu.Unlock()
		o.notify(status)
		return nil, nil, false
	}

	o.mu.Lock()
	o.draft = draft
	o.pkg = pkg
	o.mu.Unlock()
	return draft, pkg, true
}

func (o *Orchestrator) fromSessionStore(ctx context.Context) (*models.BookingDraft, *models.PackageSummary) {
	packageID, err := o.kv.Get(ctx, "currentPackageId")
	if err != nil {
		return nil, nil
	}

	var draft *models.BookingDraft
	var pkg *models.PackageSummary

	if raw, err := o.kv.Get(ctx, "bookingDetails_"+packageID); err == nil {
		var d models.BookingDraft
		if json.Unmarshal([]byte(raw), &d) == nil {
			draft = &d
		}
	}
	if raw, err := o.kv.Get(ctx, "packageDetails_"+packageID); err == nil {
		var p models.PackageSummary
		if json.Unmarshal([]byte(raw), &p) == nil {
			pkg = &p
		}
	}
	return draft, pkg
}

func (o *Orchestrator) save(ctx context.Context, record *models.SaveBookingRequest) bool {
	o.mu.Lock()
	if o.saved {
		o.mu.Unlock()
		return true
	}
	// Latch before the call; simultaneous triggers must not double-save.
	o.saved = true
	o.setPhaseLocked(models.PhaseSaving, "Saving your booking...")
	status := o.statusLocked()
	o.mu.Unlock()
	o.notify(status)

	err := o.api.SaveBooking(ctx, record, uuid.New().String())
	if err != nil && !errors.Is(err, upstream.ErrAlreadySaved) {
		// Reset the latches to allow one retry; skip email until saved. The
		// verify latch stays set, so a retry reuses the verified order.
		o.mu.Lock()
		o.saved = false
		o.started = false
		o.setPhaseLocked(models.PhaseError, "Could not save booking details. Please try again later.")
		status := o.statusLocked()
		o.mu.Unlock()
		o.notify(status)
		log.Printf("settlement %s: save failed: %v", o.orderID, err)
		return false
	}
	if errors.Is(err, upstream.ErrAlreadySaved) {
		log.Printf("settlement %s: booking already saved, continuing", o.orderID)
	}

	o.mu.Lock()
	o.setPhaseLocked(models.PhaseSaved, "Booking saved successfully")
	status = o.statusLocked()
	o.mu.Unlock()
	o.notify(status)
	return true
}

func (o *Orchestrator) email(ctx context.Context, record *models.SaveBookingRequest) bool {
	o.mu.Lock()
	if o.emailed || o.emailing {
		// Already sent, or a send is in flight; join it rather than
		// double-send.
		o.mu.Unlock()
		return true
	}
	// Latch before the call; a concurrent retry must not double-send.
	o.emailing = true
	o.progress = 0
	o.setPhaseLocked(models.PhaseEmailing, emailProgressSteps[0].message)
	status := o.statusLocked()
	o.mu.Unlock()
	o.notify(status)

	start := o.now()

	// Drive the cosmetic indicator while the send is in flight. The ticker
	// only ever raises progress toward the ceiling; 100 is reserved for
	// real completion.
	tickerCtx, stopTicker := context.WithCancel(ctx)
	defer stopTicker()
	go func() {
		for {
			o.sleep(tickerCtx, progressTick)
			if tickerCtx.Err() != nil {
				return
			}
			percent, message := ProgressAt(o.now().Sub(start))
			o.mu.Lock()
			if o.phase != models.PhaseEmailing {
				o.mu.Unlock()
				return
			}
			if percent <= o.progress {
				o.mu.Unlock()
				continue
			}
			o.progress = percent
			o.message = message
			status := o.statusLocked()
			o.mu.Unlock()
			o.notify(status)
		}
	}()

	err := o.api.SendReceipt(ctx, record)
	stopTicker()

	// Hold the indicator so fast responses do not flash the UI.
	if hold := remainingHold(start, o.now()); hold > 0 {
		o.mu.Lock()
		if o.progress < progressCeiling {
			o.progress = progressCeiling
		}
		o.message = "Finalizing your receipt..."
		status := o.statusLocked()
		o.mu.Unlock()
		o.notify(status)
		o.sleep(ctx, hold)
	}

	if err != nil {
		// Non-fatal: the booking is saved and money has moved. The user
		// keeps their confirmation; email stays available as a retry.
		o.mu.Lock()
		o.emailing = false
		o.progress = 0
		o.setPhaseLocked(models.PhaseSaved, "Could not send receipt email. Please try again later.")
		status := o.statusLocked()
		o.mu.Unlock()
		o.notify(status)
		log.Printf("settlement %s: receipt email failed: %v", o.orderID, err)
		return false
	}

	o.mu.Lock()
	o.emailing = false
	o.emailed = true
	o.progress = 100
	o.setPhaseLocked(models.PhaseEmailSent, "Receipt sent successfully!")
	status = o.statusLocked()
	o.mu.Unlock()
	o.notify(status)
	return true
}

// SnapshotKeys builds the session keys a checkout writes before the
// gateway redirect, shared here so the payment stage and the settlement
// agree on them.
func SnapshotKeys(packageID string) (current, booking, pkg, total string) {
	return "currentPackageId",
		"bookingDetails_" + packageID,
		"packageDetails_" + packageID,
		"totalPrice_" + packageID
}

// WriteSnapshot persists the pre-redirect snapshot the orchestrator
// recovers from after the gateway returns.
func WriteSnapshot(ctx context.Context, kv store.KV, packageID string, snapshot *models.CheckoutSnapshot) error {
	currentKey, bookingKey, packageKey, totalKey := SnapshotKeys(packageID)

	bookingData, err := json.Marshal(snapshot.BookingDetails)
	if err != nil {
		return fmt.Errorf("failed to encode booking snapshot: %w", err)
	}
	packageData, err := json.Marshal(snapshot.PackageDetails)
	if err != nil {
		return fmt.Errorf("failed to encode package snapshot: %w", err)
	}

	if err := kv.Set(ctx, currentKey, packageID); err != nil {
		return err
	}
	if err := kv.Set(ctx, bookingKey, string(bookingData)); err != nil {
		return err
	}
	if err := kv.Set(ctx, packageKey, string(packageData)); err != nil {
		return err
	}
	return kv.Set(ctx, totalKey, strconv.FormatFloat(snapshot.TotalPrice, 'f', -1, 64))
}
