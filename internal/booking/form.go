// Package booking implements the booking form stage: draft mutation with
// keystroke-level input rules, traveler slot management, validation and the
// handoff to payment. Every accepted mutation mirrors the draft into the
// session store keyed by package id so navigation and refresh restore it.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alisproject111/tripeasy-client/internal/models"
	"github.com/alisproject111/tripeasy-client/internal/store"
)

// ErrValidation signals that Submit was refused because the draft is
// invalid; the accompanying ErrorMap carries the field details.
var ErrValidation = errors.New("booking draft is invalid")

// Form is the per-package booking form stage.
type Form struct {
	packageID string
	pkg       *models.PackageSummary
	draft     *models.BookingDraft
	errors    *ErrorMap
	kv        store.KV
}

// NewForm creates a form for a package, restoring any previously persisted
// draft for the same package id.
func NewForm(ctx context.Context, packageID string, pkg *models.PackageSummary, kv store.KV) *Form {
	f := &Form{
		packageID: packageID,
		pkg:       pkg,
		draft:     models.NewBookingDraft(),
		errors:    NewErrorMap(),
		kv:        kv,
	}

	if saved, err := kv.Get(ctx, f.draftKey()); err == nil {
		var restored models.BookingDraft
		if json.Unmarshal([]byte(saved), &restored) == nil {
			f.draft = &restored
			f.syncTravelerSlots()
		}
	}

	return f
}

// Draft returns the current draft.
func (f *Form) Draft() *models.BookingDraft {
	return f.draft
}

// Errors returns the current field errors.
func (f *Form) Errors() *ErrorMap {
	return f.errors
}

// TotalPrice computes the payable amount for the current traveler count.
func (f *Form) TotalPrice() float64 {
	return f.pkg.Price * float64(f.draft.Travelers)
}

// UpdateField applies one edit to a lead-traveler field. Phone and age
// edits that would produce a non-numeric value are ignored rather than
// flagged; phone additionally refuses a leading zero or more than 10
// digits. Accepted edits clear the field's existing error and persist the
// draft.
func (f *Form) UpdateField(ctx context.Context, name, value string) error {
	switch name {
	case "fullName":
		f.draft.FullName = value
	case "email":
		f.draft.Email = value
	case "phone":
		if !digitPattern.MatchString(value) {
			return nil
		}
		if len(value) > 0 && value[0] == '0' {
			return nil
		}
		if len(value) > 10 {
			return nil
		}
		f.draft.Phone = value
	case "gender":
		f.draft.Gender = value
	case "age":
		if !digitPattern.MatchString(value) {
			return nil
		}
		f.draft.Age = value
	case "travelDate":
		f.draft.TravelDate = value
	case "specialRequests":
		f.draft.SpecialRequests = value
	case "termsAccepted":
		f.draft.TermsAccepted = value == "true"
	default:
		return fmt.Errorf("unknown field: %s", name)
	}

	f.clearError(name)
	return f.persist(ctx)
}

// UpdateTraveler applies one edit to an additional traveler's slot.
func (f *Form) UpdateTraveler(ctx context.Context, index int, field, value string) error {
	if index < 0 || index >= len(f.draft.AdditionalTravelers) {
		return fmt.Errorf("traveler index out of range: %d", index)
	}

	switch field {
	case "fullName":
		f.draft.AdditionalTravelers[index].FullName = value
	case "gender":
		f.draft.AdditionalTravelers[index].Gender = value
	case "age":
		if !digitPattern.MatchString(value) {
			return nil
		}
		f.draft.AdditionalTravelers[index].Age = value
	default:
		return fmt.Errorf("unknown traveler field: %s", field)
	}

	f.clearError(travelerKey(index, field))
	return f.persist(ctx)
}

// SetTravelerCount clamps n to the allowed range, resizes the additional
// traveler slots to count-1 preserving retained entries, and records a
// visible field error when the caller asked for an out-of-range value.
func (f *Form) SetTravelerCount(ctx context.Context, n int) error {
	switch {
	case n > MaxTravelers:
		f.draft.Travelers = MaxTravelers
		f.errors.Add("travelers", "Maximum 20 travelers allowed")
	case n < MinTravelers:
		f.draft.Travelers = MinTravelers
		f.clearError("travelers")
	default:
		f.draft.Travelers = n
		f.clearError("travelers")
	}

	f.syncTravelerSlots()
	return f.persist(ctx)
}

// Validate checks the draft and retains the result for later queries.
func (f *Form) Validate() *ErrorMap {
	f.errors = Validate(f.draft)
	return f.errors
}

// Submit validates the draft and, on success, yields the handoff payload
// for the payment stage. On failure the caller gets ErrValidation and can
// read the first offending field from Errors.
func (f *Form) Submit() (*models.CheckoutSnapshot, error) {
	if errs := f.Validate(); !errs.Empty() {
		return nil, ErrValidation
	}

	return &models.CheckoutSnapshot{
		BookingDetails: f.draft,
		PackageDetails: f.pkg,
		TotalPrice:     f.TotalPrice(),
	}, nil
}

// Discard removes the persisted draft, used once a submission completes or
// the user abandons the form.
func (f *Form) Discard(ctx context.Context) error {
	return f.kv.Remove(ctx, f.draftKey())
}

func (f *Form) syncTravelerSlots() {
	want := f.draft.Travelers - 1
	if want < 0 {
		want = 0
	}

	current := f.draft.AdditionalTravelers
	switch {
	case len(current) < want:
		for i := len(current); i < want; i++ {
			current = append(current, models.AdditionalTraveler{})
		}
		f.draft.AdditionalTravelers = current
	case len(current) > want:
		f.draft.AdditionalTravelers = current[:want]
	}
}

func (f *Form) clearError(field string) {
	if f.errors.Has(field) {
		kept := NewErrorMap()
		for _, key := range f.errors.Fields() {
			if key != field {
				kept.Add(key, f.errors.Get(key))
			}
		}
		f.errors = kept
	}
}

func (f *Form) persist(ctx context.Context) error {
	// Only persist once the user has actually typed something identifying.
	if f.draft.FullName == "" && f.draft.Email == "" && f.draft.Phone == "" {
		return nil
	}

	data, err := json.Marshal(f.draft)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	if err := f.kv.Set(ctx, f.draftKey(), string(data)); err != nil {
		return fmt.Errorf("failed to persist draft: %w", err)
	}
	return nil
}

func (f *Form) draftKey() string {
	return "bookingFormData_" + f.packageID
}
