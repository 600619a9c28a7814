package models

// AdditionalTraveler holds the details collected for every traveler
// beyond the lead traveler.
type AdditionalTraveler struct {
	FullName string `json:"fullName"`
	Gender   string `json:"gender"`
	Age      string `json:"age"`
}

// BookingDraft is the traveler and trip-selection data collected by the
// booking form. It is mirrored into the session store on every change so a
// refresh or back-navigation restores it.
//
// Invariant: len(AdditionalTravelers) == Travelers - 1 at all times.
type BookingDraft struct {
	FullName            string               `json:"fullName"`
	Email               string               `json:"email"`
	Phone               string               `json:"phone"`
	Gender              string               `json:"gender"`
	Age                 string               `json:"age"`
	TravelDate          string               `json:"travelDate"`
	Travelers           int                  `json:"travelers"`
	SpecialRequests     string               `json:"specialRequests"`
	TermsAccepted       bool                 `json:"termsAccepted"`
	AdditionalTravelers []AdditionalTraveler `json:"additionalTravelers"`
}

// NewBookingDraft returns an empty draft for a single traveler.
func NewBookingDraft() *BookingDraft {
	return &BookingDraft{
		Travelers:           1,
		AdditionalTravelers: []AdditionalTraveler{},
	}
}

// BookingInquiry is the pre-payment booking request submitted to the
// remote API.
type BookingInquiry struct {
	BookingDetails *BookingDraft   `json:"bookingDetails"`
	PackageDetails *PackageSummary `json:"packageDetails"`
	TotalPrice     float64         `json:"totalPrice"`
}

// CheckoutSnapshot is the session-scoped state written immediately before
// the gateway redirect and read back by the settlement orchestrator after
// return. It is recovery-only, never authoritative.
type CheckoutSnapshot struct {
	BookingDetails *BookingDraft   `json:"bookingDetails"`
	PackageDetails *PackageSummary `json:"packageDetails"`
	TotalPrice     float64         `json:"totalPrice"`
}
