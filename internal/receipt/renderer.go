// Package receipt renders the booking confirmation document that backs the
// receipt email and PDF download. Rendering is pure: missing inputs degrade
// to labeled placeholders instead of failing, so a receipt can always be
// produced for a confirmed payment.
package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/alisproject111/tripeasy-client/internal/models"
)

// Fallback labels for fields the upstream record did not carry.
const (
	defaultCustomerName = "Customer"
	defaultFieldValue   = "Not specified"
	defaultPackageName  = "Travel Package"
	defaultOrderID      = "Unknown"
	defaultOrderStatus  = "UNKNOWN"
)

// Document is a fully resolved receipt, every field populated with either
// real data or its placeholder.
type Document struct {
	OrderID     string
	OrderStatus string
	Amount      float64
	PaymentTime time.Time

	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	TravelDate    string
	Travelers     int

	PackageName     string
	PackageLocation string
	DurationDays    int

	AdditionalTravelers []models.AdditionalTraveler
}

// Render builds the receipt document. Any of the three inputs may be nil.
func Render(order *models.OrderRecord, draft *models.BookingDraft, pkg *models.PackageSummary) Document {
	doc := Document{
		OrderID:         defaultOrderID,
		OrderStatus:     defaultOrderStatus,
		CustomerName:    defaultCustomerName,
		CustomerEmail:   defaultFieldValue,
		CustomerPhone:   defaultFieldValue,
		TravelDate:      defaultFieldValue,
		Travelers:       1,
		PackageName:     defaultPackageName,
		PackageLocation: defaultFieldValue,
	}

	if order != nil {
		if order.OrderID != "" {
			doc.OrderID = order.OrderID
		}
		if order.OrderStatus != "" {
			doc.OrderStatus = string(order.OrderStatus)
		}
		doc.Amount = order.OrderAmount
		doc.PaymentTime = order.PaymentTime
	}

	if draft != nil {
		if draft.FullName != "" {
			doc.CustomerName = draft.FullName
		}
		if draft.Email != "" {
			doc.CustomerEmail = draft.Email
		}
		if draft.Phone != "" {
			doc.CustomerPhone = draft.Phone
		}
		if draft.TravelDate != "" {
			doc.TravelDate = draft.TravelDate
		}
		if draft.Travelers > 0 {
			doc.Travelers = draft.Travelers
		}
		doc.AdditionalTravelers = draft.AdditionalTravelers
	}

	if pkg != nil {
		if pkg.Name != "" {
			doc.PackageName = pkg.Name
		}
		if pkg.Location != "" {
			doc.PackageLocation = pkg.Location
		}
		doc.DurationDays = pkg.Duration
	}

	return doc
}

// Lines renders the document as the plain-text body used in the receipt
// email.
func (d Document) Lines() []string {
	lines := []string{
		"Booking Confirmation",
		"",
		fmt.Sprintf("Order ID: %s", d.OrderID),
		fmt.Sprintf("Status: %s", d.OrderStatus),
		fmt.Sprintf("Amount Paid: ₹%.2f", d.Amount),
	}
	if !d.PaymentTime.IsZero() {
		lines = append(lines, fmt.Sprintf("Payment Time: %s", d.PaymentTime.Format(time.RFC1123)))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Package: %s", d.PackageName),
		fmt.Sprintf("Location: %s", d.PackageLocation),
	)
	if d.DurationDays > 0 {
		lines = append(lines, fmt.Sprintf("Duration: %d days", d.DurationDays))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Customer: %s", d.CustomerName),
		fmt.Sprintf("Email: %s", d.CustomerEmail),
		fmt.Sprintf("Phone: %s", d.CustomerPhone),
		fmt.Sprintf("Travel Date: %s", d.TravelDate),
		fmt.Sprintf("Travelers: %d", d.Travelers),
	)
	for i, traveler := range d.AdditionalTravelers {
		name := traveler.FullName
		if name == "" {
			name = defaultFieldValue
		}
		lines = append(lines, fmt.Sprintf("Traveler %d: %s", i+2, name))
	}
	return lines
}

// Text joins the receipt lines into one body.
func (d Document) Text() string {
	return strings.Join(d.Lines(), "\n")
}
