// Package gateway handles the handoff to the hosted payment checkout. The
// gateway itself is an opaque collaborator: we hand it a payment session and
// it eventually navigates the browser back to the portal with the order id
// in the return URL's query string.
package gateway

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/alisproject111/tripeasy-client/internal/models"
)

// Redirector builds hosted-checkout URLs for the payment gateway.
type Redirector struct {
	checkoutURL string
	returnURL   string
}

// NewRedirector creates a Redirector for the configured gateway endpoints.
func NewRedirector(checkoutURL, returnURL string) *Redirector {
	return &Redirector{checkoutURL: checkoutURL, returnURL: returnURL}
}

// CheckoutURL builds the hosted-checkout URL for a payment session. Booking
// and package snapshots ride along URL-encoded so the settlement can fall
// back on them if the session store is empty after the redirect.
func (r *Redirector) CheckoutURL(order *models.CreateOrderResponse, snapshot *models.CheckoutSnapshot) (string, error) {
	u, err := url.Parse(r.checkoutURL)
	if err != nil {
		return "", fmt.Errorf("invalid checkout url: %w", err)
	}

	returnTo, err := url.Parse(r.returnURL)
	if err != nil {
		return "", fmt.Errorf("invalid return url: %w", err)
	}

	returnQuery := returnTo.Query()
	returnQuery.Set("order_id", order.OrderID)
	if snapshot != nil {
		bookingData, err := json.Marshal(snapshot.BookingDetails)
		if err != nil {
			return "", fmt.Errorf("failed to encode booking snapshot: %w", err)
		}
		packageData, err := json.Marshal(snapshot.PackageDetails)
		if err != nil {
			return "", fmt.Errorf("failed to encode package snapshot: %w", err)
		}
		returnQuery.Set("bookingData", string(bookingData))
		returnQuery.Set("packageData", string(packageData))
	}
	returnTo.RawQuery = returnQuery.Encode()

	query := u.Query()
	query.Set("payment_session_id", order.PaymentSessionID)
	query.Set("return_url", returnTo.String())
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// Return is the parsed result of a gateway redirect back to the portal.
type Return struct {
	OrderID  string
	Snapshot *models.CheckoutSnapshot
}

// ParseReturn extracts the order id and any snapshot data the gateway
// carried through its return URL. The mere presence of order_id is the
// trigger to begin settlement; snapshot parse failures are tolerated since
// the session store is tried first anyway.
func ParseReturn(query url.Values) (*Return, error) {
	orderID := query.Get("order_id")
	if orderID == "" {
		return nil, fmt.Errorf("no order ID found")
	}

	ret := &Return{OrderID: orderID}

	bookingData := query.Get("bookingData")
	packageData := query.Get("packageData")
	if bookingData != "" && packageData != "" {
		var draft models.BookingDraft
		var pkg models.PackageSummary
		if json.Unmarshal([]byte(bookingData), &draft) == nil &&
			json.Unmarshal([]byte(packageData), &pkg) == nil {
			ret.Snapshot = &models.CheckoutSnapshot{
				BookingDetails: &draft,
				PackageDetails: &pkg,
			}
		}
	}

	return ret, nil
}
