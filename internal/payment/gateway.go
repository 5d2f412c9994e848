// Package payment abstracts the external payment provider behind a
// small gateway interface so services and tests never touch provider
// SDK types directly.
package payment

import (
	"errors"
	"time"
)

// ErrNotConfigured is returned when a paid operation is attempted while
// no gateway credentials are set.  Free registrations never hit the
// gateway and keep working without credentials.
var ErrNotConfigured = errors.New("payment gateway not configured")

// Event kinds delivered by the provider that the settlement pipeline
// understands.  Anything else is acknowledged and dropped.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	EventChargeRefunded    = "charge.refunded"
)

// SessionParams describes a hosted checkout session to be created.
type SessionParams struct {
	AmountCents int64
	Currency    string
	ProductName string
	SuccessURL  string
	CancelURL   string
	// ExpiresAt is when the session should stop accepting payment.
	// Providers may enforce a minimum lifetime and the gateway clamps
	// to it; settlement tolerates a session outliving its reservation.
	ExpiresAt time.Time
	Metadata  map[string]string
	FeeSplit  *FeeSplit
}

// FeeSplit routes the net amount to a connected account while the
// platform keeps FeeCents.
type FeeSplit struct {
	AccountID string
	FeeCents  int64
}

// Session is a created checkout session.
type Session struct {
	ID  string
	URL string
}

// Event is a provider webhook notification normalized into the fields
// the settlement pipeline cares about.
type Event struct {
	ID         string
	Kind       string
	SessionRef string
	PaymentRef string
	// AmountCents is the session total for checkout events and the
	// cumulative refunded amount for refund events.
	AmountCents int64
	Metadata    map[string]string
}

// Gateway is the payment provider surface used by the service layer.
type Gateway interface {
	// CreateSession opens a hosted checkout session.
	CreateSession(params SessionParams) (*Session, error)
	// CreateRefund refunds a captured payment.  amountCents of zero
	// refunds the full remaining amount.
	CreateRefund(paymentRef string, amountCents int64, reason string) error
	// VerifyWebhook authenticates a raw webhook delivery and returns
	// the normalized event.  Any error means the delivery must be
	// rejected with a client error, never acknowledged.
	VerifyWebhook(payload []byte, signature string) (*Event, error)
}
