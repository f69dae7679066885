// Package payment talks to the hosted-checkout payment provider.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrSignatureInvalid = errors.New("invalid webhook signature")

const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventCheckoutAsyncSucceeded = "checkout.session.async_payment_succeeded"
)

type LineItem struct {
	Name       string
	Image      string
	UnitAmount int64
	Quantity   int64
}

type CheckoutRequest struct {
	Currency      string
	Items         []LineItem
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CompletedSession is the part of a provider session the webhook consumes.
type CompletedSession struct {
	ID              string
	PaymentIntentID string
	PaymentStatus   string
	AmountTotal     int64
	Metadata        map[string]string
}

// Paid reports whether the session's payment has settled. Delayed payment
// methods complete the session first and settle later.
func (s CompletedSession) Paid() bool {
	return s.PaymentStatus == "paid" || s.PaymentStatus == "no_payment_required"
}

type Event struct {
	ID      string
	Type    string
	Session *CompletedSession
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	// ParseWebhook verifies the signature header and decodes the event.
	// Verification failures return ErrSignatureInvalid.
	ParseWebhook(payload []byte, signature string) (Event, error)
}

// ToMinorUnits converts a major-unit amount to the provider's integer
// representation (paise for INR).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
