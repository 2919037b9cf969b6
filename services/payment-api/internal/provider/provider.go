package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EventCheckoutSessionCompleted is the event type that fulfils an order.
const EventCheckoutSessionCompleted = "checkout.session.completed"

// SessionPlaceholder is substituted by the provider with the created session id in redirect URLs.
const SessionPlaceholder = "{CHECKOUT_SESSION_ID}"

var (
	// ErrInvalidSignature means the signature header is missing, stale or does not match the payload.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMalformedPayload means the signed body is not a valid event envelope.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// UpstreamError is returned when the provider rejects a request.
type UpstreamError struct {
	StatusCode int
	Message    string // provider's user-facing message
	Cause      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("payment provider rejected request (status %d): %s", e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

// SessionRequest describes a one-time, single line item hosted checkout.
type SessionRequest struct {
	AmountMinor int64
	Currency    string
	Description string
	Metadata    map[string]string
	SuccessURL  string
	CancelURL   string
}

// SessionRef identifies a created hosted checkout session.
type SessionRef struct {
	ID      string
	URL     string
	Created time.Time
}

// Event is a verified provider notification.
type Event struct {
	ID   string
	Type string
	// SessionID and PaymentStatus are set for checkout session events only.
	SessionID     string
	PaymentStatus string
}

// Provider is the payment processor as seen by the checkout and webhook flows.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (SessionRef, error)
	VerifyEvent(payload []byte, signature string, secret string) (Event, error)
}
