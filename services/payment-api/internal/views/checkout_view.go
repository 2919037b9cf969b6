package views

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nimeshabuddhika/checkout-service/pkg"
	"github.com/nimeshabuddhika/checkout-service/pkg/models"
)

const (
	DefaultCurrency    = "inr"
	DefaultDescription = "Order"
	minorUnitsPerMajor = 100
)

var (
	ErrAmountMissing       = errors.New("provide either amount (in rupees) or amount_in_paise (in paise)")
	ErrAmountTooSmall      = errors.New("amount must be at least 1 rupee")
	ErrMinorAmountTooSmall = errors.New("amount in paise must be positive")
	ErrAmountTooLarge      = errors.New("amount is too large")
)

// validate reads the same `binding` tags gin uses, so direct service callers get identical rules.
var validate = func() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}()

// CheckoutRequest is the body of POST /api/payments/create-checkout-session.
// Amount is in whole currency units, AmountInPaise in minor units; the minor amount wins when both are sent.
type CheckoutRequest struct {
	Amount        *int64         `json:"amount"`
	AmountInPaise *int64         `json:"amount_in_paise"`
	Currency      string         `json:"currency" binding:"omitempty,len=3,alpha"`
	Description   string         `json:"description" binding:"max=200"`
	Metadata      map[string]any `json:"metadata"`
}

// ApplyDefaults fills currency, description and metadata when the caller left them out.
func (r *CheckoutRequest) ApplyDefaults() {
	r.Currency = strings.ToLower(strings.TrimSpace(r.Currency))
	if r.Currency == "" {
		r.Currency = DefaultCurrency
	}
	if r.Description == "" {
		r.Description = DefaultDescription
	}
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
}

// Validate checks field rules and the amount pair. Call ApplyDefaults first.
func (r *CheckoutRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	_, err := r.ResolveMinorAmount()
	return err
}

// ResolveMinorAmount returns the charge in minor units (paise for INR).
func (r *CheckoutRequest) ResolveMinorAmount() (int64, error) {
	if r.Amount == nil && r.AmountInPaise == nil {
		return 0, ErrAmountMissing
	}
	if r.Amount != nil && *r.Amount < 1 {
		return 0, ErrAmountTooSmall
	}
	if r.AmountInPaise != nil && *r.AmountInPaise < 1 {
		return 0, ErrMinorAmountTooSmall
	}
	if r.AmountInPaise != nil {
		return *r.AmountInPaise, nil
	}
	if *r.Amount > math.MaxInt64/minorUnitsPerMajor {
		return 0, ErrAmountTooLarge
	}
	return *r.Amount * minorUnitsPerMajor, nil
}

// ProviderMetadata flattens metadata into the string map the provider accepts.
// Strings pass through, nulls are dropped, anything else is JSON encoded.
func (r *CheckoutRequest) ProviderMetadata() (map[string]string, error) {
	out := make(map[string]string, len(r.Metadata))
	for k, v := range r.Metadata {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", k, err)
		}
		out[k] = string(b)
	}
	return out, nil
}

type CheckoutResponse struct {
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

type WebhookAck struct {
	Status string `json:"status"`
}

type PublicConfigResponse struct {
	PublishableKey string `json:"publishableKey"`
}

// OrderResponse is the public shape of a stored order.
type OrderResponse struct {
	SessionID     string          `json:"sessionId"`
	Amount        int64           `json:"amount"`
	Currency      string          `json:"currency"`
	Status        pkg.OrderStatus `json:"status"`
	PaymentStatus *string         `json:"paymentStatus"`
	Created       time.Time       `json:"created"`
	Metadata      map[string]any  `json:"metadata"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func ToOrderResponse(o models.Order) OrderResponse {
	metadata := o.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return OrderResponse{
		SessionID:     o.SessionID,
		Amount:        o.Amount,
		Currency:      o.Currency,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Created:       o.Created,
		Metadata:      metadata,
		UpdatedAt:     o.UpdatedAt,
	}
}
