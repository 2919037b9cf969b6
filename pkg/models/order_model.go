package models

import (
	"time"

	"github.com/nimeshabuddhika/checkout-service/pkg"
	"github.com/nimeshabuddhika/checkout-service/pkg/views"
)

// Order maps to table `orders`
type Order struct {
	ID            int64
	SessionID     string
	Amount        int64 // minor units
	Currency      string
	Status        pkg.OrderStatus
	PaymentStatus *string
	Created       time.Time // provider session creation time
	Metadata      map[string]any
	UpdatedAt     time.Time
}

// ToPaymentEvent builds the event payload published when the order changes state.
func (o Order) ToPaymentEvent(eventType views.PaymentEventType, traceID string) views.PaymentEvent {
	ev := views.PaymentEvent{
		Type:      eventType,
		SessionID: o.SessionID,
		Amount:    o.Amount,
		Currency:  o.Currency,
		Status:    o.Status,
		Metadata:  o.Metadata,
		TraceID:   traceID,
		CreatedAt: o.Created,
	}
	if o.PaymentStatus != nil {
		ev.PaymentStatus = *o.PaymentStatus
	}
	return ev
}
