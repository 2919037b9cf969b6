package views

import (
	"time"

	"github.com/nimeshabuddhika/checkout-service/pkg"
)

type PaymentEventType string

const (
	PaymentEventOrderCreated PaymentEventType = "order.created"
	PaymentEventOrderPaid    PaymentEventType = "order.paid"
)

// PaymentEvent is the Kafka payload describing an order state change.
type PaymentEvent struct {
	Type          PaymentEventType `json:"type"`
	SessionID     string           `json:"sessionId"`
	Amount        int64            `json:"amount"`
	Currency      string           `json:"currency"`
	Status        pkg.OrderStatus  `json:"status"`
	PaymentStatus string           `json:"paymentStatus,omitempty"`
	Metadata      map[string]any   `json:"metadata,omitempty"`
	TraceID       string           `json:"traceId"`
	CreatedAt     time.Time        `json:"createdAt"`
}
