package pkg

const (
	HeaderTraceId         string = "X-Trace-Id"
	HeaderRequestId       string = "X-Request-Id"
	HeaderStripeSignature string = "Stripe-Signature"
)

const (
	TraceId   string = "trace_id"
	RequestId string = "request_id"
	SessionId string = "session_id"
	EventId   string = "event_id"

	ServiceName string = "service"
)

type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "created"
	OrderStatusPaid    OrderStatus = "paid"
)

// PlaceholderSecretKey is the value shipped in the sample .env; treat it as unset.
const PlaceholderSecretKey = "sk_test_YOUR_SECRET_KEY_HERE"

// PlaceholderPublishableKey is the sample publishable key value.
const PlaceholderPublishableKey = "pk_test_YOUR_PUBLISHABLE_KEY_HERE"
