package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout_service",
			Name:      "sessions_created_total",
			Help:      "Hosted checkout sessions created at the provider",
		},
		[]string{"currency"},
	)

	SessionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout_service",
			Name:      "sessions_failed_total",
			Help:      "Checkout session attempts that failed, by reason",
		},
		[]string{"reason"},
	)

	ProviderLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "checkout_service",
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of session creation calls to the payment provider",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 12},
		},
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout_service",
			Name:      "webhook_events_total",
			Help:      "Verified webhook events by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	WebhookRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout_service",
			Name:      "webhook_rejected_total",
			Help:      "Webhook deliveries rejected before processing, by reason",
		},
		[]string{"reason"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout_service",
			Name:      "payment_events_published_total",
			Help:      "Payment events handed to the broker, by type and result",
		},
		[]string{"type", "result"},
	)
)

// Label values for the counters above.
const (
	ReasonValidation    = "validation"
	ReasonConfiguration = "configuration"
	ReasonUpstream      = "upstream"
	ReasonInternal      = "internal"
	ReasonStore         = "store"
	ReasonSignature     = "signature"
	ReasonMalformed     = "malformed"

	OutcomeFulfilled = "fulfilled"
	OutcomeUnknown   = "unknown_session"
	OutcomeNoStore   = "no_store"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"

	ResultOK    = "ok"
	ResultError = "error"
)
