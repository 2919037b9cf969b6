package services

import (
	"context"
	"errors"

	"github.com/nimeshabuddhika/checkout-service/pkg"
	"github.com/nimeshabuddhika/checkout-service/pkg/cache"
	"github.com/nimeshabuddhika/checkout-service/pkg/database"
	"github.com/nimeshabuddhika/checkout-service/pkg/repositories"
	eventviews "github.com/nimeshabuddhika/checkout-service/pkg/views"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/configs"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/internal/observability"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/internal/provider"
	"go.uber.org/zap"
)

type WebhookService interface {
	// HandleEvent verifies a provider notification and fulfils completed checkouts.
	// A nil error means the delivery should be acknowledged.
	HandleEvent(ctx context.Context, traceID string, payload []byte, signature string) error
}

type WebhookServiceImpl struct {
	logger    *zap.Logger
	cnf       *configs.Config
	provider  provider.Provider
	db        database.Querier  // nil when no order store is configured
	orderRepo repositories.OrderRepository
	ledger    cache.EventLedger // nil when Redis is not configured
	publisher EventPublisher
}

func NewWebhookService(logger *zap.Logger, cnf *configs.Config, p provider.Provider, db database.Querier, orderRepo repositories.OrderRepository, ledger cache.EventLedger, publisher EventPublisher) WebhookService {
	return &WebhookServiceImpl{
		logger:    logger,
		cnf:       cnf,
		provider:  p,
		db:        db,
		orderRepo: orderRepo,
		ledger:    ledger,
		publisher: publisher,
	}
}

func (w *WebhookServiceImpl) HandleEvent(ctx context.Context, traceID string, payload []byte, signature string) error {
	if w.cnf.StripeWebhookSecret == "" {
		observability.WebhookRejected.WithLabelValues(observability.ReasonConfiguration).Inc()
		return pkg.NewAppError(pkg.ErrWebhookSecretMissingCode, "", nil)
	}

	event, err := w.provider.VerifyEvent(payload, signature, w.cnf.StripeWebhookSecret)
	switch {
	case err == nil:
	case errors.Is(err, provider.ErrInvalidSignature):
		observability.WebhookRejected.WithLabelValues(observability.ReasonSignature).Inc()
		return pkg.NewAppError(pkg.ErrSignatureCode, "", err)
	case errors.Is(err, provider.ErrMalformedPayload):
		observability.WebhookRejected.WithLabelValues(observability.ReasonMalformed).Inc()
		return pkg.NewAppError(pkg.ErrMalformedPayloadCode, "", err)
	default:
		return pkg.NewAppError(pkg.ErrServerCode, "", err)
	}

	logger := w.logger.With(zap.String(pkg.TraceId, traceID), zap.String(pkg.EventId, event.ID), zap.String("type", event.Type))
	if event.Type != provider.EventCheckoutSessionCompleted {
		logger.Debug("webhook event ignored")
		observability.WebhookEvents.WithLabelValues(event.Type, observability.OutcomeIgnored).Inc()
		return nil
	}
	logger = logger.With(zap.String(pkg.SessionId, event.SessionID))

	if w.alreadyFulfilled(ctx, logger, event.ID) {
		logger.Info("webhook event already fulfilled")
		observability.WebhookEvents.WithLabelValues(event.Type, observability.OutcomeDuplicate).Inc()
		return nil
	}

	if w.db == nil {
		logger.Debug("no order store configured, nothing to fulfil")
		observability.WebhookEvents.WithLabelValues(event.Type, observability.OutcomeNoStore).Inc()
		return nil
	}

	order, found, err := w.orderRepo.MarkPaid(ctx, w.db, event.SessionID, event.PaymentStatus)
	if err != nil {
		// Not acknowledged, so the provider redelivers later.
		observability.WebhookEvents.WithLabelValues(event.Type, observability.ReasonStore).Inc()
		return pkg.NewAppError(pkg.ErrServerCode, "failed to update order", pkg.HandleSQLError(traceID, w.logger, err))
	}
	if !found {
		logger.Debug("no order recorded for session")
		observability.WebhookEvents.WithLabelValues(event.Type, observability.OutcomeUnknown).Inc()
		return nil
	}

	logger.Info("order marked paid", zap.String("payment_status", event.PaymentStatus))
	observability.WebhookEvents.WithLabelValues(event.Type, observability.OutcomeFulfilled).Inc()

	if w.ledger != nil {
		if err = w.ledger.Record(ctx, event.ID); err != nil {
			logger.Warn("failed to record webhook event", zap.Error(err))
		}
	}
	if err = w.publisher.Publish(ctx, order.ToPaymentEvent(eventviews.PaymentEventOrderPaid, traceID)); err != nil {
		logger.Warn("failed to publish payment event", zap.Error(err))
	}
	return nil
}

// alreadyFulfilled consults the event ledger. Ledger failures count as unseen; the update is idempotent.
func (w *WebhookServiceImpl) alreadyFulfilled(ctx context.Context, logger *zap.Logger, eventID string) bool {
	if w.ledger == nil || eventID == "" {
		return false
	}
	seen, err := w.ledger.Seen(ctx, eventID)
	if err != nil {
		logger.Warn("webhook event ledger unavailable", zap.Error(err))
		return false
	}
	return seen
}
