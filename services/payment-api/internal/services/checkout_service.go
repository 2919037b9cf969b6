package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nimeshabuddhika/checkout-service/pkg"
	"github.com/nimeshabuddhika/checkout-service/pkg/database"
	"github.com/nimeshabuddhika/checkout-service/pkg/models"
	"github.com/nimeshabuddhika/checkout-service/pkg/repositories"
	eventviews "github.com/nimeshabuddhika/checkout-service/pkg/views"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/configs"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/internal/observability"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/internal/provider"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/internal/views"
	"go.uber.org/zap"
)

const secretKeyMissingMessage = "Stripe secret key is not configured. Please set STRIPE_SECRET_KEY in your .env file. " +
	"Get your keys from https://dashboard.stripe.com/test/apikeys"

type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, traceID string, req views.CheckoutRequest) (views.CheckoutResponse, error)
	PublicConfig() views.PublicConfigResponse
}

type CheckoutServiceImpl struct {
	logger    *zap.Logger
	cnf       *configs.Config
	provider  provider.Provider
	db        database.Querier // nil when no order store is configured
	orderRepo repositories.OrderRepository
	publisher EventPublisher
}

func NewCheckoutService(logger *zap.Logger, cnf *configs.Config, p provider.Provider, db database.Querier, orderRepo repositories.OrderRepository, publisher EventPublisher) CheckoutService {
	return &CheckoutServiceImpl{
		logger:    logger,
		cnf:       cnf,
		provider:  p,
		db:        db,
		orderRepo: orderRepo,
		publisher: publisher,
	}
}

// CreateCheckoutSession validates the request, opens a hosted checkout session and records the order.
// If the order insert fails after the session was created, the session is left as is and an internal error is returned.
func (s *CheckoutServiceImpl) CreateCheckoutSession(ctx context.Context, traceID string, req views.CheckoutRequest) (views.CheckoutResponse, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		observability.SessionsFailed.WithLabelValues(observability.ReasonValidation).Inc()
		return views.CheckoutResponse{}, pkg.NewAppError(pkg.ErrInvalidInputCode, validationMessage(err), err)
	}
	amount, _ := req.ResolveMinorAmount()

	if !s.cnf.SecretKeyConfigured() {
		observability.SessionsFailed.WithLabelValues(observability.ReasonConfiguration).Inc()
		return views.CheckoutResponse{}, pkg.NewAppError(pkg.ErrProviderKeyMissingCode, secretKeyMissingMessage, nil)
	}

	metadata, err := req.ProviderMetadata()
	if err != nil {
		observability.SessionsFailed.WithLabelValues(observability.ReasonValidation).Inc()
		return views.CheckoutResponse{}, pkg.NewAppError(pkg.ErrInvalidInputCode, "metadata values must be JSON encodable", err)
	}

	frontend := strings.TrimRight(s.cnf.FrontendURL, "/")
	start := time.Now()
	session, err := s.provider.CreateSession(ctx, provider.SessionRequest{
		AmountMinor: amount,
		Currency:    req.Currency,
		Description: req.Description,
		Metadata:    metadata,
		SuccessURL:  fmt.Sprintf("%s/success?session_id=%s", frontend, provider.SessionPlaceholder),
		CancelURL:   frontend + "/cancel",
	})
	observability.ProviderLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return views.CheckoutResponse{}, s.providerError(traceID, err)
	}

	s.logger.Info("checkout session created",
		zap.String(pkg.TraceId, traceID),
		zap.String(pkg.SessionId, session.ID),
		zap.Int64("amount", amount),
		zap.String("currency", req.Currency),
	)

	order := models.Order{
		SessionID: session.ID,
		Amount:    amount,
		Currency:  req.Currency,
		Status:    pkg.OrderStatusCreated,
		Created:   session.Created,
		Metadata:  req.Metadata,
	}
	if s.db != nil {
		if _, err = s.orderRepo.Create(ctx, s.db, order); err != nil {
			observability.SessionsFailed.WithLabelValues(observability.ReasonStore).Inc()
			s.logger.Error("order insert failed after session creation",
				zap.String(pkg.TraceId, traceID),
				zap.String(pkg.SessionId, session.ID),
			)
			return views.CheckoutResponse{}, pkg.NewAppError(pkg.ErrServerCode, "failed to record order", pkg.HandleSQLError(traceID, s.logger, err))
		}
	}

	if err = s.publisher.Publish(ctx, order.ToPaymentEvent(eventviews.PaymentEventOrderCreated, traceID)); err != nil {
		s.logger.Warn("failed to publish payment event", zap.String(pkg.TraceId, traceID), zap.String(pkg.SessionId, session.ID), zap.Error(err))
	}

	observability.SessionsCreated.WithLabelValues(req.Currency).Inc()
	return views.CheckoutResponse{SessionID: session.ID, CheckoutURL: session.URL}, nil
}

func (s *CheckoutServiceImpl) PublicConfig() views.PublicConfigResponse {
	return views.PublicConfigResponse{PublishableKey: s.cnf.StripePublishableKey}
}

func (s *CheckoutServiceImpl) providerError(traceID string, err error) error {
	var upstream *provider.UpstreamError
	if errors.As(err, &upstream) {
		observability.SessionsFailed.WithLabelValues(observability.ReasonUpstream).Inc()
		msg := upstream.Message
		if msg == "" {
			msg = pkg.ErrUpstreamCode.Message
		}
		return pkg.NewAppError(pkg.ErrUpstreamCode, msg, err)
	}
	observability.SessionsFailed.WithLabelValues(observability.ReasonInternal).Inc()
	s.logger.Error("checkout session creation failed", zap.String(pkg.TraceId, traceID), zap.Error(err))
	return pkg.NewAppError(pkg.ErrServerCode, "failed to create checkout session", err)
}

// validationMessage names the first failing field rule, or returns the amount error as is.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("invalid %s: failed %s rule", strings.ToLower(fe.Field()), fe.Tag())
	}
	return err.Error()
}
