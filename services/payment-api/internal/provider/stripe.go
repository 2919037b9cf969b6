package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"
)

// StripeConfig configures the Stripe API client.
type StripeConfig struct {
	SecretKey  string
	HTTPClient *http.Client
	// APIURL overrides the Stripe API base URL. Empty means the public API.
	APIURL string
}

// StripeProvider talks to Stripe Checkout and verifies Stripe webhooks.
type StripeProvider struct {
	logger *zap.Logger
	api    *client.API
}

// NewStripeProvider builds a client bound to cfg.SecretKey. No global stripe.Key is touched.
func NewStripeProvider(logger *zap.Logger, cfg StripeConfig) *StripeProvider {
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        cfg.HTTPClient,
		LeveledLogger:     logger.Sugar(),
		MaxNetworkRetries: stripe.Int64(0), // a failed session creation is reported, never replayed
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return &StripeProvider{logger: logger, api: api}
}

func (s *StripeProvider) CreateSession(ctx context.Context, req SessionRequest) (SessionRef, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(req.AmountMinor),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return SessionRef{}, &UpstreamError{
				StatusCode: stripeErr.HTTPStatusCode,
				Message:    stripeErr.Msg,
				Cause:      err,
			}
		}
		return SessionRef{}, fmt.Errorf("create checkout session: %w", err)
	}

	return SessionRef{
		ID:      sess.ID,
		URL:     sess.URL,
		Created: time.Unix(sess.Created, 0).UTC(),
	}, nil
}

func (s *StripeProvider) VerifyEvent(payload []byte, signature string, secret string) (Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		Tolerance: webhook.DefaultTolerance,
		// The account may be pinned to another API version than this SDK; only the session id is read.
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	out := Event{ID: event.ID, Type: string(event.Type)}
	if out.Type != EventCheckoutSessionCompleted {
		return out, nil
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return Event{}, fmt.Errorf("%w: event %s has no data object", ErrMalformedPayload, event.ID)
	}
	var sess stripe.CheckoutSession
	if err = json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if sess.ID == "" {
		return Event{}, fmt.Errorf("%w: event %s carries no session id", ErrMalformedPayload, event.ID)
	}
	out.SessionID = sess.ID
	out.PaymentStatus = string(sess.PaymentStatus)
	return out, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
