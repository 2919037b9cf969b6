package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_secret"

func newTestProvider(t *testing.T, handler http.HandlerFunc) *StripeProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewStripeProvider(zap.NewNop(), StripeConfig{
		SecretKey:  "sk_test_unit",
		HTTPClient: srv.Client(),
		APIURL:     srv.URL,
	})
}

func TestCreateSession_SendsLineItemAndRedirects(t *testing.T) {
	var form map[string]string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_unit", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1","created":1700000000}`))
	})

	ref, err := p.CreateSession(context.Background(), SessionRequest{
		AmountMinor: 50000,
		Currency:    "inr",
		Description: "Order",
		Metadata:    map[string]string{"cartId": "c-42"},
		SuccessURL:  "http://localhost:5173/success?session_id=" + SessionPlaceholder,
		CancelURL:   "http://localhost:5173/cancel",
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_test_1", ref.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", ref.URL)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), ref.Created)

	assert.Equal(t, "payment", form["mode"])
	assert.Equal(t, "card", form["payment_method_types[0]"])
	assert.Equal(t, "50000", form["line_items[0][price_data][unit_amount]"])
	assert.Equal(t, "inr", form["line_items[0][price_data][currency]"])
	assert.Equal(t, "Order", form["line_items[0][price_data][product_data][name]"])
	assert.Equal(t, "1", form["line_items[0][quantity]"])
	assert.Equal(t, "c-42", form["metadata[cartId]"])
	assert.Equal(t, "http://localhost:5173/success?session_id={CHECKOUT_SESSION_ID}", form["success_url"])
	assert.Equal(t, "http://localhost:5173/cancel", form["cancel_url"])
}

func TestCreateSession_ProviderRejection(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Amount must be at least 50 cents"}}`))
	})

	_, err := p.CreateSession(context.Background(), SessionRequest{AmountMinor: 1, Currency: "usd", Description: "Order"})
	require.Error(t, err)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusBadRequest, upstream.StatusCode)
	assert.Equal(t, "Amount must be at least 50 cents", upstream.Message)
}

func TestCreateSession_TransportFailureIsNotUpstream(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewStripeProvider(zap.NewNop(), StripeConfig{SecretKey: "sk_test_unit", HTTPClient: http.DefaultClient, APIURL: url})
	_, err := p.CreateSession(context.Background(), SessionRequest{AmountMinor: 100, Currency: "inr", Description: "Order"})
	require.Error(t, err)

	var upstream *UpstreamError
	assert.False(t, errors.As(err, &upstream))
}

func signedPayload(t *testing.T, body map[string]any, secret string, ts time.Time) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: ts,
	})
	return signed.Payload, signed.Header
}

func completedEvent(sessionID string) map[string]any {
	return map[string]any{
		"id":          "evt_1",
		"object":      "event",
		"type":        EventCheckoutSessionCompleted,
		"api_version": "2020-08-27",
		"data": map[string]any{
			"object": map[string]any{
				"id":             sessionID,
				"object":         "checkout.session",
				"payment_status": "paid",
			},
		},
	}
}

func TestVerifyEvent_CompletedSession(t *testing.T) {
	p := NewStripeProvider(zap.NewNop(), StripeConfig{SecretKey: "sk_test_unit"})
	payload, sig := signedPayload(t, completedEvent("cs_test_9"), testWebhookSecret, time.Now())

	event, err := p.VerifyEvent(payload, sig, testWebhookSecret)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventCheckoutSessionCompleted, event.Type)
	assert.Equal(t, "cs_test_9", event.SessionID)
	assert.Equal(t, "paid", event.PaymentStatus)
}

func TestVerifyEvent_OtherTypeCarriesNoSession(t *testing.T) {
	p := NewStripeProvider(zap.NewNop(), StripeConfig{SecretKey: "sk_test_unit"})
	payload, sig := signedPayload(t, map[string]any{
		"id":     "evt_2",
		"object": "event",
		"type":   "payment_intent.created",
		"data":   map[string]any{"object": map[string]any{"id": "pi_1", "object": "payment_intent"}},
	}, testWebhookSecret, time.Now())

	event, err := p.VerifyEvent(payload, sig, testWebhookSecret)
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.created", event.Type)
	assert.Empty(t, event.SessionID)
}

func TestVerifyEvent_SignatureFailures(t *testing.T) {
	p := NewStripeProvider(zap.NewNop(), StripeConfig{SecretKey: "sk_test_unit"})
	payload, sig := signedPayload(t, completedEvent("cs_test_9"), testWebhookSecret, time.Now())
	tampered := bytes.Replace(payload, []byte("cs_test_9"), []byte("cs_test_0"), 1)
	_, staleSig := signedPayload(t, completedEvent("cs_test_9"), testWebhookSecret, time.Now().Add(-time.Hour))

	cases := map[string]struct {
		payload []byte
		sig     string
		secret  string
	}{
		"missing header":  {payload, "", testWebhookSecret},
		"garbage header":  {payload, "nonsense", testWebhookSecret},
		"wrong secret":    {payload, sig, "whsec_other"},
		"tampered body":   {tampered, sig, testWebhookSecret},
		"stale timestamp": {payload, staleSig, testWebhookSecret},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.VerifyEvent(tc.payload, tc.sig, tc.secret)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestVerifyEvent_MalformedBody(t *testing.T) {
	p := NewStripeProvider(zap.NewNop(), StripeConfig{SecretKey: "sk_test_unit"})
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte("not json"),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})

	_, err := p.VerifyEvent(signed.Payload, signed.Header, testWebhookSecret)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestVerifyEvent_CompletedWithoutSessionID(t *testing.T) {
	p := NewStripeProvider(zap.NewNop(), StripeConfig{SecretKey: "sk_test_unit"})
	payload, sig := signedPayload(t, completedEvent(""), testWebhookSecret, time.Now())

	_, err := p.VerifyEvent(payload, sig, testWebhookSecret)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}
