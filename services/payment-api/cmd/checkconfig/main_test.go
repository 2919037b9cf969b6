package main

import (
	"bytes"
	"testing"

	"github.com/nimeshabuddhika/checkout-service/pkg"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/configs"
	"github.com/stretchr/testify/assert"
)

func TestReport_SecretKeyMissing(t *testing.T) {
	for _, key := range []string{"", pkg.PlaceholderSecretKey} {
		var out bytes.Buffer
		ok := report(&out, &configs.Config{StripeSecretKey: key})

		assert.False(t, ok)
		assert.Contains(t, out.String(), "STRIPE_SECRET_KEY: NOT CONFIGURED")
	}
}

func TestReport_TestKeyIsMasked(t *testing.T) {
	var out bytes.Buffer
	ok := report(&out, &configs.Config{
		StripeSecretKey:      "sk_test_51AbCdEfGhIjKlMnOp",
		StripePublishableKey: "pk_test_51ZyXwVuTsRqPoNm",
		StripeWebhookSecret:  "whsec_abc",
		BaseURL:              "http://localhost:8000",
		FrontendURL:          "http://localhost:5173",
	})

	assert.True(t, ok)
	s := out.String()
	assert.Contains(t, s, "test mode (sk_test_51Ab...)")
	assert.Contains(t, s, "(pk_test_51Zy...)")
	assert.NotContains(t, s, "sk_test_51AbCdEfGhIjKlMnOp")
	assert.Contains(t, s, "STRIPE_WEBHOOK_SECRET: configured")
	assert.NotContains(t, s, "whsec_abc")
	assert.Contains(t, s, "order store: disabled")
}

func TestReport_LiveKeyWarns(t *testing.T) {
	var out bytes.Buffer
	ok := report(&out, &configs.Config{StripeSecretKey: "sk_live_1234567890abcdef"})

	assert.True(t, ok)
	assert.Contains(t, out.String(), "[WARN] STRIPE_SECRET_KEY: set but not a test key")
	assert.Contains(t, out.String(), "STRIPE_PUBLISHABLE_KEY: not configured")
	assert.Contains(t, out.String(), "STRIPE_WEBHOOK_SECRET: not configured")
}
