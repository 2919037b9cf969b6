package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nimeshabuddhika/checkout-service/pkg"
	"github.com/nimeshabuddhika/checkout-service/pkg/utils"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/configs"
	"go.uber.org/zap"
)

const visibleKeyChars = 12

// main prints whether the Stripe settings are usable and exits 1 when checkout cannot work.
func main() {
	pkg.InitLogger("checkconfig")
	logger := pkg.Logger
	defer func() { _ = logger.Sync() }()

	cfg, err := configs.Load(logger)
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		os.Exit(1)
	}
	if !report(os.Stdout, cfg) {
		os.Exit(1)
	}
}

// report writes the configuration summary to w and returns false when the secret key is unusable.
func report(w io.Writer, cfg *configs.Config) bool {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Stripe Configuration Check")
	fmt.Fprintln(w, rule)

	if !cfg.SecretKeyConfigured() {
		fmt.Fprintln(w, "[FAIL] STRIPE_SECRET_KEY: NOT CONFIGURED")
		fmt.Fprintln(w, "       Set APP_STRIPE_SECRET_KEY (or STRIPE_SECRET_KEY in config) to your Stripe secret key")
		fmt.Fprintln(w, "       Get it from: https://dashboard.stripe.com/test/apikeys")
		return false
	}
	masked := utils.MaskSecret(cfg.StripeSecretKey, visibleKeyChars)
	if strings.HasPrefix(cfg.StripeSecretKey, "sk_test_") {
		fmt.Fprintf(w, "[OK]   STRIPE_SECRET_KEY: configured, test mode (%s)\n", masked)
	} else {
		fmt.Fprintf(w, "[WARN] STRIPE_SECRET_KEY: set but not a test key (%s)\n", masked)
	}

	if utils.IsEmpty(cfg.StripePublishableKey) || cfg.StripePublishableKey == pkg.PlaceholderPublishableKey {
		fmt.Fprintln(w, "[WARN] STRIPE_PUBLISHABLE_KEY: not configured (optional for backend)")
	} else {
		fmt.Fprintf(w, "[OK]   STRIPE_PUBLISHABLE_KEY: configured (%s)\n", utils.MaskSecret(cfg.StripePublishableKey, visibleKeyChars))
	}

	if utils.IsEmpty(cfg.StripeWebhookSecret) {
		fmt.Fprintln(w, "[WARN] STRIPE_WEBHOOK_SECRET: not configured, webhooks will be rejected")
	} else {
		fmt.Fprintln(w, "[OK]   STRIPE_WEBHOOK_SECRET: configured")
	}

	fmt.Fprintf(w, "[OK]   BASE_URL: %s\n", cfg.BaseURL)
	fmt.Fprintf(w, "[OK]   FRONTEND_URL: %s\n", cfg.FrontendURL)
	fmt.Fprintf(w, "[INFO] order store: %s\n", enabled(cfg.StoreEnabled()))
	fmt.Fprintf(w, "[INFO] redis: %s\n", enabled(cfg.RedisEnabled()))
	fmt.Fprintf(w, "[INFO] kafka: %s\n", enabled(cfg.KafkaEnabled()))

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Configuration looks good! You can start the server now.")
	fmt.Fprintln(w, rule)
	return true
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
