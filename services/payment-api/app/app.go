package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/checkout-service/pkg"
	"github.com/nimeshabuddhika/checkout-service/pkg/cache"
	"github.com/nimeshabuddhika/checkout-service/pkg/database"
	middleware "github.com/nimeshabuddhika/checkout-service/pkg/middlewares"
	"github.com/nimeshabuddhika/checkout-service/pkg/repositories"
	"github.com/nimeshabuddhika/checkout-service/pkg/utils"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/configs"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/internal/handlers"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/internal/provider"
	"github.com/nimeshabuddhika/checkout-service/services/payment-api/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const checkoutRateKey = "checkout:session_rate"

// NewApp wires dependencies, builds the Gin engine, and returns an *http.Server and a cleanup func.
// Every configured backend is connected here, before the first request is served.
func NewApp(ctx context.Context, logger *zap.Logger) (*http.Server, func(), error) {
	cfg, err := configs.Load(logger)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.SecretKeyConfigured() {
		logger.Warn("stripe secret key is not configured, checkout requests will be rejected")
	}
	if utils.IsEmpty(cfg.StripeWebhookSecret) {
		logger.Warn("stripe webhook secret is not configured, webhook deliveries will be rejected")
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Order store (optional)
	var store database.Querier
	if cfg.StoreEnabled() {
		db, disconnect, err := database.New(ctx, logger, database.Config{
			DSN:      cfg.PrimaryDbAddr,
			Database: cfg.DbName,
			MaxConns: cfg.MaxDbCons,
			MinConns: cfg.MinDbCons,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect order store: %w", err)
		}
		closers = append(closers, disconnect)
		if err = database.RunMigrations(logger, cfg.PrimaryDbAddr, cfg.DbName); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate order store: %w", err)
		}
		store = db
	} else {
		logger.Info("no order store configured, orders will not be recorded")
	}

	// Redis backs the webhook event ledger and the global checkout limit (optional)
	var (
		redisClient *redis.Client
		ledger      cache.EventLedger
	)
	if cfg.RedisEnabled() {
		client, closeRedis, err := cache.New(ctx, cache.Config{Addr: cfg.RedisAddr})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, closeRedis)
		redisClient = client
		ledger = cache.NewRedisEventLedger(client, cfg.WebhookEventTTL)
	}

	// Payment events (optional)
	var publisher services.EventPublisher = services.NoopEventPublisher{}
	if cfg.KafkaEnabled() {
		kp, err := services.NewKafkaEventPublisher(ctx, logger, cfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, kp.Close)
		publisher = kp
	}

	stripeProvider := provider.NewStripeProvider(logger, provider.StripeConfig{
		SecretKey:  cfg.StripeSecretKey,
		HTTPClient: utils.NewHTTPClient(utils.WithClientTimeout(cfg.ProviderTimeout)),
	})

	orderRepo := repositories.NewOrderRepository()
	checkoutService := services.NewCheckoutService(logger, cfg, stripeProvider, store, orderRepo, publisher)
	webhookService := services.NewWebhookService(logger, cfg, stripeProvider, store, orderRepo, ledger, publisher)
	orderService := services.NewOrderService(logger, store, orderRepo)

	baseHandler := handlers.NewBaseHandler(logger)
	paymentHandler := handlers.NewPaymentHandler(logger, checkoutService, webhookService, orderService)
	limiter := pkg.NewDistributedLimiter(redisClient, checkoutRateKey, cfg.CheckoutRateLimit, cfg.CheckoutRateBurst, time.Second, logger)

	// Router
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{pkg.HeaderTraceId, pkg.HeaderRequestId},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.TraceID())
	r.Use(middleware.Metrics())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	baseHandler.RegisterRoutes(r)

	api := r.Group("/api/payments")
	paymentHandler.RegisterRoutes(api, middleware.RateLimit(logger, limiter))

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv, cleanup, nil
}
