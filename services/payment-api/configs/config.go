package configs

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/nimeshabuddhika/checkout-service/pkg"
	"github.com/nimeshabuddhika/checkout-service/pkg/utils"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds application configuration for payment-api.
// Optional infrastructure (order store, Redis, Kafka) is disabled when its address is empty.
type Config struct {
	Port                 string        `mapstructure:"PORT" validate:"required"`
	StripeSecretKey      string        `mapstructure:"STRIPE_SECRET_KEY"`
	StripePublishableKey string        `mapstructure:"STRIPE_PUBLISHABLE_KEY"`
	StripeWebhookSecret  string        `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	BaseURL              string        `mapstructure:"BASE_URL" validate:"required,url"`
	FrontendURL          string        `mapstructure:"FRONTEND_URL" validate:"required,url"`
	CorsOrigins          string        `mapstructure:"CORS_ORIGINS"` // comma separated, defaults to FRONTEND_URL
	ProviderTimeout      time.Duration `mapstructure:"PROVIDER_TIMEOUT" validate:"min=1s"`
	PrimaryDbAddr        string        `mapstructure:"PRIMARY_DB_ADDR"`
	DbName               string        `mapstructure:"DB_NAME"`
	MaxDbCons            int32         `mapstructure:"MAX_DB_CONNECTIONS" validate:"min=1"`
	MinDbCons            int32         `mapstructure:"MIN_DB_CONNECTIONS" validate:"min=1,ltefield=MaxDbCons"`
	RedisAddr            string        `mapstructure:"REDIS_ADDR"`
	WebhookEventTTL      time.Duration `mapstructure:"WEBHOOK_EVENT_TTL" validate:"min=1s"`
	KafkaBrokers         string        `mapstructure:"KAFKA_BROKERS"`
	KafkaPaymentTopic    string        `mapstructure:"KAFKA_PAYMENT_TOPIC" validate:"required_with=KafkaBrokers"`
	KafkaPartition       uint32        `mapstructure:"KAFKA_PARTITION" validate:"min=1"`
	KafkaRetention       time.Duration `mapstructure:"KAFKA_RETENTION"`
	CheckoutRateLimit    int           `mapstructure:"CHECKOUT_RATE_LIMIT" validate:"min=0"` // requests per second, 0 disables
	CheckoutRateBurst    int           `mapstructure:"CHECKOUT_RATE_BURST" validate:"min=1"`
}

// StoreEnabled reports whether an order store is configured.
func (c *Config) StoreEnabled() bool { return !utils.IsEmpty(c.PrimaryDbAddr) }

// RedisEnabled reports whether Redis backs the webhook ledger and the checkout limiter.
func (c *Config) RedisEnabled() bool { return !utils.IsEmpty(c.RedisAddr) }

// KafkaEnabled reports whether payment events are published.
func (c *Config) KafkaEnabled() bool { return !utils.IsEmpty(c.KafkaBrokers) }

// SecretKeyConfigured is false for an empty key and for the sample placeholder.
func (c *Config) SecretKeyConfigured() bool {
	return !utils.IsEmpty(c.StripeSecretKey) && c.StripeSecretKey != pkg.PlaceholderSecretKey
}

// AllowedOrigins lists the CORS origins, falling back to the frontend URL.
func (c *Config) AllowedOrigins() []string {
	if utils.IsEmpty(strings.TrimSpace(c.CorsOrigins)) {
		return []string{strings.TrimRight(c.FrontendURL, "/")}
	}
	var origins []string
	for _, o := range strings.Split(c.CorsOrigins, ",") {
		if o = strings.TrimSpace(o); !utils.IsEmpty(o) {
			origins = append(origins, strings.TrimRight(o, "/"))
		}
	}
	return origins
}

func Load(logger *zap.Logger) (*Config, error) {
	// A local .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	viper.SetEnvPrefix("app") // Prefix for env vars
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("PORT", "8000")
	viper.SetDefault("BASE_URL", "http://localhost:8000")
	viper.SetDefault("FRONTEND_URL", "http://localhost:5173")
	viper.SetDefault("PROVIDER_TIMEOUT", "10s")
	viper.SetDefault("DB_NAME", "stripe_demo")
	viper.SetDefault("MAX_DB_CONNECTIONS", "10")
	viper.SetDefault("MIN_DB_CONNECTIONS", "2")
	viper.SetDefault("WEBHOOK_EVENT_TTL", "72h")
	viper.SetDefault("KAFKA_PAYMENT_TOPIC", "payment-events")
	viper.SetDefault("KAFKA_PARTITION", "4")
	viper.SetDefault("KAFKA_RETENTION", "168h")
	viper.SetDefault("CHECKOUT_RATE_LIMIT", "0")
	viper.SetDefault("CHECKOUT_RATE_BURST", "20")

	// Optional: Read from config.yaml if exists
	if gin.ReleaseMode == gin.Mode() {
		viper.SetConfigName("config.prod")
	} else if gin.TestMode == gin.Mode() {
		logger.Warn("running in test mode")
		viper.SetConfigName("config.test")
	} else {
		logger.Warn("running in development mode")
		viper.SetConfigName("config.dev")
	}
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./services/payment-api/configs")
	_ = viper.ReadInConfig() // Ignore if no file

	var cfg Config
	if err := utils.ParseStructEnv(&cfg); err != nil {
		return nil, err
	}
	// Validate after unmarshal
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, utils.FormatConfigErrors(logger, err, cfg)
	}
	return &cfg, nil
}
