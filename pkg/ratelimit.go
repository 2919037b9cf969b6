package pkg

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DistributedLimiter combines local rate.Limiter with Redis for global enforcement.
// With a nil redis client only the local limiter applies.
type DistributedLimiter struct {
	localLimiter *rate.Limiter
	redisClient  *redis.Client
	key          string        // e.g: "checkout:session_rate"
	ttl          time.Duration // e.g: 1s window for the global counter
	globalLimit  int64         // requests admitted across all replicas per window
	logger       *zap.Logger
}

// NewDistributedLimiter creates a limiter; if globalRate=0, it's unlimited.
func NewDistributedLimiter(redisClient *redis.Client, key string, globalRate, burst int, ttl time.Duration, logger *zap.Logger) *DistributedLimiter {
	var local *rate.Limiter
	if globalRate > 0 {
		local = rate.NewLimiter(rate.Limit(globalRate), burst)
	}
	return &DistributedLimiter{
		localLimiter: local,
		redisClient:  redisClient,
		key:          key,
		ttl:          ttl,
		globalLimit:  windowLimit(globalRate, ttl),
		logger:       logger,
	}
}

// windowLimit is globalRate scaled to the counter window, never below one request.
func windowLimit(globalRate int, window time.Duration) int64 {
	limit := int64(float64(globalRate) * window.Seconds())
	if limit < 1 {
		return 1
	}
	return limit
}

// Allow checks if a token is available; uses Redis for distributed increment.
func (d *DistributedLimiter) Allow(ctx context.Context) bool {
	if d.localLimiter == nil {
		return true // Unlimited
	}

	// Local check first (fast path)
	if !d.localLimiter.Allow() {
		return false
	}
	if d.redisClient == nil {
		return true
	}

	// Fixed window: the first increment starts the window, later ones must not extend it.
	pipe := d.redisClient.Pipeline()
	incr := pipe.Incr(ctx, d.key)
	pipe.ExpireNX(ctx, d.key, d.ttl)
	_, err := pipe.Exec(ctx)
	if err != nil {
		d.logger.Error("Redis rate limit error; falling back to local", zap.Error(err))
		return true
	}

	count := incr.Val()
	if count > d.globalLimit {
		// Rejected requests do not consume the window.
		if err := d.redisClient.Decr(ctx, d.key).Err(); err != nil {
			d.logger.Warn("Redis rate limit rollback failed", zap.Error(err))
		}
		d.logger.Warn("Global rate limit exceeded", zap.Int64("count", count), zap.Int64("limit", d.globalLimit))
		return false
	}
	return true
}
