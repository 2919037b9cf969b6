package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/checkout-service/pkg"
	"go.uber.org/zap"
)

// RateLimit rejects requests with 429 once limiter runs out of tokens.
func RateLimit(logger *zap.Logger, limiter *pkg.DistributedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter.Allow(c.Request.Context()) {
			c.Next()
			return
		}
		err := pkg.NewAppError(pkg.ErrRateLimitedCode, "", pkg.ErrRateLimitExceeded)
		resp := pkg.ToErrorResponse(logger, c.GetString(pkg.TraceId), err)
		c.AbortWithStatusJSON(resp.Status, resp)
	}
}
