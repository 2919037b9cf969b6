package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/checkout-service/pkg"
	"github.com/nimeshabuddhika/checkout-service/pkg/utils"
)

// TraceID resolves the trace id for a request: X-Trace-Id first, then a proxy's X-Request-Id, else a new uuid.
// A caller's X-Request-Id is echoed back untouched so it can be matched against its own logs.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Request.Header.Get(pkg.HeaderRequestId)
		traceID := c.Request.Header.Get(pkg.HeaderTraceId)
		if utils.IsEmpty(traceID) {
			traceID = requestID
		}
		if utils.IsEmpty(traceID) {
			traceID = uuid.New().String()
		}

		c.Set(pkg.TraceId, traceID)
		c.Writer.Header().Set(pkg.HeaderTraceId, traceID)
		if !utils.IsEmpty(requestID) {
			c.Set(pkg.RequestId, requestID)
			c.Writer.Header().Set(pkg.HeaderRequestId, requestID)
		}
		c.Next()
	}
}
