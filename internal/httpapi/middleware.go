package httpapi

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/observer"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/tenant"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
)

const headerRequestID = "X-Request-Id"

// AccessLog tags the request with a request id, logs one line per request
// and records the request duration.
func AccessLog(base *zap.Logger) gin.HandlerFunc {
	if base == nil {
		base = logger.Log
	}
	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(headerRequestID, rid)

		ctx := tenant.WithRequestID(c.Request.Context(), rid)
		ctx = logger.WithLogger(ctx, base)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		duration := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		observer.ObserveHTTPRequest(c.Request.Method, route, strconv.Itoa(status), duration)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		}
		// The caller is only known once authentication ran, so read the
		// final request context.
		log := logger.FromContext(c.Request.Context())
		switch {
		case status >= 500:
			log.Error("Request", append(fields, zap.String("errors", c.Errors.String()))...)
		case status >= 400:
			log.Warn("Request", fields...)
		default:
			log.Info("Request", fields...)
		}
	}
}

// Timeout bounds every request with a deadline. The engine itself defines no
// timeouts.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
