package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// DeliveryIDHeader is set by the webhook handler and echoed into the access log.
const DeliveryIDHeader = "X-Delivery-Id"

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		// Query strings may carry webhook tokens; log the path only.
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		ctx := c.Request.Context()

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}
		if deliveryID := c.Writer.Header().Get(DeliveryIDHeader); deliveryID != "" {
			attrs = append(attrs, "delivery_id", deliveryID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			slog.ErrorContext(ctx, "request failed", attrs...)
		case status >= 400:
			slog.WarnContext(ctx, "request error", attrs...)
		default:
			slog.InfoContext(ctx, "request", attrs...)
		}
	}
}
