package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Recovery turns a panic inside a delivery into a 500 so Bitrix24 retries it.
// The delivery id, when the handler got far enough to assign one, goes into
// both the log line and the response body.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			ctx := c.Request.Context()
			deliveryID := c.Writer.Header().Get(DeliveryIDHeader)

			span := trace.SpanFromContext(ctx)
			span.RecordError(fmt.Errorf("panic: %v", rec))
			span.SetStatus(codes.Error, "panic")

			slog.ErrorContext(ctx, "delivery panicked",
				"panic", fmt.Sprint(rec),
				"delivery_id", deliveryID,
				"path", c.Request.URL.Path,
				"stack", string(debug.Stack()),
			)

			// A partly written response cannot be replaced.
			if c.Writer.Written() {
				c.Abort()
				return
			}
			body := gin.H{"ok": false, "error": "internal server error"}
			if deliveryID != "" {
				body["delivery_id"] = deliveryID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
