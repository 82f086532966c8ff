package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"difendimi.live/intake/common/logger"
)

// quietRoutes are polled by infrastructure and logged at debug level.
var quietRoutes = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// Logger logs one line per request. It logs the matched route rather than the
// raw path and never the query string or body.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()

		ctx := c.Request.Context()
		if sessionID := c.Param("session_id"); sessionID != "" {
			ctx = logger.WithLogFields(ctx, logger.LogFields{SessionID: &sessionID})
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			slog.ErrorContext(ctx, "request failed", attrs...)
		case status >= 400:
			slog.WarnContext(ctx, "request error", attrs...)
		case quietRoutes[route]:
			slog.DebugContext(ctx, "request", attrs...)
		default:
			slog.InfoContext(ctx, "request", attrs...)
		}
	}
}
