package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	applogger "github.com/watchvibe/auth-service/internal/infra/logger"
)

// Logger writes one access-log line per request. Client IPs are masked and
// the severity follows the response class: 5xx error, 4xx warn, rest info.
func Logger(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		reqCtx := GetRequestContext(c)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = path
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", path),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes", c.Writer.Size()),
			zap.String("client_ip", applogger.MaskIP(c.ClientIP())),
			zap.String("trace_id", reqCtx.TraceID),
			zap.String("request_id", reqCtx.RequestID),
		}
		if reqCtx.UserID != "" {
			fields = append(fields, zap.String("user_id", reqCtx.UserID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
