package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/watchvibe/auth-service/internal/infra/logger"
)

const (
	// TraceIDHeader carries the trace identifier across service boundaries.
	TraceIDHeader = "X-Trace-ID"
	// RequestIDHeader carries the per-request identifier.
	RequestIDHeader = "X-Request-ID"

	// UserIDKey is the gin context key holding the authenticated user ID.
	UserIDKey = "user_id"

	traceIDKey        = "trace_id"
	requestContextKey = "request_context"
)

// RequestContext collects the correlation data attached to a single request.
// UserID is filled in later by RequireAuth.
type RequestContext struct {
	TraceID   string
	RequestID string
	UserID    string
	IP        string
	UserAgent string
}

// Correlation assigns trace and request identifiers (honouring inbound
// headers), echoes both on the response, and threads the request ID into the
// logging context so downstream log lines carry it.
func Correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Header(TraceIDHeader, traceID)
		c.Header(RequestIDHeader, requestID)

		c.Set(traceIDKey, traceID)
		c.Set(requestContextKey, &RequestContext{
			TraceID:   traceID,
			RequestID: requestID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})

		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey{}, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetTraceID returns the trace ID assigned to this request, if any.
func GetTraceID(c *gin.Context) string {
	if id, ok := c.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRequestContext returns the correlation data for this request. Never nil.
func GetRequestContext(c *gin.Context) *RequestContext {
	if reqCtx, ok := c.Value(requestContextKey).(*RequestContext); ok {
		return reqCtx
	}
	return &RequestContext{}
}
