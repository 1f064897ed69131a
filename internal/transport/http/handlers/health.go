package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadinessCheck probes a downstream dependency.
type ReadinessCheck func(ctx context.Context) error

type namedCheck struct {
	name  string
	check ReadinessCheck
}

// HealthHandler exposes liveness and readiness information.
type HealthHandler struct {
	startedAt time.Time
	checks    []namedCheck
}

// HealthOption configures the health handler.
type HealthOption func(*HealthHandler)

// WithReadinessCheck registers a dependency probe run by the readiness endpoint.
func WithReadinessCheck(name string, check ReadinessCheck) HealthOption {
	return func(h *HealthHandler) {
		if check != nil {
			h.checks = append(h.checks, namedCheck{name: name, check: check})
		}
	}
}

// NewHealthHandler builds a new health handler instance.
func NewHealthHandler(opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{startedAt: time.Now().UTC()}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Status reports process liveness.
func (h *HealthHandler) Status(c *gin.Context) {
	Respond(c, http.StatusOK, gin.H{
		"status":    "ok",
		"startedAt": h.startedAt,
	}, "Health check passed")
}

// Readiness pings each registered dependency and fails when any is unreachable.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	results := gin.H{}
	healthy := true

	for _, nc := range h.checks {
		if err := nc.check(ctx); err != nil {
			results[nc.name] = err.Error()
			healthy = false
			continue
		}
		results[nc.name] = "ok"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, NewAPIResponse(http.StatusServiceUnavailable, results, "Service not ready"))
		return
	}

	Respond(c, http.StatusOK, results, "Service ready")
}
