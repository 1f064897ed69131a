package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitStore defines the persistence operations required by the middleware.
type RateLimitStore interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}

// IdentifierFunc extracts the identifier used to scope rate limits (e.g., client IP).
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a sliding-window limit for a particular identifier.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

func (r RateLimitRule) valid() bool {
	return r.Identifier != nil && r.Limit > 0 && r.Window > 0
}

// RateLimiter evaluates sliding-window rules against a shared store.
// Store failures fail open so an unavailable backend never takes the
// API down with it.
type RateLimiter struct {
	store  RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(store RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger, now: time.Now}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier builds an IdentifierFunc using the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// decision is the outcome of checking one rule for one request.
type decision struct {
	allowed    bool
	limit      int
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

// RateLimit returns a Gin middleware enforcing the provided rules. Rules
// with a missing identifier, non-positive limit, or non-positive window
// are skipped.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	active := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if !rule.valid() {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		active = append(active, rule)
	}

	return func(c *gin.Context) {
		if len(active) == 0 || rl.store == nil {
			c.Next()
			return
		}

		now := rl.now()
		var strictest *decision

		for _, rule := range active {
			identifier, ok := rule.Identifier(c)
			if !ok || identifier == "" {
				continue
			}

			dec, err := rl.check(c.Request.Context(), rule, identifier, now)
			if err != nil {
				rl.logger.Warn("rate limit check failed",
					zap.String("rule", rule.Name),
					zap.String("identifier", identifier),
					zap.Error(err),
				)
				continue
			}

			if stricterThan(dec, strictest) {
				d := dec
				strictest = &d
			}

			if !dec.allowed {
				writeRateLimitHeaders(c, dec)
				rl.reject(c, dec)
				return
			}
		}

		if strictest != nil {
			writeRateLimitHeaders(c, *strictest)
		}
		c.Next()
	}
}

// check trims the window, counts prior attempts, and records the current
// one when the request is still under the limit.
func (rl *RateLimiter) check(ctx context.Context, rule RateLimitRule, identifier string, now time.Time) (decision, error) {
	key := fmt.Sprintf("%s:%s", rule.Name, identifier)

	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return decision{}, err
	}

	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return decision{}, err
	}

	reset := now.Add(rule.Window)
	if oldest, ok, err := rl.store.OldestAttempt(ctx, key, rule.Window, now); err != nil {
		return decision{}, err
	} else if ok {
		reset = oldest.Add(rule.Window)
	}

	dec := decision{limit: rule.Limit, reset: reset, retryAfter: max(reset.Sub(now), 0)}

	if count >= rule.Limit {
		return dec, nil
	}

	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return decision{}, err
	}

	dec.allowed = true
	dec.remaining = max(rule.Limit-count-1, 0)
	return dec, nil
}

// stricterThan reports whether a should drive the response headers over b.
// A denial always wins; among equals the lower remaining count, then the
// earlier reset, takes precedence.
func stricterThan(a decision, b *decision) bool {
	if b == nil {
		return true
	}
	if a.allowed != b.allowed {
		return !a.allowed
	}
	if a.remaining != b.remaining {
		return a.remaining < b.remaining
	}
	return a.reset.Before(b.reset)
}

func writeRateLimitHeaders(c *gin.Context, dec decision) {
	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(dec.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(dec.remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(dec.reset.Unix(), 10))

	if !dec.allowed {
		h.Set("Retry-After", strconv.Itoa(retrySeconds(dec)))
	}
}

func (rl *RateLimiter) reject(c *gin.Context, dec decision) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, errorEnvelope{
		StatusCode: http.StatusTooManyRequests,
		Message:    fmt.Sprintf("Too many requests. Try again in %d seconds.", retrySeconds(dec)),
	})
}

func retrySeconds(dec decision) int {
	return max(int(math.Ceil(dec.retryAfter.Seconds())), 0)
}
