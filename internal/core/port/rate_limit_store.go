package port

import (
	"context"
	"time"
)

// RateLimitStore persists per-identifier attempt timestamps for
// sliding-window rate limiting. Implementations scope all operations to
// the window ending at reference.
type RateLimitStore interface {
	// TrimWindow drops attempts that fell out of the window.
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	// CountAttempts returns the number of attempts still inside the window.
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	// RecordAttempt appends an attempt at the given instant.
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	// OldestAttempt returns the earliest attempt inside the window, if any.
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
