package port

import (
	"context"
	"time"
)

// EmailVerification captures data needed to deliver a verification link.
type EmailVerification struct {
	To        string
	Username  string
	VerifyURL string
	ExpiresAt time.Time
}

// OTPMessage captures data needed to deliver a one-time code.
type OTPMessage struct {
	To        string
	Username  string
	Code      string
	ExpiresAt time.Time
}

// NotificationDispatcher delivers templated email to a single recipient.
// Delivery is best-effort: callers log failures and continue, they never
// fail the enclosing operation.
type NotificationDispatcher interface {
	SendEmailVerification(ctx context.Context, msg EmailVerification) error
	SendLoginOTP(ctx context.Context, msg OTPMessage) error
	SendPasswordResetOTP(ctx context.Context, msg OTPMessage) error
}
