package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/watchvibe/auth-service/internal/core/port"
	"github.com/watchvibe/auth-service/internal/infra/logger"
)

// LoggingDispatcher writes notifications to the log instead of sending them.
// Used in development when no SMTP host is configured.
type LoggingDispatcher struct {
	logger *zap.Logger
}

// NewLoggingDispatcher constructs a dispatcher that only logs.
func NewLoggingDispatcher(log *zap.Logger) *LoggingDispatcher {
	return &LoggingDispatcher{logger: log}
}

func (d *LoggingDispatcher) SendEmailVerification(_ context.Context, msg port.EmailVerification) error {
	d.logger.Info("Email verification (not sent, logging only)",
		zap.String("to", logger.MaskEmail(msg.To)),
		zap.String("verify_url", msg.VerifyURL),
		zap.Time("expires_at", msg.ExpiresAt),
	)
	return nil
}

func (d *LoggingDispatcher) SendLoginOTP(_ context.Context, msg port.OTPMessage) error {
	d.logger.Info("Login OTP (not sent, logging only)",
		zap.String("to", logger.MaskEmail(msg.To)),
		zap.String("code", msg.Code),
		zap.Time("expires_at", msg.ExpiresAt),
	)
	return nil
}

func (d *LoggingDispatcher) SendPasswordResetOTP(_ context.Context, msg port.OTPMessage) error {
	d.logger.Info("Password reset OTP (not sent, logging only)",
		zap.String("to", logger.MaskEmail(msg.To)),
		zap.String("code", msg.Code),
		zap.Time("expires_at", msg.ExpiresAt),
	)
	return nil
}

var _ port.NotificationDispatcher = (*LoggingDispatcher)(nil)
