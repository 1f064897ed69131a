package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/watchvibe/auth-service/internal/core/domain"
	"github.com/watchvibe/auth-service/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.logEvent(eventUserRegistered, event.UserID, event.RegisteredAt, map[string]any{
		"username":   event.Username,
		"email":      event.Email,
		"login_type": event.LoginType,
	})
	return nil
}

func (p *StubPublisher) PublishEmailVerified(_ context.Context, event domain.EmailVerifiedEvent) error {
	p.logEvent(eventEmailVerified, event.UserID, event.VerifiedAt, map[string]any{
		"email": event.Email,
	})
	return nil
}

func (p *StubPublisher) PublishOTPDispatched(_ context.Context, event domain.OTPDispatchedEvent) error {
	p.logEvent(eventOTPDispatched, event.UserID, event.DispatchedAt, map[string]any{
		"purpose":            event.Purpose,
		"masked_destination": event.MaskedDestination,
		"expires_at":         event.ExpiresAt,
	})
	return nil
}

func (p *StubPublisher) PublishSessionStarted(_ context.Context, event domain.SessionStartedEvent) error {
	p.logEvent(eventSessionStarted, event.UserID, event.StartedAt, map[string]any{
		"ip_address": event.IPAddress,
	})
	return nil
}

func (p *StubPublisher) PublishSessionEnded(_ context.Context, event domain.SessionEndedEvent) error {
	p.logEvent(eventSessionEnded, event.UserID, event.EndedAt, map[string]any{
		"reason": event.Reason,
	})
	return nil
}

func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.logEvent(eventPasswordChanged, event.UserID, event.ChangedAt, map[string]any{
		"changed_by": event.ChangedBy,
	})
	return nil
}

func (p *StubPublisher) PublishRoleAssigned(_ context.Context, event domain.RoleAssignedEvent) error {
	p.logEvent(eventRoleAssigned, event.UserID, event.AssignedAt, map[string]any{
		"role":        event.Role,
		"assigned_by": event.AssignedBy,
	})
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
