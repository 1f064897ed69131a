package port

import (
	"context"

	"github.com/watchvibe/auth-service/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishEmailVerified(ctx context.Context, event domain.EmailVerifiedEvent) error
	PublishOTPDispatched(ctx context.Context, event domain.OTPDispatchedEvent) error
	PublishSessionStarted(ctx context.Context, event domain.SessionStartedEvent) error
	PublishSessionEnded(ctx context.Context, event domain.SessionEndedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishRoleAssigned(ctx context.Context, event domain.RoleAssignedEvent) error
}
