package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/watchvibe/auth-service/internal/core/domain"
	"github.com/watchvibe/auth-service/internal/core/port"
	"github.com/watchvibe/auth-service/internal/repository"
)

// ErrInvalidRole indicates the requested role is outside the known set.
var ErrInvalidRole = errors.New("invalid role")

// UserService serves profile reads and administrative updates.
type UserService struct {
	users  port.UserRepository
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewUserService constructs a user service.
func NewUserService(users port.UserRepository, events port.EventPublisher, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{users: users, events: events, logger: log, now: time.Now}
}

// CurrentUser returns the authenticated user's profile with secrets stripped.
func (s *UserService) CurrentUser(ctx context.Context, userID string) (domain.PublicUser, error) {
	var zero domain.PublicUser
	if userID == "" {
		return zero, fmt.Errorf("user id is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrUserNotFound
		}
		return zero, fmt.Errorf("lookup user: %w", err)
	}

	return user.Public(), nil
}

// UpdateAccountDetails changes the mutable profile fields.
func (s *UserService) UpdateAccountDetails(ctx context.Context, userID, fullName, email string) (domain.PublicUser, error) {
	var zero domain.PublicUser

	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" {
		return zero, fmt.Errorf("all fields are required")
	}

	user, err := s.users.UpdateAccountDetails(ctx, userID, fullName, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrUserNotFound
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return zero, ErrUserExists
		}
		return zero, fmt.Errorf("update account details: %w", err)
	}

	return user.Public(), nil
}

// AssignRole overwrites the target user's role. Authorization is enforced at
// the request boundary.
func (s *UserService) AssignRole(ctx context.Context, actorID, targetUserID string, role domain.Role) error {
	if targetUserID == "" {
		return fmt.Errorf("user id is required")
	}
	if !role.Valid() {
		return ErrInvalidRole
	}

	user, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if err := s.users.UpdateRole(ctx, user.ID, role); err != nil {
		return fmt.Errorf("update role: %w", err)
	}

	if s.events != nil {
		event := domain.RoleAssignedEvent{
			EventID:    uuid.NewString(),
			UserID:     user.ID,
			Role:       string(role),
			AssignedBy: actorID,
			AssignedAt: s.now().UTC(),
		}
		if err := s.events.PublishRoleAssigned(ctx, event); err != nil {
			s.logger.Warn("publish role assigned event", zap.Error(err), zap.String("user_id", user.ID))
		}
	}

	return nil
}
