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
	"github.com/watchvibe/auth-service/internal/infra/config"
	"github.com/watchvibe/auth-service/internal/infra/logger"
	"github.com/watchvibe/auth-service/internal/infra/security"
	"github.com/watchvibe/auth-service/internal/infra/telemetry"
	"github.com/watchvibe/auth-service/internal/repository"
)

// ErrInvalidOldPassword indicates the current password check failed during a change.
var ErrInvalidOldPassword = errors.New("invalid old password")

// PasswordService handles password change and OTP-based reset flows.
type PasswordService struct {
	cfg               *config.AppConfig
	users             port.UserRepository
	hasher            port.PasswordHasher
	passwordValidator *security.PasswordValidator
	dispatcher        port.NotificationDispatcher
	events            port.EventPublisher
	logger            *zap.Logger
	metrics           *telemetry.Provider
	now               func() time.Time
}

// NewPasswordService constructs a password service.
func NewPasswordService(
	cfg *config.AppConfig,
	users port.UserRepository,
	hasher port.PasswordHasher,
	validator *security.PasswordValidator,
	dispatcher port.NotificationDispatcher,
	events port.EventPublisher,
	log *zap.Logger,
) *PasswordService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordService{
		cfg:               cfg,
		users:             users,
		hasher:            hasher,
		passwordValidator: validator,
		dispatcher:        dispatcher,
		events:            events,
		logger:            log,
		now:               time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *PasswordService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithTelemetry attaches the OTP dispatch counter. Optional.
func (s *PasswordService) WithTelemetry(metrics *telemetry.Provider) *PasswordService {
	s.metrics = metrics
	return s
}

// ChangePassword verifies the current password before installing a new one.
func (s *PasswordService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if oldPassword == "" || newPassword == "" {
		return fmt.Errorf("old and new passwords are required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidOldPassword
	}

	if err := s.validateNewPassword(newPassword, oldPassword, user); err != nil {
		return err
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.publishPasswordChanged(ctx, user.ID, "user")
	return nil
}

// ForgotPassword dispatches a reset code to the account's email address.
func (s *PasswordService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	otp, err := security.GenerateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	expiresAt := s.now().UTC().Add(s.otpTTL())
	if err := s.users.SetOTP(ctx, user.ID, otp, expiresAt); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	if s.dispatcher != nil {
		msg := port.OTPMessage{
			To:        user.Email,
			Username:  user.Username,
			Code:      otp,
			ExpiresAt: expiresAt,
		}
		if err := s.dispatcher.SendPasswordResetOTP(ctx, msg); err != nil {
			s.logger.Warn("send password reset email",
				zap.Error(err),
				zap.String("user_id", user.ID),
				zap.String("email", logger.MaskEmail(user.Email)),
			)
		}
	}

	if s.events != nil {
		event := domain.OTPDispatchedEvent{
			EventID:           uuid.NewString(),
			UserID:            user.ID,
			Purpose:           "password_reset",
			MaskedDestination: logger.MaskEmail(user.Email),
			DispatchedAt:      s.now().UTC(),
			ExpiresAt:         expiresAt,
		}
		if err := s.events.PublishOTPDispatched(ctx, event); err != nil {
			s.logger.Warn("publish otp dispatched event", zap.Error(err), zap.String("user_id", user.ID))
		}
	}

	s.metrics.OTPDispatchCounter("password_reset").Inc()

	return nil
}

// ResetPasswordWithOTP consumes a reset code and installs the new password.
func (s *PasswordService) ResetPasswordWithOTP(ctx context.Context, otp, newPassword string) error {
	otp = strings.TrimSpace(otp)
	if otp == "" {
		return fmt.Errorf("otp is required")
	}
	if newPassword == "" {
		return fmt.Errorf("new password is required")
	}

	user, err := s.users.GetByOTP(ctx, otp)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOTP
		}
		return fmt.Errorf("lookup otp: %w", err)
	}

	if !user.HasActiveOTP(s.now().UTC()) {
		return ErrOTPExpired
	}

	if err := s.validateNewPassword(newPassword, "", user); err != nil {
		return err
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.ResetPassword(ctx, user.ID, newHash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.publishPasswordChanged(ctx, user.ID, "password_reset")
	return nil
}

func (s *PasswordService) validateNewPassword(newPassword, oldPassword string, user *domain.User) error {
	validator := s.passwordValidator
	// Reuse of the current password is rejected only under the strict
	// policy; the advisory default accepts any non-empty value.
	if oldPassword != "" && validator.Enforcing() {
		validator = validator.With(security.RequireDifferentFrom(oldPassword))
	}
	if err := validator.Validate(newPassword, user.Username, user.Email, user.FullName); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}
	if score := security.PasswordStrengthScore(newPassword, user.Username, user.Email, user.FullName); score < weakPasswordWarnScore {
		s.logger.Warn("weak password accepted",
			zap.String("user_id", user.ID),
			zap.Int("strength_score", score),
		)
	}
	return nil
}

func (s *PasswordService) otpTTL() time.Duration {
	if s.cfg != nil && s.cfg.Auth.OTPTTL > 0 {
		return s.cfg.Auth.OTPTTL
	}
	return defaultOTPTTL
}

func (s *PasswordService) publishPasswordChanged(ctx context.Context, userID, changedBy string) {
	if s.events == nil {
		return
	}
	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		UserID:    userID,
		ChangedAt: s.now().UTC(),
		ChangedBy: changedBy,
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed event", zap.Error(err), zap.String("user_id", userID))
	}
}
