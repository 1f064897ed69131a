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

const defaultVerificationTTL = 20 * time.Minute

// weakPasswordWarnScore is the zxcvbn score below which an accepted
// password is logged as weak.
const weakPasswordWarnScore = 2

var (
	// ErrUserExists indicates the username or email is already taken.
	ErrUserExists = errors.New("user with email or username already exists")
	// ErrVerificationTokenInvalid indicates the email verification token is unknown or expired.
	ErrVerificationTokenInvalid = errors.New("email verification token is invalid or expired")
	// ErrEmailAlreadyVerified indicates a resend was requested for a verified address.
	ErrEmailAlreadyVerified = errors.New("email is already verified")
	// ErrPasswordPolicyViolation indicates the password does not satisfy complexity requirements.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
)

// RegistrationService handles new account onboarding and email verification.
type RegistrationService struct {
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

// NewRegistrationService constructs a registration service.
func NewRegistrationService(
	cfg *config.AppConfig,
	users port.UserRepository,
	hasher port.PasswordHasher,
	validator *security.PasswordValidator,
	dispatcher port.NotificationDispatcher,
	events port.EventPublisher,
	log *zap.Logger,
) *RegistrationService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationService{
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
func (s *RegistrationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithTelemetry attaches the registration counter. Optional.
func (s *RegistrationService) WithTelemetry(metrics *telemetry.Provider) *RegistrationService {
	s.metrics = metrics
	return s
}

// RegisterInput carries the registration payload after boundary validation.
type RegisterInput struct {
	FullName      string
	Email         string
	Username      string
	Password      string
	AvatarURL     string
	CoverImageURL *string
	Role          domain.Role
}

// Register creates an unverified account and dispatches the verification link.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (domain.PublicUser, error) {
	var zero domain.PublicUser

	fullName := strings.TrimSpace(input.FullName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.ToLower(strings.TrimSpace(input.Username))
	password := input.Password

	if fullName == "" || email == "" || username == "" || password == "" {
		return zero, fmt.Errorf("all fields are required")
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return zero, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return zero, ErrUserExists
	}

	if err := s.passwordValidator.Validate(password, username, email, fullName); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}
	if score := security.PasswordStrengthScore(password, username, email, fullName); score < weakPasswordWarnScore {
		s.logger.Warn("weak password accepted",
			zap.String("username", username),
			zap.Int("strength_score", score),
		)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return zero, fmt.Errorf("hash password: %w", err)
	}

	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return zero, fmt.Errorf("%w %q", ErrInvalidRole, role)
	}

	verification, err := security.GenerateTemporaryToken(s.verificationTTL(), s.now().UTC())
	if err != nil {
		return zero, fmt.Errorf("generate verification token: %w", err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:                         uuid.NewString(),
		Username:                   username,
		Email:                      email,
		FullName:                   fullName,
		AvatarURL:                  input.AvatarURL,
		CoverImageURL:              input.CoverImageURL,
		Role:                       role,
		LoginType:                  domain.LoginTypeEmailPassword,
		PasswordHash:               passwordHash,
		IsEmailVerified:            false,
		EmailVerificationTokenHash: &verification.Hash,
		EmailVerificationExpiresAt: &verification.ExpiresAt,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return zero, ErrUserExists
		}
		return zero, fmt.Errorf("create user: %w", err)
	}

	s.sendVerificationEmail(ctx, user, verification)

	if s.events != nil {
		event := domain.UserRegisteredEvent{
			EventID:      uuid.NewString(),
			UserID:       user.ID,
			Username:     user.Username,
			Email:        user.Email,
			LoginType:    string(user.LoginType),
			RegisteredAt: now,
		}
		if err := s.events.PublishUserRegistered(ctx, event); err != nil {
			s.logger.Warn("publish user registered event", zap.Error(err), zap.String("user_id", user.ID))
		}
	}

	s.metrics.RegistrationCounter().Inc()

	return user.Public(), nil
}

// VerifyEmail consumes a verification link token and marks the address verified.
func (s *RegistrationService) VerifyEmail(ctx context.Context, plainToken string) (domain.PublicUser, error) {
	var zero domain.PublicUser

	plainToken = strings.TrimSpace(plainToken)
	if plainToken == "" {
		return zero, fmt.Errorf("email verification token is missing")
	}

	user, err := s.users.GetByVerificationTokenHash(ctx, security.HashToken(plainToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrVerificationTokenInvalid
		}
		return zero, fmt.Errorf("lookup verification token: %w", err)
	}

	if user.EmailVerificationExpiresAt == nil || !s.now().UTC().Before(*user.EmailVerificationExpiresAt) {
		return zero, ErrVerificationTokenInvalid
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return zero, fmt.Errorf("mark email verified: %w", err)
	}

	user.IsEmailVerified = true
	user.EmailVerificationTokenHash = nil
	user.EmailVerificationExpiresAt = nil

	if s.events != nil {
		event := domain.EmailVerifiedEvent{
			EventID:    uuid.NewString(),
			UserID:     user.ID,
			Email:      user.Email,
			VerifiedAt: s.now().UTC(),
		}
		if err := s.events.PublishEmailVerified(ctx, event); err != nil {
			s.logger.Warn("publish email verified event", zap.Error(err), zap.String("user_id", user.ID))
		}
	}

	return user.Public(), nil
}

// ResendEmailVerification reissues the verification token for an unverified account.
func (s *RegistrationService) ResendEmailVerification(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if user.IsEmailVerified {
		return ErrEmailAlreadyVerified
	}

	verification, err := security.GenerateTemporaryToken(s.verificationTTL(), s.now().UTC())
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}

	if err := s.users.SetVerificationToken(ctx, user.ID, verification.Hash, verification.ExpiresAt); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	s.sendVerificationEmail(ctx, *user, verification)
	return nil
}

func (s *RegistrationService) verificationTTL() time.Duration {
	if s.cfg != nil && s.cfg.Auth.VerificationTokenTTL > 0 {
		return s.cfg.Auth.VerificationTokenTTL
	}
	return defaultVerificationTTL
}

// sendVerificationEmail is best-effort: failures are logged, never returned.
func (s *RegistrationService) sendVerificationEmail(ctx context.Context, user domain.User, token security.TemporaryToken) {
	if s.dispatcher == nil {
		return
	}

	baseURL := ""
	if s.cfg != nil {
		baseURL = strings.TrimRight(s.cfg.Auth.VerificationBaseURL, "/")
	}

	msg := port.EmailVerification{
		To:        user.Email,
		Username:  user.Username,
		VerifyURL: fmt.Sprintf("%s/%s", baseURL, token.Plain),
		ExpiresAt: token.ExpiresAt,
	}

	if err := s.dispatcher.SendEmailVerification(ctx, msg); err != nil {
		s.logger.Warn("send verification email",
			zap.Error(err),
			zap.String("user_id", user.ID),
			zap.String("email", logger.MaskEmail(user.Email)),
		)
	}
}
