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

const defaultOTPTTL = 5 * time.Minute

var (
	// ErrUserNotFound indicates no account matches the supplied identifier.
	ErrUserNotFound = errors.New("user does not exist")
	// ErrInvalidCredentials indicates the provided password is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidOTP indicates no account holds the presented one-time code.
	ErrInvalidOTP = errors.New("invalid one-time code")
	// ErrOTPExpired indicates the code exists but its validity window has passed.
	ErrOTPExpired = errors.New("one-time code expired")
	// ErrInvalidRefreshToken indicates the refresh token is unknown, malformed, or was rotated away.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrExpiredRefreshToken indicates the refresh token has expired.
	ErrExpiredRefreshToken = errors.New("refresh token expired")
	// ErrInvalidAccessToken indicates the access token failed signature or claim validation.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the access token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
)

// WrongLoginMethodError rejects password login for accounts registered through
// a social provider. Method carries the provider the user must use instead.
type WrongLoginMethodError struct {
	Method domain.LoginType
}

// Error implements error.
func (e *WrongLoginMethodError) Error() string {
	method := strings.ToLower(string(e.Method))
	return fmt.Sprintf("You have previously registered using %s. Please use the %s login option to access your account.", method, method)
}

// AuthService coordinates the two-phase login, token refresh, and logout flows.
type AuthService struct {
	cfg        *config.AppConfig
	users      port.UserRepository
	hasher     port.PasswordHasher
	tokens     *security.TokenManager
	dispatcher port.NotificationDispatcher
	events     port.EventPublisher
	logger     *zap.Logger
	metrics    *telemetry.Provider
	now        func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	cfg *config.AppConfig,
	users port.UserRepository,
	hasher port.PasswordHasher,
	tokens *security.TokenManager,
	dispatcher port.NotificationDispatcher,
	events port.EventPublisher,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		cfg:        cfg,
		users:      users,
		hasher:     hasher,
		tokens:     tokens,
		dispatcher: dispatcher,
		events:     events,
		logger:     log,
		now:        time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *AuthService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithTelemetry attaches session and OTP counters. Optional.
func (s *AuthService) WithTelemetry(metrics *telemetry.Provider) *AuthService {
	s.metrics = metrics
	return s
}

// Login validates the password and dispatches a one-time code. Tokens are
// only issued after the code comes back through VerifyOTP.
func (s *AuthService) Login(ctx context.Context, identifier, password string) error {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return fmt.Errorf("username or email is required")
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if user.LoginType != domain.LoginTypeEmailPassword {
		return &WrongLoginMethodError{Method: user.LoginType}
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	otp, err := security.GenerateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	expiresAt := s.now().UTC().Add(s.otpTTL())
	if err := s.users.SetOTP(ctx, user.ID, otp, expiresAt); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	s.dispatchOTP(ctx, user, otp, expiresAt, "login")
	return nil
}

// SessionTokens carries a freshly issued access/refresh pair.
type SessionTokens struct {
	AccessToken  string
	RefreshToken string
}

// VerifyOTPResult is returned when a one-time code check succeeds.
type VerifyOTPResult struct {
	User   domain.PublicUser
	Tokens SessionTokens
}

// VerifyOTP consumes a pending login code and starts a session.
func (s *AuthService) VerifyOTP(ctx context.Context, otp string) (*VerifyOTPResult, error) {
	otp = strings.TrimSpace(otp)
	if otp == "" {
		return nil, fmt.Errorf("otp is required")
	}

	user, err := s.users.GetByOTP(ctx, otp)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidOTP
		}
		return nil, fmt.Errorf("lookup otp: %w", err)
	}

	if !user.HasActiveOTP(s.now().UTC()) {
		return nil, ErrOTPExpired
	}

	tokens, err := s.issueTokens(*user)
	if err != nil {
		return nil, err
	}

	if err := s.users.BeginSession(ctx, user.ID, security.HashToken(tokens.RefreshToken)); err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}

	user.OTP = nil
	user.OTPExpiresAt = nil

	if s.events != nil {
		event := domain.SessionStartedEvent{
			EventID:   uuid.NewString(),
			UserID:    user.ID,
			StartedAt: s.now().UTC(),
		}
		if err := s.events.PublishSessionStarted(ctx, event); err != nil {
			s.logger.Warn("publish session started event", zap.Error(err), zap.String("user_id", user.ID))
		}
	}

	s.metrics.SessionCounter().Inc()

	return &VerifyOTPResult{User: user.Public(), Tokens: tokens}, nil
}

// RefreshAccessToken rotates the single-slot refresh token. A token issued
// before the most recent rotation is rejected even when cryptographically valid.
func (s *AuthService) RefreshAccessToken(ctx context.Context, presented string) (*SessionTokens, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil, ErrInvalidRefreshToken
	}

	claims, err := s.tokens.ParseRefreshToken(presented)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, ErrExpiredRefreshToken
		}
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	// A mismatch means the token was already rotated away.
	if user.RefreshTokenHash == nil || *user.RefreshTokenHash != security.HashToken(presented) {
		return nil, ErrExpiredRefreshToken
	}

	tokens, err := s.issueTokens(*user)
	if err != nil {
		return nil, err
	}

	if err := s.users.RotateRefreshToken(ctx, user.ID, security.HashToken(tokens.RefreshToken)); err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	return &tokens, nil
}

// Logout clears the stored refresh token. A missing user record is surfaced
// as ErrUserNotFound so the boundary can answer 401; a user without an
// active session logs out cleanly.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
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

	if err := s.users.EndSession(ctx, user.ID); err != nil {
		return fmt.Errorf("end session: %w", err)
	}

	if s.events != nil {
		event := domain.SessionEndedEvent{
			EventID: uuid.NewString(),
			UserID:  user.ID,
			EndedAt: s.now().UTC(),
			Reason:  "logout",
		}
		if err := s.events.PublishSessionEnded(ctx, event); err != nil {
			s.logger.Warn("publish session ended event", zap.Error(err), zap.String("user_id", user.ID))
		}
	}

	return nil
}

// ParseAccessToken validates a bearer token and returns its claims.
func (s *AuthService) ParseAccessToken(token string) (*security.AccessTokenClaims, error) {
	claims, err := s.tokens.ParseAccessToken(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, ErrExpiredAccessToken
		}
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}

func (s *AuthService) issueTokens(user domain.User) (SessionTokens, error) {
	access, err := s.tokens.IssueAccessToken(security.AccessTokenSubject{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
	})
	if err != nil {
		return SessionTokens{}, fmt.Errorf("issue access token: %w", err)
	}

	refresh, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return SessionTokens{}, fmt.Errorf("issue refresh token: %w", err)
	}

	return SessionTokens{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) otpTTL() time.Duration {
	if s.cfg != nil && s.cfg.Auth.OTPTTL > 0 {
		return s.cfg.Auth.OTPTTL
	}
	return defaultOTPTTL
}

// dispatchOTP is best-effort: failures are logged, never returned.
func (s *AuthService) dispatchOTP(ctx context.Context, user *domain.User, otp string, expiresAt time.Time, purpose string) {
	if s.dispatcher != nil {
		msg := port.OTPMessage{
			To:        user.Email,
			Username:  user.Username,
			Code:      otp,
			ExpiresAt: expiresAt,
		}
		if err := s.dispatcher.SendLoginOTP(ctx, msg); err != nil {
			s.logger.Warn("send otp email",
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
			Purpose:           purpose,
			MaskedDestination: logger.MaskEmail(user.Email),
			DispatchedAt:      s.now().UTC(),
			ExpiresAt:         expiresAt,
		}
		if err := s.events.PublishOTPDispatched(ctx, event); err != nil {
			s.logger.Warn("publish otp dispatched event", zap.Error(err), zap.String("user_id", user.ID))
		}
	}

	s.metrics.OTPDispatchCounter(purpose).Inc()
}
