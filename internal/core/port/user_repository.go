package port

import (
	"context"
	"time"

	"github.com/watchvibe/auth-service/internal/core/domain"
)

// UserRepository exposes persistence behavior for users.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByIdentifier resolves a user by username or email (both case-normalized).
	GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByOTP(ctx context.Context, otp string) (*domain.User, error)
	GetByVerificationTokenHash(ctx context.Context, tokenHash string) (*domain.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	SetOTP(ctx context.Context, id string, otp string, expiresAt time.Time) error
	// BeginSession atomically clears the stored OTP and installs the hash of
	// the freshly issued refresh token.
	BeginSession(ctx context.Context, id string, refreshTokenHash string) error
	RotateRefreshToken(ctx context.Context, id string, refreshTokenHash string) error
	EndSession(ctx context.Context, id string) error

	SetVerificationToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error
	// MarkEmailVerified flips the verification flag and clears the token hash
	// and expiry in the same update.
	MarkEmailVerified(ctx context.Context, id string) error

	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	// ResetPassword installs a new password hash and consumes the OTP that
	// authorized the reset.
	ResetPassword(ctx context.Context, id string, passwordHash string) error

	UpdateRole(ctx context.Context, id string, role domain.Role) error
	UpdateAccountDetails(ctx context.Context, id string, fullName, email string) (*domain.User, error)
}
