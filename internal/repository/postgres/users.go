package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/watchvibe/auth-service/internal/core/domain"
	"github.com/watchvibe/auth-service/internal/core/port"
	"github.com/watchvibe/auth-service/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

var userColumns = []string{
	"id",
	"username",
	"email",
	"full_name",
	"avatar_url",
	"cover_image_url",
	"role",
	"login_type",
	"password_hash",
	"refresh_token_hash",
	"otp",
	"otp_expires_at",
	"is_email_verified",
	"email_verification_token_hash",
	"email_verification_expires_at",
	"created_at",
	"updated_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

var _ port.UserRepository = (*UserRepository)(nil)

// NewUserRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Insert("users").
		Columns(userColumns...).
		Values(
			user.ID,
			user.Username,
			user.Email,
			user.FullName,
			user.AvatarURL,
			user.CoverImageURL,
			user.Role,
			user.LoginType,
			user.PasswordHash,
			user.RefreshTokenHash,
			user.OTP,
			user.OTPExpiresAt,
			user.IsEmailVerified,
			user.EmailVerificationTokenHash,
			user.EmailVerificationExpiresAt,
			user.CreatedAt,
			user.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByIdentifier retrieves a user by username or email.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Or{
		squirrel.Eq{"username": identifier},
		squirrel.Eq{"email": identifier},
	})
}

// GetByEmail retrieves a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

// GetByOTP retrieves the user holding the presented one-time code.
func (r *UserRepository) GetByOTP(ctx context.Context, otp string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"otp": otp})
}

// GetByVerificationTokenHash retrieves the user holding the hashed verification token.
func (r *UserRepository) GetByVerificationTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email_verification_token_hash": tokenHash})
}

// ExistsByUsernameOrEmail reports whether either identity field is taken.
func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	stmt, args, err := r.builder.
		Select("1").
		From("users").
		Where(squirrel.Or{
			squirrel.Eq{"username": username},
			squirrel.Eq{"email": email},
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query user existence: %w", err)
	}

	return true, nil
}

// SetOTP stores a one-time code and its expiry on the user row.
func (r *UserRepository) SetOTP(ctx context.Context, id, otp string, expiresAt time.Time) error {
	return r.updateOne(ctx, r.update(id).
		Set("otp", otp).
		Set("otp_expires_at", expiresAt))
}

// BeginSession consumes the OTP and installs the refresh token hash in one update.
func (r *UserRepository) BeginSession(ctx context.Context, id, refreshTokenHash string) error {
	return r.updateOne(ctx, r.update(id).
		Set("otp", nil).
		Set("otp_expires_at", nil).
		Set("refresh_token_hash", refreshTokenHash))
}

// RotateRefreshToken replaces the single stored refresh token hash.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, id, refreshTokenHash string) error {
	return r.updateOne(ctx, r.update(id).
		Set("refresh_token_hash", refreshTokenHash))
}

// EndSession clears the stored refresh token hash.
func (r *UserRepository) EndSession(ctx context.Context, id string) error {
	return r.updateOne(ctx, r.update(id).
		Set("refresh_token_hash", nil))
}

// SetVerificationToken stores a fresh email verification hash and expiry.
func (r *UserRepository) SetVerificationToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	return r.updateOne(ctx, r.update(id).
		Set("email_verification_token_hash", tokenHash).
		Set("email_verification_expires_at", expiresAt))
}

// MarkEmailVerified flips the flag and clears the token material in one update.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	return r.updateOne(ctx, r.update(id).
		Set("is_email_verified", true).
		Set("email_verification_token_hash", nil).
		Set("email_verification_expires_at", nil))
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updateOne(ctx, r.update(id).
		Set("password_hash", passwordHash))
}

// ResetPassword replaces the password hash and consumes the reset OTP together.
func (r *UserRepository) ResetPassword(ctx context.Context, id, passwordHash string) error {
	return r.updateOne(ctx, r.update(id).
		Set("password_hash", passwordHash).
		Set("otp", nil).
		Set("otp_expires_at", nil))
}

// UpdateRole overwrites the user's role.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	return r.updateOne(ctx, r.update(id).
		Set("role", role))
}

// UpdateAccountDetails changes profile fields and returns the updated row.
func (r *UserRepository) UpdateAccountDetails(ctx context.Context, id, fullName, email string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Update("users").
		Set("full_name", fullName).
		Set("email", email).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns(userColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update account sql: %w", err)
	}

	user, err := scanUser(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("update account details: %w", err)
	}

	return user, nil
}

func (r *UserRepository) getOne(ctx context.Context, pred any) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("users").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	user, err := scanUser(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return user, nil
}

func (r *UserRepository) update(id string) squirrel.UpdateBuilder {
	return r.builder.Update("users").Where(squirrel.Eq{"id": id})
}

func (r *UserRepository) updateOne(ctx context.Context, update squirrel.UpdateBuilder) error {
	update = update.Set("updated_at", time.Now().UTC())

	stmt, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.AvatarURL,
		&user.CoverImageURL,
		&user.Role,
		&user.LoginType,
		&user.PasswordHash,
		&user.RefreshTokenHash,
		&user.OTP,
		&user.OTPExpiresAt,
		&user.IsEmailVerified,
		&user.EmailVerificationTokenHash,
		&user.EmailVerificationExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func joinColumns(columns []string) string {
	out := ""
	for i, column := range columns {
		if i > 0 {
			out += ", "
		}
		out += column
	}
	return out
}
