package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/watchvibe/auth-service/internal/core/domain"
	"github.com/watchvibe/auth-service/internal/core/port"
	"github.com/watchvibe/auth-service/internal/repository"
)

// stubHasher avoids paying Argon2 cost in flow tests.
type stubHasher struct {
	failHash bool
}

func (h *stubHasher) Hash(password string) (string, error) {
	if h.failHash {
		return "", errors.New("hash unavailable")
	}
	return "hashed$" + password, nil
}

func (h *stubHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "hashed$"+password, nil
}

type recordingDispatcher struct {
	verifications []port.EmailVerification
	loginOTPs     []port.OTPMessage
	resetOTPs     []port.OTPMessage
	err           error
}

func (d *recordingDispatcher) SendEmailVerification(_ context.Context, msg port.EmailVerification) error {
	d.verifications = append(d.verifications, msg)
	return d.err
}

func (d *recordingDispatcher) SendLoginOTP(_ context.Context, msg port.OTPMessage) error {
	d.loginOTPs = append(d.loginOTPs, msg)
	return d.err
}

func (d *recordingDispatcher) SendPasswordResetOTP(_ context.Context, msg port.OTPMessage) error {
	d.resetOTPs = append(d.resetOTPs, msg)
	return d.err
}

type recordingPublisher struct {
	registered      []domain.UserRegisteredEvent
	emailVerified   []domain.EmailVerifiedEvent
	otpDispatched   []domain.OTPDispatchedEvent
	sessionsStarted []domain.SessionStartedEvent
	sessionsEnded   []domain.SessionEndedEvent
	passwordChanged []domain.PasswordChangedEvent
	rolesAssigned   []domain.RoleAssignedEvent
	err             error
}

func (p *recordingPublisher) PublishUserRegistered(_ context.Context, e domain.UserRegisteredEvent) error {
	p.registered = append(p.registered, e)
	return p.err
}

func (p *recordingPublisher) PublishEmailVerified(_ context.Context, e domain.EmailVerifiedEvent) error {
	p.emailVerified = append(p.emailVerified, e)
	return p.err
}

func (p *recordingPublisher) PublishOTPDispatched(_ context.Context, e domain.OTPDispatchedEvent) error {
	p.otpDispatched = append(p.otpDispatched, e)
	return p.err
}

func (p *recordingPublisher) PublishSessionStarted(_ context.Context, e domain.SessionStartedEvent) error {
	p.sessionsStarted = append(p.sessionsStarted, e)
	return p.err
}

func (p *recordingPublisher) PublishSessionEnded(_ context.Context, e domain.SessionEndedEvent) error {
	p.sessionsEnded = append(p.sessionsEnded, e)
	return p.err
}

func (p *recordingPublisher) PublishPasswordChanged(_ context.Context, e domain.PasswordChangedEvent) error {
	p.passwordChanged = append(p.passwordChanged, e)
	return p.err
}

func (p *recordingPublisher) PublishRoleAssigned(_ context.Context, e domain.RoleAssignedEvent) error {
	p.rolesAssigned = append(p.rolesAssigned, e)
	return p.err
}

// userRepoStub keeps users in memory and mimics the single-row update
// semantics of the Postgres repository.
type userRepoStub struct {
	users     map[string]*domain.User
	createErr error
	created   []domain.User
}

func newUserRepoStub(users ...domain.User) *userRepoStub {
	stub := &userRepoStub{users: make(map[string]*domain.User)}
	for i := range users {
		u := users[i]
		stub.users[u.ID] = &u
	}
	return stub
}

var _ port.UserRepository = (*userRepoStub)(nil)

func (r *userRepoStub) Create(_ context.Context, user domain.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.created = append(r.created, user)
	clone := user
	r.users[user.ID] = &clone
	return nil
}

func (r *userRepoStub) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := r.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (r *userRepoStub) GetByIdentifier(_ context.Context, identifier string) (*domain.User, error) {
	identifier = strings.ToLower(identifier)
	for _, user := range r.users {
		if user.Username == identifier || user.Email == identifier {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepoStub) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == strings.ToLower(email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepoStub) GetByOTP(_ context.Context, otp string) (*domain.User, error) {
	for _, user := range r.users {
		if user.OTP != nil && *user.OTP == otp {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepoStub) GetByVerificationTokenHash(_ context.Context, tokenHash string) (*domain.User, error) {
	for _, user := range r.users {
		if user.EmailVerificationTokenHash != nil && *user.EmailVerificationTokenHash == tokenHash {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepoStub) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	for _, user := range r.users {
		if user.Username == username || user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *userRepoStub) SetOTP(_ context.Context, id, otp string, expiresAt time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.OTP = &otp
	user.OTPExpiresAt = &expiresAt
	return nil
}

func (r *userRepoStub) BeginSession(_ context.Context, id, refreshTokenHash string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.OTP = nil
	user.OTPExpiresAt = nil
	user.RefreshTokenHash = &refreshTokenHash
	return nil
}

func (r *userRepoStub) RotateRefreshToken(_ context.Context, id, refreshTokenHash string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.RefreshTokenHash = &refreshTokenHash
	return nil
}

func (r *userRepoStub) EndSession(_ context.Context, id string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.RefreshTokenHash = nil
	return nil
}

func (r *userRepoStub) SetVerificationToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.EmailVerificationTokenHash = &tokenHash
	user.EmailVerificationExpiresAt = &expiresAt
	return nil
}

func (r *userRepoStub) MarkEmailVerified(_ context.Context, id string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsEmailVerified = true
	user.EmailVerificationTokenHash = nil
	user.EmailVerificationExpiresAt = nil
	return nil
}

func (r *userRepoStub) UpdatePassword(_ context.Context, id, passwordHash string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *userRepoStub) ResetPassword(_ context.Context, id, passwordHash string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.OTP = nil
	user.OTPExpiresAt = nil
	return nil
}

func (r *userRepoStub) UpdateRole(_ context.Context, id string, role domain.Role) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Role = role
	return nil
}

func (r *userRepoStub) UpdateAccountDetails(_ context.Context, id, fullName, email string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for otherID, other := range r.users {
		if otherID != id && other.Email == email {
			return nil, repository.ErrDuplicate
		}
	}
	user.FullName = fullName
	user.Email = email
	clone := *user
	return &clone, nil
}
