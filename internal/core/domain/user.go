package domain

import "time"

// Role enumerates the access levels a user can hold.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// LoginType records which identity provider a user registered with.
// Password login is only honoured for LoginTypeEmailPassword accounts.
type LoginType string

const (
	LoginTypeEmailPassword LoginType = "EMAIL_PASSWORD"
	LoginTypeGoogle        LoginType = "GOOGLE"
	LoginTypeGithub        LoginType = "GITHUB"
)

// User mirrors the persisted representation in the users table.
type User struct {
	ID            string
	Username      string
	Email         string
	FullName      string
	AvatarURL     string
	CoverImageURL *string
	Role          Role
	LoginType     LoginType
	PasswordHash  string

	// Single active refresh token, stored hashed. Nil means logged out.
	RefreshTokenHash *string

	// One-time login / password-reset code. Cleared on consumption.
	OTP          *string
	OTPExpiresAt *time.Time

	IsEmailVerified            bool
	EmailVerificationTokenHash *string
	EmailVerificationExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasActiveOTP reports whether the user holds an OTP that is still inside
// its validity window at the given instant.
func (u *User) HasActiveOTP(now time.Time) bool {
	return u.OTP != nil && u.OTPExpiresAt != nil && now.Before(*u.OTPExpiresAt)
}

// PublicUser is the externally visible projection of a User. Credential and
// token material never leaves the service.
type PublicUser struct {
	ID              string    `json:"_id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	FullName        string    `json:"fullName"`
	AvatarURL       string    `json:"avatar"`
	CoverImageURL   *string   `json:"coverImage,omitempty"`
	Role            Role      `json:"role"`
	LoginType       LoginType `json:"loginType"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Public strips secret fields from a User.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		FullName:        u.FullName,
		AvatarURL:       u.AvatarURL,
		CoverImageURL:   u.CoverImageURL,
		Role:            u.Role,
		LoginType:       u.LoginType,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
