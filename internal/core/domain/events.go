package domain

import "time"

// UserRegisteredEvent represents the payload for auth.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Username     string
	Email        string
	LoginType    string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// EmailVerifiedEvent represents the payload for auth.user.email.verified messages.
type EmailVerifiedEvent struct {
	EventID    string
	UserID     string
	Email      string
	VerifiedAt time.Time
	Metadata   map[string]any
}

// OTPDispatchedEvent represents the payload for auth.user.otp.dispatched messages.
// Emitted when a login or password-reset code is sent out of band.
type OTPDispatchedEvent struct {
	EventID           string
	UserID            string
	Purpose           string
	MaskedDestination string
	DispatchedAt      time.Time
	ExpiresAt         time.Time
	Metadata          map[string]any
}

// SessionStartedEvent represents the payload for auth.session.started messages.
// Emitted after a successful OTP verification issues a token pair.
type SessionStartedEvent struct {
	EventID   string
	UserID    string
	StartedAt time.Time
	IPAddress *string
	Metadata  map[string]any
}

// SessionEndedEvent represents the payload for auth.session.ended messages.
type SessionEndedEvent struct {
	EventID  string
	UserID   string
	EndedAt  time.Time
	Reason   string
	Metadata map[string]any
}

// PasswordChangedEvent represents the payload for auth.user.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	UserID    string
	ChangedAt time.Time
	ChangedBy string
	Metadata  map[string]any
}

// RoleAssignedEvent represents the payload for auth.user.role.assigned messages.
type RoleAssignedEvent struct {
	EventID    string
	UserID     string
	Role       string
	AssignedBy string
	AssignedAt time.Time
	Metadata   map[string]any
}
