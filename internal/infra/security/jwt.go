package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrTokenExpired indicates a structurally valid token past its expiry.
var ErrTokenExpired = errors.New("jwt: token expired")

// ErrTokenInvalid indicates a token that failed signature or claim validation.
var ErrTokenInvalid = errors.New("jwt: token invalid")

// AccessTokenClaims is the payload carried by short-lived access tokens.
type AccessTokenClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// RefreshTokenClaims is the payload carried by refresh tokens; only the
// subject matters, the rest is standard bookkeeping.
type RefreshTokenClaims struct {
	jwt.RegisteredClaims
}

// TokenManagerConfig carries signing material and lifetimes for both token kinds.
type TokenManagerConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenManager signs and verifies HMAC-SHA256 access and refresh tokens.
type TokenManager struct {
	cfg TokenManagerConfig
	now func() time.Time
}

// NewTokenManager validates the configuration and returns a manager.
func NewTokenManager(cfg TokenManagerConfig) (*TokenManager, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("jwt: signing secrets are required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("jwt: token lifetimes must be positive")
	}
	return &TokenManager{cfg: cfg, now: time.Now}, nil
}

// WithClock overrides the time source; test helper.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

// AccessTokenSubject is the identity snapshot embedded in an access token.
type AccessTokenSubject struct {
	ID       string
	Email    string
	Username string
	FullName string
}

// IssueAccessToken signs a short-lived token identifying the user.
func (m *TokenManager) IssueAccessToken(subject AccessTokenSubject) (string, error) {
	now := m.now()
	claims := AccessTokenClaims{
		Email:    subject.Email,
		Username: subject.Username,
		FullName: subject.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.ID,
			Issuer:    m.cfg.Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.AccessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.cfg.AccessSecret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken signs a longer-lived token carrying only the user id.
func (m *TokenManager) IssueRefreshToken(userID string) (string, error) {
	now := m.now()
	claims := RefreshTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.cfg.Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.RefreshTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.cfg.RefreshSecret))
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies the signature and expiry of an access token.
func (m *TokenManager) ParseAccessToken(token string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if err := m.parse(token, claims, m.cfg.AccessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefreshToken verifies the signature and expiry of a refresh token.
func (m *TokenManager) ParseRefreshToken(token string) (*RefreshTokenClaims, error) {
	claims := &RefreshTokenClaims{}
	if err := m.parse(token, claims, m.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *TokenManager) parse(token string, claims jwt.Claims, secret string) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrTokenInvalid, t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return ErrTokenInvalid
	}
	return nil
}
