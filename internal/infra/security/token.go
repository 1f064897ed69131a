package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// OTPMin and OTPMax bound the one-time login code range (always four digits).
const (
	OTPMin = 1000
	OTPMax = 9999
)

// GenerateOTP returns a uniformly distributed four digit code as a string.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(OTPMax-OTPMin+1))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%d", OTPMin+n.Int64()), nil
}

// TemporaryToken is a single-use credential issued for email verification.
// Plain is mailed to the user and never persisted; Hash is what the store keeps.
type TemporaryToken struct {
	Plain     string
	Hash      string
	ExpiresAt time.Time
}

// GenerateTemporaryToken produces a random 20-byte hex token, its SHA-256
// digest, and an expiry ttl past the provided issuance instant.
func GenerateTemporaryToken(ttl time.Duration, issuedAt time.Time) (TemporaryToken, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return TemporaryToken{}, fmt.Errorf("generate token: %w", err)
	}

	plain := hex.EncodeToString(buf)
	return TemporaryToken{
		Plain:     plain,
		Hash:      HashToken(plain),
		ExpiresAt: issuedAt.Add(ttl),
	}, nil
}

// HashToken calculates a SHA-256 hash of the provided value.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
