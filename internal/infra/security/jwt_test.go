package security

import (
	"errors"
	"testing"
	"time"
)

func newTestTokenManager(t *testing.T) *TokenManager {
	t.Helper()
	mgr, err := NewTokenManager(TokenManagerConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "watchvibe-auth",
	})
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}
	return mgr
}

func TestTokenManagerRequiresSecrets(t *testing.T) {
	if _, err := NewTokenManager(TokenManagerConfig{AccessTTL: time.Minute, RefreshTTL: time.Minute}); err == nil {
		t.Fatal("expected error when secrets missing")
	}
	if _, err := NewTokenManager(TokenManagerConfig{AccessSecret: "a", RefreshSecret: "b"}); err == nil {
		t.Fatal("expected error when lifetimes missing")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	mgr := newTestTokenManager(t)

	subject := AccessTokenSubject{
		ID:       "user-1",
		Email:    "alice@example.com",
		Username: "alice",
		FullName: "Alice Example",
	}

	token, err := mgr.IssueAccessToken(subject)
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}

	claims, err := mgr.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("ParseAccessToken returned error: %v", err)
	}

	if claims.Subject != subject.ID {
		t.Fatalf("expected subject %q, got %q", subject.ID, claims.Subject)
	}
	if claims.Email != subject.Email || claims.Username != subject.Username || claims.FullName != subject.FullName {
		t.Fatalf("identity claims mismatch: %+v", claims)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	mgr := newTestTokenManager(t)

	token, err := mgr.IssueRefreshToken("user-7")
	if err != nil {
		t.Fatalf("IssueRefreshToken returned error: %v", err)
	}

	claims, err := mgr.ParseRefreshToken(token)
	if err != nil {
		t.Fatalf("ParseRefreshToken returned error: %v", err)
	}
	if claims.Subject != "user-7" {
		t.Fatalf("expected subject user-7, got %q", claims.Subject)
	}
}

func TestParseRejectsCrossTokenUse(t *testing.T) {
	mgr := newTestTokenManager(t)

	refresh, err := mgr.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("IssueRefreshToken returned error: %v", err)
	}

	if _, err := mgr.ParseAccessToken(refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for refresh token on access parser, got %v", err)
	}
}

func TestParseExpiredToken(t *testing.T) {
	mgr := newTestTokenManager(t)

	issuedAt := time.Now().Add(-time.Hour)
	mgr.WithClock(func() time.Time { return issuedAt })

	token, err := mgr.IssueAccessToken(AccessTokenSubject{ID: "user-1"})
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}

	mgr.WithClock(time.Now)
	if _, err := mgr.ParseAccessToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseGarbageToken(t *testing.T) {
	mgr := newTestTokenManager(t)
	if _, err := mgr.ParseRefreshToken("not-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
