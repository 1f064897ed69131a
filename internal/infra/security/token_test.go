package security

import (
	"strconv"
	"testing"
	"time"
)

func TestGenerateOTPRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP returned error: %v", err)
		}
		if len(code) != 4 {
			t.Fatalf("expected four digit code, got %q", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code %q is not numeric: %v", code, err)
		}
		if n < OTPMin || n > OTPMax {
			t.Fatalf("code %d outside [%d, %d]", n, OTPMin, OTPMax)
		}
	}
}

func TestGenerateTemporaryToken(t *testing.T) {
	ttl := 20 * time.Minute
	issuedAt := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)

	tok, err := GenerateTemporaryToken(ttl, issuedAt)
	if err != nil {
		t.Fatalf("GenerateTemporaryToken returned error: %v", err)
	}

	if len(tok.Plain) != 40 {
		t.Fatalf("expected 40 hex chars for 20 random bytes, got %d", len(tok.Plain))
	}
	if tok.Hash != HashToken(tok.Plain) {
		t.Fatalf("stored hash does not match digest of plain token")
	}
	if tok.Hash == tok.Plain {
		t.Fatalf("hash must differ from plain token")
	}

	if !tok.ExpiresAt.Equal(issuedAt.Add(ttl)) {
		t.Fatalf("expected expiry %v, got %v", issuedAt.Add(ttl), tok.ExpiresAt)
	}
}

func TestGenerateTemporaryTokenUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		tok, err := GenerateTemporaryToken(time.Minute, time.Now())
		if err != nil {
			t.Fatalf("GenerateTemporaryToken returned error: %v", err)
		}
		if _, dup := seen[tok.Plain]; dup {
			t.Fatalf("duplicate token generated")
		}
		seen[tok.Plain] = struct{}{}
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Fatal("expected identical digests for identical input")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Fatal("expected different digests for different input")
	}
	if len(HashToken("abc")) != 64 {
		t.Fatal("expected 64 hex chars for SHA-256")
	}
}
