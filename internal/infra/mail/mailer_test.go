package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/watchvibe/auth-service/internal/core/port"
	"github.com/watchvibe/auth-service/internal/infra/config"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newCapturingMailer(t *testing.T, sendErr error) (*Mailer, *capturedMail) {
	t.Helper()

	captured := &capturedMail{}
	mailer := NewMailer(config.SMTPSettings{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "mailer",
		Password: "secret",
		From:     "no-reply@watchvibe.example",
	}, zaptest.NewLogger(t))

	mailer.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		captured.addr = addr
		captured.from = from
		captured.to = to
		captured.msg = string(msg)
		return sendErr
	}

	return mailer, captured
}

func TestMailerSendEmailVerification(t *testing.T) {
	mailer, captured := newCapturingMailer(t, nil)

	expires := time.Date(2026, 2, 1, 12, 20, 0, 0, time.UTC)
	err := mailer.SendEmailVerification(context.Background(), port.EmailVerification{
		To:        "alice@example.com",
		Username:  "alice",
		VerifyURL: "https://watchvibe.example/verify-email/abc123",
		ExpiresAt: expires,
	})
	if err != nil {
		t.Fatalf("SendEmailVerification returned error: %v", err)
	}

	if captured.addr != "smtp.example.com:587" {
		t.Fatalf("unexpected addr: %s", captured.addr)
	}
	if len(captured.to) != 1 || captured.to[0] != "alice@example.com" {
		t.Fatalf("unexpected recipients: %v", captured.to)
	}
	if !strings.Contains(captured.msg, "Subject: Verify your email address") {
		t.Fatal("missing subject header")
	}
	if !strings.Contains(captured.msg, "https://watchvibe.example/verify-email/abc123") {
		t.Fatal("missing verification link in body")
	}
	if !strings.Contains(captured.msg, "Hi alice,") {
		t.Fatal("missing greeting in body")
	}
}

func TestMailerSendLoginOTP(t *testing.T) {
	mailer, captured := newCapturingMailer(t, nil)

	err := mailer.SendLoginOTP(context.Background(), port.OTPMessage{
		To:        "bob@example.com",
		Username:  "bob",
		Code:      "4821",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	})
	if err != nil {
		t.Fatalf("SendLoginOTP returned error: %v", err)
	}

	if !strings.Contains(captured.msg, "Subject: Your login code") {
		t.Fatal("missing subject header")
	}
	if !strings.Contains(captured.msg, "4821") {
		t.Fatal("missing code in body")
	}
	if !strings.Contains(captured.msg, "login code") {
		t.Fatal("missing purpose in body")
	}
}

func TestMailerSendFailure(t *testing.T) {
	sendErr := errors.New("connection refused")
	mailer, _ := newCapturingMailer(t, sendErr)

	err := mailer.SendPasswordResetOTP(context.Background(), port.OTPMessage{
		To:        "carol@example.com",
		Username:  "carol",
		Code:      "1234",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	})
	if !errors.Is(err, sendErr) {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}
