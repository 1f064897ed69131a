package mail

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/watchvibe/auth-service/internal/core/port"
	"github.com/watchvibe/auth-service/internal/infra/config"
)

const sendTimeout = 10 * time.Second

var verificationTemplate = template.Must(template.New("verification").Parse(
	`Hi {{.Username}},

Please verify your email address by opening the link below:

{{.VerifyURL}}

The link expires at {{.ExpiresAt.Format "15:04 MST, Jan 2 2006"}}. If you did not
create this account you can ignore this message.
`))

var otpTemplate = template.Must(template.New("otp").Parse(
	`Hi {{.Username}},

Your {{.Purpose}} code is:

    {{.Code}}

The code expires at {{.ExpiresAt.Format "15:04 MST, Jan 2 2006"}}. Never share
this code with anyone.
`))

// Mailer delivers notification email over SMTP.
type Mailer struct {
	cfg    config.SMTPSettings
	logger *zap.Logger

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailer constructs an SMTP-backed dispatcher.
func NewMailer(cfg config.SMTPSettings, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// SendEmailVerification delivers the account verification link.
func (m *Mailer) SendEmailVerification(ctx context.Context, msg port.EmailVerification) error {
	body, err := renderTemplate(verificationTemplate, msg)
	if err != nil {
		return err
	}

	return m.deliver(ctx, msg.To, "Verify your email address", body)
}

// SendLoginOTP delivers a login one-time code.
func (m *Mailer) SendLoginOTP(ctx context.Context, msg port.OTPMessage) error {
	return m.sendOTP(ctx, msg, "login", "Your login code")
}

// SendPasswordResetOTP delivers a password-reset one-time code.
func (m *Mailer) SendPasswordResetOTP(ctx context.Context, msg port.OTPMessage) error {
	return m.sendOTP(ctx, msg, "password reset", "Your password reset code")
}

func (m *Mailer) sendOTP(ctx context.Context, msg port.OTPMessage, purpose, subject string) error {
	body, err := renderTemplate(otpTemplate, struct {
		Username  string
		Purpose   string
		Code      string
		ExpiresAt time.Time
	}{
		Username:  msg.Username,
		Purpose:   purpose,
		Code:      msg.Code,
		ExpiresAt: msg.ExpiresAt,
	})
	if err != nil {
		return err
	}

	return m.deliver(ctx, msg.To, subject, body)
}

func (m *Mailer) deliver(ctx context.Context, to, subject, body string) error {
	message := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		m.cfg.From, to, subject, body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, auth, m.cfg.From, []string{to}, []byte(message))
	}()

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

func renderTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render mail template: %w", err)
	}
	return buf.String(), nil
}

var _ port.NotificationDispatcher = (*Mailer)(nil)
