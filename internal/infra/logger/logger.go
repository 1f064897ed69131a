package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey stores the request identifier on a context.Context.
type RequestIDKey struct{}

var (
	lg   *zap.Logger
	once sync.Once
)

// New returns the process-wide zap.Logger: JSON output in production,
// colored console output everywhere else.
func New(env string) (*zap.Logger, error) {
	var err error
	once.Do(func() {
		var cfg zap.Config
		if env == "production" {
			cfg = zap.NewProductionConfig()
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		} else {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		lg, err = cfg.Build()
	})
	return lg, err
}

// MaskEmail keeps up to three leading characters and the domain:
// john.doe@example.com -> joh***@example.com.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at:]
	keep := len(local)
	if keep > 3 {
		keep = 3
	}
	return local[:keep] + "***" + domain
}

// MaskIP keeps the first two IPv4 octets or the first four IPv6 groups.
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}
	if octets := strings.Split(ip, "."); len(octets) == 4 {
		return octets[0] + "." + octets[1] + ".*.*"
	}
	if groups := strings.Split(ip, ":"); len(groups) >= 4 {
		return strings.Join(groups[:4], ":") + ":*:*:*:*"
	}
	return "***"
}
