package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/watchvibe/auth-service/internal/infra/config"
)

// Provider represents a telemetry provider handle.
type Provider struct {
	registrations prometheus.Counter
	sessions      prometheus.Counter
	otpDispatches *prometheus.CounterVec
}

// Attach configures telemetry collectors and returns a provider handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	return &Provider{
		registrations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "watchvibe",
			Subsystem: "auth",
			Name:      "registrations_total",
			Help:      "Total number of successful account registrations",
		}),
		sessions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "watchvibe",
			Subsystem: "auth",
			Name:      "sessions_started_total",
			Help:      "Total number of sessions started via OTP verification",
		}),
		otpDispatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "watchvibe",
			Subsystem: "auth",
			Name:      "otp_dispatches_total",
			Help:      "Total number of one-time codes dispatched, by purpose",
		}, []string{"purpose"}),
	}, nil
}

// RegistrationCounter exposes the registration metric.
func (p *Provider) RegistrationCounter() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.registrations
}

// SessionCounter exposes the session start metric.
func (p *Provider) SessionCounter() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.sessions
}

// OTPDispatchCounter exposes the OTP dispatch metric for the given purpose.
func (p *Provider) OTPDispatchCounter(purpose string) prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.otpDispatches.WithLabelValues(purpose)
}
