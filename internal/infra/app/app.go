package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/watchvibe/auth-service/internal/core/port"
	"github.com/watchvibe/auth-service/internal/infra/config"
	"github.com/watchvibe/auth-service/internal/infra/database"
	kafkainfra "github.com/watchvibe/auth-service/internal/infra/kafka"
	"github.com/watchvibe/auth-service/internal/infra/logger"
	"github.com/watchvibe/auth-service/internal/infra/mail"
	redisinfra "github.com/watchvibe/auth-service/internal/infra/redis"
	"github.com/watchvibe/auth-service/internal/infra/security"
	"github.com/watchvibe/auth-service/internal/infra/telemetry"
	postgresrepo "github.com/watchvibe/auth-service/internal/repository/postgres"
	redisrepo "github.com/watchvibe/auth-service/internal/repository/redis"
	"github.com/watchvibe/auth-service/internal/transport/http/middleware"
	"github.com/watchvibe/auth-service/internal/transport/http/routes"
	"github.com/watchvibe/auth-service/internal/usecase"
)

// Application wires configuration, infrastructure, and transport together and
// owns their lifecycles.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

// New builds the full dependency graph from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics, err := telemetry.Attach(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.Enabled {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init argon2 hasher: %w", err)
	}

	tokens, err := security.NewTokenManager(security.TokenManagerConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTokenTTL,
		RefreshTTL:    cfg.JWT.RefreshTokenTTL,
		Issuer:        cfg.JWT.Issuer,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init token manager: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitPrefix := cfg.Redis.RateLimitPrefix
	if rateLimitPrefix == "" {
		rateLimitPrefix = "watchvibe:rate-limit"
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: rateLimitPrefix,
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	var producer *kafkainfra.Producer
	var events port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("init kafka producer failed, events will be logged only", zap.Error(err))
			events = kafkainfra.NewStubPublisher(log)
		} else {
			events = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, events will be logged only")
		events = kafkainfra.NewStubPublisher(log)
	}

	var dispatcher port.NotificationDispatcher
	if cfg.SMTP.Host != "" {
		dispatcher = mail.NewMailer(cfg.SMTP, log)
	} else {
		log.Info("smtp not configured, notifications will be logged only")
		dispatcher = mail.NewLoggingDispatcher(log)
	}

	users := postgresrepo.NewUserRepository(pool)

	validator := security.DefaultPasswordValidator()
	if cfg.Auth.PasswordPolicy == config.PasswordPolicyStrict {
		validator = security.StrictPasswordValidator()
	}

	authService := usecase.NewAuthService(cfg, users, hasher, tokens, dispatcher, events, log).
		WithTelemetry(metrics)
	registrationService := usecase.NewRegistrationService(cfg, users, hasher, validator, dispatcher, events, log).
		WithTelemetry(metrics)
	passwordService := usecase.NewPasswordService(cfg, users, hasher, validator, dispatcher, events, log).
		WithTelemetry(metrics)
	userService := usecase.NewUserService(users, events, log)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     httpMetrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Passwords:    passwordService,
			Users:        userService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
		tracer:   tracer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("close kafka producer", zap.Error(err))
			}
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.tracer.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("shutdown tracer", zap.Error(err))
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
