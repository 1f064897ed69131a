package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/watchvibe/auth-service/internal/core/domain"
	"github.com/watchvibe/auth-service/internal/infra/config"
	"github.com/watchvibe/auth-service/internal/transport/http/handlers"
	"github.com/watchvibe/auth-service/internal/transport/http/middleware"
	"github.com/watchvibe/auth-service/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Passwords    *usecase.PasswordService
	Users        *usecase.UserService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Correlation())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.CORSOrigins))

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.Services.Auth)
	adminMiddleware := middleware.RequireRole(deps.Services.Users, domain.RoleAdmin)

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cookies := handlers.NewCookieWriter(deps.Config.Cookie, deps.Config.JWT)

	api := r.Group("/api/v1")
	{
		users := api.Group("/users")

		authHandler := handlers.NewAuthHandler(deps.Services.Auth, cookies)
		authHandler.RegisterRoutes(users, authMiddleware,
			rateLimitRule(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts),
			rateLimitRule(deps, "auth_verify_otp_ip", deps.Config.RateLimit.VerifyOTPMaxAttempts),
		)

		userHandler := handlers.NewUserHandler(deps.Services.Registration, deps.Services.Passwords, deps.Services.Users)
		userHandler.RegisterRoutes(users, authMiddleware, adminMiddleware,
			rateLimitRule(deps, "register_ip", deps.Config.RateLimit.RegisterMaxAttempts),
			rateLimitRule(deps, "password_reset_ip", deps.Config.RateLimit.PasswordResetMaxAttempts),
		)
	}

	return r
}

func rateLimitRule(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
