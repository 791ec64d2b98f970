package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/infra/config"
	"github.com/havenlane/estate-iam/internal/transport/http/handlers"
	"github.com/havenlane/estate-iam/internal/transport/http/middleware"
	"github.com/havenlane/estate-iam/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Sessions     *usecase.SessionService
	Identities   *usecase.IdentityService
	Suspensions  *usecase.SuspensionService
	Recovery     *usecase.RecoveryService
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
	if deps.Config != nil && deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if deps.Config != nil {
		r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))
	}
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("postgres", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	if deps.Services.Sessions != nil {
		api.Use(middleware.Authenticate(deps.Services.Sessions))
	}

	if deps.Services.Auth != nil {
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Registration)

		authGroup := api.Group("/auth")
		authGroup.POST("/register", withRateLimit(deps, "auth_register_ip", registerLimit(deps), authHandler.Register)...)
		authGroup.POST("/login", withRateLimit(deps, "auth_login_ip", loginLimit(deps), authHandler.Login)...)
		authGroup.POST("/verify-email", authHandler.VerifyEmail)
		authGroup.POST("/logout", middleware.RequireIdentity(), authHandler.Logout)

		if deps.Services.Recovery != nil {
			recoveryHandler := handlers.NewRecoveryHandler(deps.Services.Recovery)
			recoveryGroup := authGroup.Group("/recovery")
			recoveryGroup.POST("/request", withRateLimit(deps, "auth_recovery_ip", recoveryLimit(deps), recoveryHandler.RequestCode)...)
			recoveryGroup.POST("/verify", withRateLimit(deps, "auth_recovery_ip", recoveryLimit(deps), recoveryHandler.VerifyCode)...)
		}
	}

	if deps.Services.Identities != nil {
		identityHandler := handlers.NewIdentityHandler(deps.Services.Identities)

		api.GET("/me", middleware.RequireIdentity(), identityHandler.Me)

		adminGroup := api.Group("/admin")
		adminGroup.Use(middleware.RequireIdentity())
		adminGroup.GET("/identities", middleware.RequirePermission(domain.PermUsersView), identityHandler.List)
		adminGroup.GET("/identities/:id", middleware.RequirePermission(domain.PermUsersView), identityHandler.Get)
		adminGroup.DELETE("/identities/:id", middleware.RequirePermission(domain.PermUsersDelete), identityHandler.Delete)

		if deps.Services.Suspensions != nil {
			suspensionHandler := handlers.NewSuspensionHandler(deps.Services.Suspensions)
			adminGroup.POST("/identities/:id/suspend", middleware.RequirePermission(domain.PermUsersSuspend), suspensionHandler.Suspend)
			adminGroup.POST("/identities/:id/lift", middleware.RequirePermission(domain.PermUsersSuspend), suspensionHandler.Lift)
			adminGroup.GET("/identities/:id/suspensions", middleware.RequirePermission(domain.PermUsersView), suspensionHandler.History)

			api.POST("/appeals", suspensionHandler.Appeal)
		}
	}

	handlers.RegisterSwagger(r)

	return r
}

func loginLimit(deps Dependencies) int {
	if deps.Config == nil {
		return 0
	}
	return deps.Config.RateLimit.LoginMaxAttempts
}

func registerLimit(deps Dependencies) int {
	if deps.Config == nil {
		return 0
	}
	return deps.Config.RateLimit.RegisterMaxAttempts
}

func recoveryLimit(deps Dependencies) int {
	if deps.Config == nil {
		return 0
	}
	return deps.Config.RateLimit.RecoveryMaxAttempts
}

// withRateLimit prefixes a handler with an IP-scoped sliding-window limit
// when a limiter is configured; otherwise the handler runs unguarded.
func withRateLimit(deps Dependencies, name string, limit int, handler gin.HandlerFunc) []gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 {
		return []gin.HandlerFunc{handler}
	}

	window := time.Minute
	if deps.Config != nil && deps.Config.RateLimit.WindowDuration > 0 {
		window = deps.Config.RateLimit.WindowDuration
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule), handler}
}
