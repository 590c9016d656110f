package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/beautyclinic/clinic-api/internal/api/handler"
	"github.com/beautyclinic/clinic-api/internal/api/middleware"
	"github.com/beautyclinic/clinic-api/internal/core/domain"
	"github.com/beautyclinic/clinic-api/internal/core/ports"

	_ "github.com/beautyclinic/clinic-api/docs"
)

// Dependencies is everything the HTTP layer needs. It is assembled once in
// main and handed to NewRouter.
type Dependencies struct {
	Log zerolog.Logger

	AuthService ports.AuthService
	UserService ports.UserService
	Tokens      ports.TokenIssuer
	Users       ports.UserRepository

	// HealthChecks are pinged by the readiness probe, keyed by dependency name.
	HealthChecks map[string]handler.DependencyCheck
	// AuthRateLimit applies to the unauthenticated /auth routes.
	AuthRateLimit middleware.RateLimitConfig
}

// NewRouter builds the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// Request metrics live in a registry per router so that building more
	// than one router in a process does not register collectors twice.
	reg := prometheus.NewRegistry()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echomiddleware.Secure())
	e.Use(echomiddleware.CORS())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "clinic",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.AuthService)
	userHandler := handler.NewUserHandler(deps.UserService)
	healthHandler := handler.NewHealthHandler(deps.HealthChecks)

	protect := middleware.Protect(deps.Tokens, deps.Users, deps.Log)
	staffOrAdmin := middleware.Authorize(domain.RoleAdmin, domain.RoleStaff)
	adminOnly := middleware.Authorize(domain.RoleAdmin)

	v1 := e.Group("/api/v1")

	// --- Auth routes ---
	auth := v1.Group("/auth", middleware.RateLimit(deps.AuthRateLimit))
	auth.POST("/signin", authHandler.SignIn)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.GET("/verify-reset-token/:token", authHandler.VerifyResetToken)
	auth.PUT("/reset-password/:token", authHandler.ResetPassword)
	auth.PUT("/change-email", authHandler.ChangeEmail, protect)

	// --- User management ---
	users := v1.Group("/users", protect)
	users.GET("", userHandler.List, staffOrAdmin)
	users.GET("/:id", userHandler.Get, staffOrAdmin)
	users.POST("", userHandler.Create, adminOnly)
	users.PUT("/:id", userHandler.Update, adminOnly)
	users.DELETE("/:id", userHandler.Delete, adminOnly)

	// --- Probes, metrics and docs (no auth required) ---
	e.GET("/", healthHandler.Root)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{reg, prometheus.DefaultGatherer},
	}))
	e.GET("/api-docs/*", echoSwagger.WrapHandler)

	return e
}
