// @title                       Beauty Clinic API
// @version                     1.0
// @description                 Authentication, password reset and account management for the clinic booking backend.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/beautyclinic/clinic-api/internal/api"
	"github.com/beautyclinic/clinic-api/internal/api/handler"
	"github.com/beautyclinic/clinic-api/internal/api/middleware"
	"github.com/beautyclinic/clinic-api/internal/core/service"
	"github.com/beautyclinic/clinic-api/internal/infrastructure/config"
	"github.com/beautyclinic/clinic-api/internal/infrastructure/db/mongo"
	"github.com/beautyclinic/clinic-api/internal/infrastructure/db/redis"
	"github.com/beautyclinic/clinic-api/internal/infrastructure/notify"
	"github.com/beautyclinic/clinic-api/internal/infrastructure/security"
	"github.com/beautyclinic/clinic-api/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{})
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "clinic-api",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Stores ---
	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "clinic-api",
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	users := mongo.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}

	// --- Security ---
	hasher, err := security.NewPasswordHasher(security.HasherConfig{
		Algorithm:  cfg.Auth.PasswordHasher,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	if err != nil {
		return err
	}
	tokens, err := security.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiresIn)
	if err != nil {
		return err
	}

	// --- Services ---
	authService := service.NewAuthService(
		users,
		hasher,
		tokens,
		notify.NewLogSender(log),
		redis.NewResetThrottle(rdb, cfg.Auth.ResetThrottleWindow),
		cfg.Auth.ResetTokenTTL,
		log.With().Str("component", "auth").Logger(),
	)
	userService := service.NewUserService(users, hasher, cfg.PhoneRegion, log.With().Str("component", "users").Logger())

	if cfg.Seed.Enabled {
		created, err := userService.Seed(ctx, service.DefaultSeedUsers(service.SeedPasswords{
			Admin:    cfg.Seed.AdminPassword,
			Staff:    cfg.Seed.StaffPassword,
			Customer: cfg.Seed.CustomerPassword,
		}))
		if err != nil {
			return err
		}
		log.Info().Int("created", created).Msg("seed users ensured")
	}

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Log:         log,
		AuthService: authService,
		UserService: userService,
		Tokens:      tokens,
		Users:       users,
		HealthChecks: map[string]handler.DependencyCheck{
			"mongodb": func(ctx context.Context) error { return mongo.Ping(ctx, db) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		AuthRateLimit: middleware.RateLimitConfig{
			Rate:      cfg.RateLimit.Rate,
			Burst:     cfg.RateLimit.Burst,
			ExpiresIn: cfg.RateLimit.ExpiresIn,
		},
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting clinic api")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
