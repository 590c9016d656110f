package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port            string        `env:"PORT,             default=3000"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=15s"`

	Auth      AuthConfig
	RateLimit RateLimitConfig
	Seed      SeedConfig
	Mongo     MongoConfig
	Redis     RedisConfig

	PhoneRegion string `env:"PHONE_DEFAULT_REGION, default=ID"`
}

type AuthConfig struct {
	JWTSecret           string        `env:"JWT_SECRET, required"`
	JWTExpiresIn        time.Duration `env:"JWT_EXPIRES_IN,        default=24h"`
	PasswordHasher      string        `env:"PASSWORD_HASHER,       default=bcrypt"`
	BcryptCost          int           `env:"PASSWORD_BCRYPT_COST,  default=10"`
	ResetTokenTTL       time.Duration `env:"RESET_TOKEN_TTL,       default=10m"`
	ResetThrottleWindow time.Duration `env:"RESET_THROTTLE_WINDOW, default=1m"`
}

// RateLimitConfig bounds requests per client IP on the unauthenticated auth routes.
type RateLimitConfig struct {
	Rate      float64       `env:"AUTH_RATE_LIMIT, default=5"`
	Burst     int           `env:"AUTH_RATE_BURST, default=10"`
	ExpiresIn time.Duration `env:"AUTH_RATE_TTL,   default=3m"`
}

type SeedConfig struct {
	Enabled          bool   `env:"SEED_USERS,             default=false"`
	AdminPassword    string `env:"SEED_ADMIN_PASSWORD,    default=adminpassword"`
	StaffPassword    string `env:"SEED_STAFF_PASSWORD,    default=staffpassword"`
	CustomerPassword string `env:"SEED_CUSTOMER_PASSWORD, default=customerpassword"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=clinic"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(ctx context.Context, dotenvFiles ...string) (*Config, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through lookuper and validates it.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Auth.PasswordHasher {
	case "bcrypt", "argon2id":
	default:
		return fmt.Errorf("PASSWORD_HASHER must be bcrypt or argon2id, got %q", c.Auth.PasswordHasher)
	}
	if c.Auth.JWTExpiresIn <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}
	if c.Auth.ResetTokenTTL <= 0 {
		return errors.New("RESET_TOKEN_TTL must be positive")
	}
	return nil
}
