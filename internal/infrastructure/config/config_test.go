package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "secret",
	}))
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}

	if cfg.Port != "3000" || cfg.Env != "development" {
		t.Fatalf("unexpected server defaults: port=%s env=%s", cfg.Port, cfg.Env)
	}
	if cfg.Auth.JWTExpiresIn != 24*time.Hour {
		t.Fatalf("expected 24h token lifetime, got %v", cfg.Auth.JWTExpiresIn)
	}
	if cfg.Auth.ResetTokenTTL != 10*time.Minute {
		t.Fatalf("expected 10m reset ttl, got %v", cfg.Auth.ResetTokenTTL)
	}
	if cfg.Auth.PasswordHasher != "bcrypt" || cfg.Auth.BcryptCost != 10 {
		t.Fatalf("unexpected hasher defaults: %s/%d", cfg.Auth.PasswordHasher, cfg.Auth.BcryptCost)
	}
	if cfg.Mongo.Database != "clinic" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected store defaults: %+v %+v", cfg.Mongo, cfg.Redis)
	}
	if cfg.Seed.Enabled || cfg.Seed.AdminPassword != "adminpassword" {
		t.Fatalf("unexpected seed defaults: %+v", cfg.Seed)
	}
	if cfg.PhoneRegion != "ID" {
		t.Fatalf("unexpected phone region %q", cfg.PhoneRegion)
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":      "secret",
		"JWT_EXPIRES_IN":  "2h",
		"PASSWORD_HASHER": "argon2id",
		"SEED_USERS":      "true",
		"ENV":             "production",
	}))
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if cfg.Auth.JWTExpiresIn != 2*time.Hour || cfg.Auth.PasswordHasher != "argon2id" {
		t.Fatalf("overrides not applied: %+v", cfg.Auth)
	}
	if !cfg.Seed.Enabled || !cfg.IsProduction() {
		t.Fatalf("expected seeding enabled in production config")
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret": {},
		"unknown hasher": {"JWT_SECRET": "s", "PASSWORD_HASHER": "md5"},
		"bad duration":   {"JWT_SECRET": "s", "JWT_EXPIRES_IN": "1d"},
		"zero lifetime":  {"JWT_SECRET": "s", "JWT_EXPIRES_IN": "0s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFrom(context.Background(), envconfig.MapLookuper(env)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
