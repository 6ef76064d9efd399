// Package config loads process configuration from the environment exactly
// once at startup. The returned struct is treated as immutable for the
// lifetime of the process; nothing re-reads the environment afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const envPrefix = "SLICELINE_"

// Config carries every runtime setting of the service.
type Config struct {
	Addr       string
	PGDSN      string
	AuthSecret string
	TokenTTL   time.Duration

	FactoryURL    string
	FactoryAPIKey string

	LokiURL  string
	LokiUser string
	LokiKey  string

	LogComponent string
}

// Load reads the SLICELINE_* environment variables. The signing secret is
// required; everything else has a workable default or is optional.
func Load() (Config, error) {
	cfg := Config{
		Addr:          envOr("ADDR", ":8080"),
		PGDSN:         env("PG_DSN"),
		AuthSecret:    env("AUTH_SECRET"),
		FactoryURL:    env("FACTORY_URL"),
		FactoryAPIKey: env("FACTORY_API_KEY"),
		LokiURL:       env("LOKI_URL"),
		LokiUser:      env("LOKI_USER"),
		LokiKey:       env("LOKI_KEY"),
		LogComponent:  envOr("LOG_COMPONENT", "sliceline-api"),
		TokenTTL:      24 * time.Hour,
	}

	if cfg.AuthSecret == "" {
		return Config{}, errors.New("SLICELINE_AUTH_SECRET is required")
	}

	if raw := env("TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse SLICELINE_TOKEN_TTL: %w", err)
		}
		if ttl <= 0 {
			return Config{}, errors.New("SLICELINE_TOKEN_TTL must be positive")
		}
		cfg.TokenTTL = ttl
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func envOr(key, def string) string {
	if v := env(key); v != "" {
		return v
	}
	return def
}
