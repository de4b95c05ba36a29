// Package config resolves the process configuration once at startup.
//
// Every component receives the resolved *Config (or the part of it it needs)
// instead of reading environment variables on its own.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// EnvProduction is the APP_ENV value that turns on strict behavior.
const EnvProduction = "production"

var (
	// ErrMissingConnection is returned when production mode has no DATABASE_URL.
	// It is fatal: the server must not start listening.
	ErrMissingConnection = errors.New("config: DATABASE_URL is required in production")

	// ErrInvalidPort is returned when DATABASE_PORT is not a TCP port number.
	ErrInvalidPort = errors.New("config: invalid port")

	// ErrInvalidRateLimit is returned for a negative request count or a
	// non-positive window while limiting is on.
	ErrInvalidRateLimit = errors.New("config: invalid rate limit")
)

// Env is the raw environment as read from the process (and .env in development).
type Env struct {
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseHost     string `env:"DATABASE_HOST"`
	DatabasePort     string `env:"DATABASE_PORT"`
	DatabaseUser     string `env:"DATABASE_USER"`
	DatabasePassword string `env:"DATABASE_PASSWORD"`
	DatabaseName     string `env:"DATABASE_DB_NAME"`

	AppEnv    string `env:"APP_ENV,default=development"`
	Port      string `env:"PORT,default=3000"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
	APIPrefix string `env:"API_PREFIX,default=/api/v1"`

	RateLimitRequests  int           `env:"RATE_LIMIT_REQUESTS,default=60"`
	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS,default=*"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	TrustProxy         bool          `env:"TRUST_PROXY,default=false"`
}

// RateLimit configures the per-IP limiter on write endpoints.
// A zero Requests value disables limiting.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// Config holds all configuration for the application.
type Config struct {
	Env                string
	Port               string
	LogLevel           string
	APIPrefix          string
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
	RateLimit          RateLimit
	// TrustProxy honors X-Forwarded-For and X-Real-IP for the client address.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxy bool
	Database           Database
}

// Load reads configuration from environment variables.
// A .env file is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var e Env
	if _, err := env.UnmarshalFromEnviron(&e); err != nil {
		return nil, fmt.Errorf("config: read environment: %w", err)
	}

	return Resolve(e)
}

// LoadFrom is Load without touching the process environment.
func LoadFrom(es env.EnvSet) (*Config, error) {
	var e Env
	if err := env.Unmarshal(es, &e); err != nil {
		return nil, fmt.Errorf("config: read environment: %w", err)
	}

	return Resolve(e)
}

// Resolve turns the raw environment into a Config. It performs no I/O.
func Resolve(e Env) (*Config, error) {
	cfg := &Config{
		Env:             strings.ToLower(strings.TrimSpace(e.AppEnv)),
		Port:            strings.TrimSpace(e.Port),
		LogLevel:        strings.TrimSpace(e.LogLevel),
		APIPrefix:       normalizePrefix(e.APIPrefix),
		ShutdownTimeout: e.ShutdownTimeout,
		TrustProxy:      e.TrustProxy,
		RateLimit: RateLimit{
			Requests: e.RateLimitRequests,
			Window:   e.RateLimitWindow,
		},
	}

	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.Port == "" {
		cfg.Port = "3000"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit.Requests < 0 || (cfg.RateLimit.Requests > 0 && cfg.RateLimit.Window <= 0) {
		return nil, fmt.Errorf("%w: %d requests per %s", ErrInvalidRateLimit,
			cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	for _, origin := range strings.Split(e.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	db, err := resolveDatabase(e, cfg.IsProduction())
	if err != nil {
		return nil, err
	}
	cfg.Database = db

	return cfg, nil
}

// IsProduction reports whether strict production behavior applies.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return "0.0.0.0:" + c.Port
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}
