package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string `env:"APP_NAME" envDefault:"FaceGuard"`
	AppEnv         string `env:"APP_ENV" envDefault:"development"`
	Port           string `env:"PORT" envDefault:"8080"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL    string `env:"DATABASE_URL"`
	RedisURL       string `env:"REDIS_URL"`
	RedisNamespace string `env:"REDIS_NAMESPACE" envDefault:"faceguard"`
	StoreBackend   string `env:"STORE_BACKEND" envDefault:"memory"`
	EventStream    string `env:"EVENT_STREAM"`

	LivenessVerifierURL string        `env:"LIVENESS_VERIFIER_URL"`
	LivenessTimeout     time.Duration `env:"LIVENESS_TIMEOUT" envDefault:"10s"`

	JWTSecret      string        `env:"JWT_SECRET"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"15m"`
	ChallengeTTL   time.Duration `env:"CHALLENGE_TTL" envDefault:"5m"`
	ChallengeLimit int           `env:"CHALLENGE_LIMIT_PER_MINUTE" envDefault:"10"`

	ShutdownPeriod time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.AppEnv = strings.ToLower(cfg.AppEnv)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.StoreBackend = strings.ToLower(cfg.StoreBackend)
	cfg.LivenessVerifierURL = strings.TrimRight(cfg.LivenessVerifierURL, "/")

	overrides := []struct {
		target *time.Duration
		name   string
	}{
		{&cfg.ShutdownPeriod, "SHUTDOWN_TIMEOUT"},
		{&cfg.IdempotencyTTL, "IDEMPOTENCY_TTL"},
		{&cfg.SessionTTL, "SESSION_TTL"},
		{&cfg.ChallengeTTL, "CHALLENGE_TTL"},
		{&cfg.LivenessTimeout, "LIVENESS_TIMEOUT"},
	}
	for _, o := range overrides {
		if err := secondsOverride(o.target, o.name); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreBackend {
	case BackendMemory:
		if !c.IsDev() {
			return fmt.Errorf("STORE_BACKEND=memory is only allowed when APP_ENV is a development environment")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.IsDev() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET must be set")
		}
		return nil
	}

	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes outside development")
	}
	if c.LivenessVerifierURL == "" {
		return fmt.Errorf("LIVENESS_VERIFIER_URL must be set")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set")
	}
	return nil
}

// IsDev reports whether the service runs in a local development environment.
func (c Config) IsDev() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// secondsOverride applies NAME_SECONDS, an integer number of seconds, on top
// of the Go duration form already parsed from NAME.
func secondsOverride(target *time.Duration, name string) error {
	v := os.Getenv(name + "_SECONDS")
	if v == "" {
		return nil
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s_SECONDS: %w", name, err)
	}
	*target = time.Duration(seconds) * time.Second
	return nil
}
