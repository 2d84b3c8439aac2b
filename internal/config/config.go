package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/joho/godotenv"
)

const (
	defaultAppName          = "CongoPayWalletBFF"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultWalletAPITimeout = 15 * time.Second
	defaultQueryCacheTTL    = 30 * time.Second
	defaultSessionTTL       = 30 * time.Minute
	defaultMaxSessions      = 10_000
	defaultKeypadRateLimit  = 30
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName          string `valid:"required"`
	AppEnv           string `valid:"required"`
	Port             string `valid:"required"`
	LogLevel         string
	WalletAPIURL     string `valid:"requrl,required"`
	WalletAPITimeout time.Duration
	RedisURL         string
	QueryCacheTTL    time.Duration
	SessionTTL       time.Duration
	MaxSessions      int
	KeypadRateLimit  int
	ShutdownPeriod   time.Duration
	IdempotencyTTL   time.Duration
}

// Load reads configuration values from the environment and populates a Config
// instance. A .env file in the working directory is honoured when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		WalletAPIURL:     strings.TrimRight(os.Getenv("WALLET_API_URL"), "/"),
		WalletAPITimeout: defaultWalletAPITimeout,
		RedisURL:         os.Getenv("REDIS_URL"),
		QueryCacheTTL:    defaultQueryCacheTTL,
		SessionTTL:       defaultSessionTTL,
		MaxSessions:      defaultMaxSessions,
		KeypadRateLimit:  defaultKeypadRateLimit,
		ShutdownPeriod:   defaultShutdownDelay,
		IdempotencyTTL:   defaultIdempotencyTTL,
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownPeriod},
		{"IDEMPOTENCY_TTL", &cfg.IdempotencyTTL},
		{"WALLET_API_TIMEOUT", &cfg.WalletAPITimeout},
		{"QUERY_CACHE_TTL", &cfg.QueryCacheTTL},
		{"SESSION_TTL", &cfg.SessionTTL},
	}
	for _, d := range durations {
		if err := durationEnv(d.name, d.dst); err != nil {
			return Config{}, err
		}
	}

	if err := intEnv("MAX_SESSIONS", &cfg.MaxSessions); err != nil {
		return Config{}, err
	}
	if err := intEnv("KEYPAD_RATE_LIMIT", &cfg.KeypadRateLimit); err != nil {
		return Config{}, err
	}

	if cfg.WalletAPIURL == "" {
		return Config{}, fmt.Errorf("WALLET_API_URL must be set")
	}
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.MaxSessions <= 0 {
		return Config{}, fmt.Errorf("MAX_SESSIONS must be positive")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the service runs in a local/development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// durationEnv accepts both NAME_SECONDS (integer) and NAME (Go duration) forms,
// the seconds form taking precedence.
func durationEnv(name string, dst *time.Duration) error {
	if v := os.Getenv(name + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s_SECONDS: %w", name, err)
		}
		*dst = time.Duration(seconds) * time.Second
		return nil
	}
	if v := os.Getenv(name); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = d
	}
	return nil
}

func intEnv(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = n
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
