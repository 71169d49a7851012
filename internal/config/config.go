package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/klarna-bridge/internal/klarna"
)

// Config holds gateway configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	KlarnaBaseURL      string
	KlarnaUsername     string
	KlarnaPassword     string
	KlarnaUserAgent    string
	RedisURL           string // empty disables the idempotency store
	IdempotencyTTL     time.Duration
	CORSAllowedOrigins []string
	MaxBodyBytes       int64
	RateLimitMax       int // 0 disables rate limiting
	RateLimitWindow    time.Duration
	SecurityHeaders    bool
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		KlarnaBaseURL:      valueOrDefault(k.String("KLARNA_BASE_URL"), klarna.PlaygroundBaseURL),
		KlarnaUsername:     strings.TrimSpace(k.String("KLARNA_API_USERNAME")),
		KlarnaPassword:     strings.TrimSpace(k.String("KLARNA_API_PASSWORD")),
		KlarnaUserAgent:    strings.TrimSpace(k.String("KLARNA_USER_AGENT")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		MaxBodyBytes:       parseInt64(k.String("MAX_BODY_BYTES"), 1<<20),
		RateLimitMax:       int(parseInt64(k.String("RATE_LIMIT_MAX"), 0)),
		RateLimitWindow:    parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		SecurityHeaders:    parseBool(k.String("SECURITY_HEADERS"), true),
	}

	if cfg.KlarnaUsername == "" {
		return nil, errors.New("KLARNA_API_USERNAME is required")
	}
	if cfg.KlarnaPassword == "" {
		return nil, errors.New("KLARNA_API_PASSWORD is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	v, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseBool(value string, fallback bool) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	v, err := strconv.ParseBool(trimmed)
	if err != nil {
		return fallback
	}
	return v
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

// LoadForTests allows tests to override environment variables without
// touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
