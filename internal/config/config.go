// Package config loads service configuration from the environment.
//
// Configuration sources, in order:
//   - <data dir>/.env  (deployment overrides)
//   - .env in the working directory (development convenience)
//   - process environment
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	ListenHost  string
	ListenPort  int
	MetricsPort int
	DataPath    string
	PublicURL   string

	// Logging settings
	LogLevel     string
	LogFormat    string
	LogFile      string
	LogMaxSizeMB int

	// Session settings
	SessionSecret string
	SessionTTL    time.Duration

	// Signing-link settings
	SigningTokenTTL time.Duration

	// Stripe settings
	StripeWebhookSecret string

	// Signature cache settings
	RedisURL    string
	SigCacheTTL time.Duration

	// Upload limits
	MaxUploadBytes int64

	// Pledge template
	TemplatePath string

	// WebSocket origins (comma-separated patterns, * wildcards allowed)
	AllowedOrigins string
}

// Defaults applied when the environment leaves a setting unset.
const (
	DefaultListenPort      = 8488
	DefaultMetricsPort     = 9191
	DefaultSessionTTL      = 24 * time.Hour
	DefaultSigningTokenTTL = 30 * 24 * time.Hour
	DefaultSigCacheTTL     = time.Hour
	DefaultMaxUploadBytes  = 20 << 20 // 20 MiB
)

// Load reads configuration from .env files and the environment.
func Load() (*Config, error) {
	dataPath := envString("SIGNET_DATA_DIR", "/var/lib/signet")

	envFile := filepath.Join(dataPath, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			log.Warn().Err(err).Str("file", envFile).Msg("Failed to load .env file")
		}
	}
	// Development fallback: .env in the working directory.
	_ = godotenv.Load()

	cfg := &Config{
		ListenHost:          envString("SIGNET_LISTEN_HOST", "0.0.0.0"),
		ListenPort:          envInt("SIGNET_LISTEN_PORT", DefaultListenPort),
		MetricsPort:         envInt("SIGNET_METRICS_PORT", DefaultMetricsPort),
		DataPath:            dataPath,
		PublicURL:           strings.TrimRight(envString("SIGNET_PUBLIC_URL", ""), "/"),
		LogLevel:            envString("LOG_LEVEL", "info"),
		LogFormat:           envString("LOG_FORMAT", "auto"),
		LogFile:             envString("LOG_FILE", ""),
		LogMaxSizeMB:        envInt("LOG_MAX_SIZE", 50),
		SessionSecret:       envString("SIGNET_SESSION_SECRET", ""),
		SessionTTL:          envDuration("SIGNET_SESSION_TTL", DefaultSessionTTL),
		SigningTokenTTL:     envDuration("SIGNET_SIGNING_TOKEN_TTL", DefaultSigningTokenTTL),
		StripeWebhookSecret: envString("STRIPE_WEBHOOK_SECRET", ""),
		RedisURL:            envString("REDIS_URL", ""),
		SigCacheTTL:         envDuration("SIGNET_SIGCACHE_TTL", DefaultSigCacheTTL),
		MaxUploadBytes:      envInt64("SIGNET_MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
		TemplatePath:        envString("SIGNET_TEMPLATE_PATH", filepath.Join(dataPath, "templates", "pledge.pdf")),
		AllowedOrigins:      envString("SIGNET_ALLOWED_ORIGINS", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot safely run with.
func (c *Config) Validate() error {
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("invalid listen port %d", c.ListenPort)
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port %d", c.MetricsPort)
	}
	if c.MetricsPort == c.ListenPort && c.MetricsPort != 0 {
		return fmt.Errorf("metrics port %d collides with listen port", c.MetricsPort)
	}
	if strings.TrimSpace(c.DataPath) == "" {
		return fmt.Errorf("data path is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	return nil
}

// ListenAddr returns the host:port the API server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.ListenPort)
}

// MetricsAddr returns the host:port the metrics server binds to, or ""
// when metrics are disabled.
func (c *Config) MetricsAddr() string {
	if c.MetricsPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.ListenHost, c.MetricsPort)
}

// AllowedOriginPatterns splits the configured origins into patterns.
func (c *Config) AllowedOriginPatterns() []string {
	raw := strings.Split(c.AllowedOrigins, ",")
	patterns := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid integer in environment, using default")
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid integer in environment, using default")
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid duration in environment, using default")
		return fallback
	}
	return d
}
