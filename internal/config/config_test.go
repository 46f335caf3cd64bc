package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		ListenHost:     "127.0.0.1",
		ListenPort:     8488,
		MetricsPort:    9191,
		DataPath:       "/tmp/signet",
		SessionTTL:     time.Hour,
		MaxUploadBytes: 1 << 20,
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SIGNET_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultListenPort, cfg.ListenPort)
	assert.Equal(t, DefaultMetricsPort, cfg.MetricsPort)
	assert.Equal(t, DefaultSessionTTL, cfg.SessionTTL)
	assert.Equal(t, DefaultSigCacheTTL, cfg.SigCacheTTL)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.MaxUploadBytes)
	assert.Contains(t, cfg.TemplatePath, "pledge.pdf")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SIGNET_DATA_DIR", t.TempDir())
	t.Setenv("SIGNET_LISTEN_PORT", "9000")
	t.Setenv("SIGNET_SESSION_TTL", "2h")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_abc")
	t.Setenv("SIGNET_PUBLIC_URL", "https://sign.example.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.ListenPort)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "whsec_abc", cfg.StripeWebhookSecret)
	assert.Equal(t, "https://sign.example.com", cfg.PublicURL, "trailing slash trimmed")
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SIGNET_DATA_DIR", t.TempDir())
	t.Setenv("SIGNET_LISTEN_PORT", "not-a-number")
	t.Setenv("SIGNET_SESSION_TTL", "bogus")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultListenPort, cfg.ListenPort)
	assert.Equal(t, DefaultSessionTTL, cfg.SessionTTL)
}

func TestValidateRejectsBadPorts(t *testing.T) {
	cfg := validConfig()
	cfg.ListenPort = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.ListenPort = 70000
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.MetricsPort = cfg.ListenPort
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.DataPath = "   "
	assert.Error(t, cfg.Validate())
}

func TestAddrs(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "127.0.0.1:8488", cfg.ListenAddr())
	assert.Equal(t, "127.0.0.1:9191", cfg.MetricsAddr())

	cfg.MetricsPort = 0
	assert.Equal(t, "", cfg.MetricsAddr())
}

func TestAllowedOriginPatterns(t *testing.T) {
	cfg := validConfig()
	cfg.AllowedOrigins = " https://sign.example.com , *.example.org ,, "
	assert.Equal(t, []string{"https://sign.example.com", "*.example.org"}, cfg.AllowedOriginPatterns())

	cfg.AllowedOrigins = ""
	assert.Empty(t, cfg.AllowedOriginPatterns())
}
