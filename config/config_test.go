package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"billister-api/pkg/appenv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setBaseEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/billister?sslmode=disable")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, appenv.Test, cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "Billister", cfg.JWTIssuer)
	assert.Equal(t, "Billister.Mobile", cfg.JWTAudience)
	assert.Equal(t, 14*24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.True(t, cfg.SchedulerEnabled)
	assert.Equal(t, "@every 6h", cfg.SchedulerSpec)
	assert.Equal(t, 90*24*time.Hour, cfg.ViewRetention)
	assert.Equal(t, 30*24*time.Hour, cfg.EventRetention)
	assert.False(t, cfg.RateLimitEnabled, "rate limiting is off in tests")
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoadProductionDefaultsToJSONLogs(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.RateLimitEnabled)
}

func TestLoadFailsFast(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("DATABASE_URL", "")
		_, err := Load()
		assert.ErrorContains(t, err, "DATABASE_URL")
	})
	t.Run("short secret", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("JWT_SECRET", "short")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})
	t.Run("bad integer", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("JWT_TTL_HOURS", "soon")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT_TTL_HOURS")
	})
	t.Run("bad scheduler flag", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("SCHEDULER_ENABLED", "maybe")
		_, err := Load()
		assert.ErrorContains(t, err, "SCHEDULER_ENABLED")
	})
	t.Run("bad rate", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("RATE_LIMIT_RPS", "-1")
		_, err := Load()
		assert.ErrorContains(t, err, "RATE_LIMIT_RPS")
	})
}

func TestLoadAppliesYAMLOverlay(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 10.0.0.2")
	path := filepath.Join(t.TempDir(), "billister.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
jwt:
  ttl_hours: 24
log:
  format: JSON
cors:
  allowed_origins: ["https://billister.dk"]
rate_limit:
  rps: 2.5
scheduler:
  enabled: false
  event_retention_days: 7
`), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.SchedulerEnabled)
	assert.Equal(t, 7*24*time.Hour, cfg.EventRetention)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.TrustedProxies)
	assert.Equal(t, []string{"https://billister.dk"}, cfg.AllowedOrigins)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	setBaseEnv(t)
	path := filepath.Join(t.TempDir(), "billister.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unterminated"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	assert.ErrorContains(t, err, "parse config file")
}
