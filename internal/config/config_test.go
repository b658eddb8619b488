package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 30*time.Second, cfg.StoreTimeout)
	assert.Equal(t, "memory", cfg.RateLimitBackend)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, "redis", cfg.QueueBackend)
	assert.Equal(t, "9091", cfg.WorkerMetricsPort)
	assert.Empty(t, cfg.SeedFile)
	assert.Equal(t, 40.0, cfg.PassMark)
	assert.True(t, cfg.AutoMigrate)
	assert.False(t, cfg.Production())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("STORE_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_PER_MIN", "30")
	t.Setenv("PASS_MARK", "33.5")
	t.Setenv("AUTO_MIGRATE", "false")

	cfg := Load()
	assert.True(t, cfg.Production())
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.Equal(t, 33.5, cfg.PassMark)
	assert.False(t, cfg.AutoMigrate)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("TOKEN_TTL", "soon")
	t.Setenv("STORE_TIMEOUT", "-1s")
	t.Setenv("PASS_MARK", "140")

	cfg := Load()
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 30*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 40.0, cfg.PassMark)
}
