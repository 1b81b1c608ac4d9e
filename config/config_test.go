package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("JWT_ACCESS_TTL", "30m")
	t.Setenv("RATE_LIMIT_AUTH", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "memory", cfg.StorageDriver)
	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 3, cfg.AuthRateLimit)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins())
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("JWT_ACCESS_TTL", "soon")
	t.Setenv("REDIS_DB", "two")
	t.Setenv("MAIL_SEND_ENABLED", "maybe")

	cfg := Load()
	assert.Equal(t, 24*time.Hour, cfg.AccessTTL)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.False(t, cfg.MailSendEnabled)
}

func TestValidate(t *testing.T) {
	t.Run("development gets a fallback secret", func(t *testing.T) {
		cfg := &Config{Env: "development", AccessTTL: time.Hour, StorageDriver: "memory"}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	})
	t.Run("production requires a secret", func(t *testing.T) {
		cfg := &Config{Env: "production", AccessTTL: time.Hour, StorageDriver: "postgres"}
		assert.Error(t, cfg.Validate())
	})
	t.Run("unknown storage driver", func(t *testing.T) {
		cfg := &Config{Env: "production", JWTSecret: "k", AccessTTL: time.Hour, StorageDriver: "mysql"}
		assert.Error(t, cfg.Validate())
	})
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "d", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", cfg.PostgresDSN())
}
