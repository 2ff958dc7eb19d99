package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("QUEUE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.True(t, cfg.TestPaymentSuccess)
	assert.False(t, cfg.TestMode)
	assert.Equal(t, time.Second, cfg.TestProcessingDelay)
	assert.Equal(t, 5*time.Second, cfg.ProcessingDelayMin)
	assert.Equal(t, 10*time.Second, cfg.ProcessingDelayMax)
	assert.Equal(t, 5*time.Second, cfg.WebhookTimeout)
	assert.Equal(t, 0.90, cfg.UPISuccessRate)
	assert.Equal(t, 0.95, cfg.CardSuccessRate)
	assert.Equal(t, "key_test_abc123", cfg.TestAPIKey)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("QUEUE_DRIVER", "memory")
	t.Setenv("TEST_MODE", "true")
	t.Setenv("TEST_PAYMENT_SUCCESS", "false")
	t.Setenv("TEST_PROCESSING_DELAY", "250")
	t.Setenv("WEBHOOK_RETRY_INTERVALS_TEST", "true")
	t.Setenv("SWEEPER_INTERVAL", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, http://localhost:3001")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.TestMode)
	assert.False(t, cfg.TestPaymentSuccess)
	assert.Equal(t, 250*time.Millisecond, cfg.TestProcessingDelay)
	assert.True(t, cfg.WebhookRetryFast)
	assert.Equal(t, 30*time.Second, cfg.SweeperInterval)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, cfg.CORSAllowedOrigins)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DBDriver:           "postgres",
			DatabaseURL:        "postgres://localhost/db",
			QueueDriver:        "redis",
			ProcessingDelayMin: time.Second,
			ProcessingDelayMax: 2 * time.Second,
			UPISuccessRate:     0.9,
			CardSuccessRate:    0.95,
			WorkerConcurrency:  1,
			PublicRateLimit:    5,
			PublicRateBurst:    10,
		}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.DBDriver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.QueueDriver = "kafka"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.DatabaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.PublicRateLimit = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.PublicRateBurst = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.ProcessingDelayMin = 3 * time.Second
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.CardSuccessRate = 1.5
	assert.Error(t, cfg.Validate())
}
