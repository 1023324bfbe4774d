package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Minute, cfg.Onboarding.OTPTTL)
	assert.Equal(t, 5, cfg.Onboarding.OTPMaxAttempts)
	assert.Equal(t, 5, cfg.Onboarding.OTPSendLimit)
	assert.Equal(t, time.Hour, cfg.Onboarding.OTPSendWindow)
	assert.InDelta(t, 250.0, cfg.Onboarding.MaxDistanceMeters, 0.001)
	assert.Equal(t, 12, cfg.Onboarding.BcryptCost)
	assert.Empty(t, cfg.Postgres.DSN)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ONBOARDING_MAX_DISTANCE_METERS", "120.5")
	t.Setenv("ONBOARDING_OTP_TTL", "5m")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ONBOARDING_BCRYPT_COST", "not-a-number")

	cfg := FromEnv()
	assert.InDelta(t, 120.5, cfg.Onboarding.MaxDistanceMeters, 0.001)
	assert.Equal(t, 5*time.Minute, cfg.Onboarding.OTPTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 12, cfg.Onboarding.BcryptCost, "unparseable values fall back to defaults")
}

func TestValidateProduction(t *testing.T) {
	t.Setenv("STOOP_ENV", "production")

	cfg := FromEnv()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ONBOARDING_TOKEN_SECRET")
	assert.Contains(t, err.Error(), "DATABASE_URL")

	cfg.Onboarding.TokenSecret = "0123456789abcdef0123456789abcdef"
	cfg.Postgres.DSN = "postgres://stoop@db/stoop"
	assert.NoError(t, cfg.Validate())
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("STOOP_ADDR=:9191\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("STOOP_ADDR") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9191", cfg.Server.Addr)
}

func TestLoadToleratesMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}
