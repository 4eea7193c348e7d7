package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("ENV_FILE", "does-not-exist.env")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "council_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
}

func TestLoadConfig(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "mongodb://localhost:27017/testdb", cfg.MongoDB.URI)
	require.Equal(t, "council_test", cfg.MongoDB.Database)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, 10*time.Minute, cfg.Editing.LeaseTTL)
	require.Equal(t, 10*time.Minute, cfg.Editing.SweepInterval)
	require.Equal(t, "council:lease-sweep", cfg.Editing.SweepLockKey)
	require.False(t, cfg.RateLimit.Enabled)
	require.Empty(t, cfg.MinIO.Endpoint)
}

func TestLoadConfig_EditingOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LEASE_TTL_SECONDS", "120")
	t.Setenv("SWEEP_INTERVAL_SECONDS", "30")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 2*time.Minute, cfg.Editing.LeaseTTL)
	require.Equal(t, 30*time.Second, cfg.Editing.SweepInterval)
	require.True(t, cfg.RateLimit.Enabled)
	require.InDelta(t, 2.5, cfg.RateLimit.RPS, 0.001)
}

func TestLoadConfig_MissingMongoURI(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("MONGODB_URI", "")

	_, err := LoadConfig()
	require.Error(t, err)
	require.Contains(t, err.Error(), "MONGODB_URI")
}

func TestLoadConfig_RejectsNonPositiveTTL(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LEASE_TTL_SECONDS", "0")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestRedisAddrEmptyWithoutHost(t *testing.T) {
	require.Empty(t, RedisConfig{Port: "6379"}.Addr())
}
