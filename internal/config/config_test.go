package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "sqlite3", cfg.DatabaseDriver)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.Equal(t, LockBackendMemory, cfg.LockBackend)
	assert.Equal(t, 10*time.Second, cfg.LockWait)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 60*time.Second, cfg.WSReadTimeout)
	assert.Equal(t, int64(8192), cfg.WSMaxMessageSize)
}

func TestValidateRejectsPingSlowerThanReadTimeout(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("WS_PING_INTERVAL_MS", "90000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WSPingInterval")
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "http_port: 9090\nllm_timeout: 5s\nlock_backend: redis\nredis_addr: cache:6379\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_PORT", "9191")
	t.Setenv("LOCK_WAIT_MS", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
	assert.Equal(t, LockBackendRedis, cfg.LockBackend)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.LockWait)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DatabaseDriver")
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-number")
	assert.Equal(t, 42, getEnvInt("HTTP_PORT", 42))
}
