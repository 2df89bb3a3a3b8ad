package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	File = ""

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "spacekeeper", cfg.App.Name)
	assert.Equal(t, "vocespace", cfg.Redis.KeyPrefix)
	assert.Equal(t, 5*time.Minute, cfg.Reconciler.Interval)
	assert.Equal(t, 4, cfg.Reconciler.Concurrency)
	assert.False(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, 900, cfg.S3.PresignExpireSec)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spacekeeper.yaml")
	content := []byte(`
redis:
  addr: redis.internal:6380
  key_prefix: staging
reconciler:
  interval: 30s
livekit:
  url: wss://rtc.example.com
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("SPACEKEEPER_LIVEKIT_API_KEY", "key-from-env")
	t.Setenv("SPACEKEEPER_REDIS_KEY_PREFIX", "env-prefix")

	File = path
	defer func() { File = "" }()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, "env-prefix", cfg.Redis.KeyPrefix)
	assert.Equal(t, 30*time.Second, cfg.Reconciler.Interval)
	assert.Equal(t, "wss://rtc.example.com", cfg.LiveKit.URL)
	assert.Equal(t, "key-from-env", cfg.LiveKit.APIKey)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	File = filepath.Join(t.TempDir(), "nope.yaml")
	defer func() { File = "" }()

	_, err := Load()
	assert.Error(t, err)
}
