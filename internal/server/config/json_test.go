package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"bot_token":          "123:abc",
		"super_owner_id":     42,
		"database_dsn":       "postgres://db",
		"health_addr":        ":9999",
		"log_level":          "warn",
		"poll_timeout":       "20s",
		"batch_size":         4,
		"raw_bytes_max_size": 2048,
		"session_ttl":        "15m",
		"redis_addr":         "redis:6379",
		"redis_password":     "rpass",
		"redis_db":           2,
		"amqp_url":           "amqp://mq",
		"s3_root_user":       "user",
		"s3_root_password":   "password",
		"s3_bucket":          "bucket",
		"s3_region":          "region",
		"s3_base_endpoint":   "base_endpoint",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "123:abc", cfg.BotToken)
		assert.Equal(t, int64(42), cfg.SuperOwnerID)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, ":9999", cfg.HealthAddr)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, 20*time.Second, cfg.PollTimeout)
		assert.Equal(t, 4, cfg.BatchSize)
		assert.Equal(t, int64(2048), cfg.RawBytesMaxSize)
		assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, "rpass", cfg.RedisPassword)
		assert.Equal(t, 2, cfg.RedisDB)
		assert.Equal(t, "amqp://mq", cfg.AMQPURL)
		assert.Equal(t, "user", cfg.S3RootUser)
		assert.Equal(t, "password", cfg.S3RootPassword)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
	})

	t.Run("partial file keeps other values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"batch_size": 6})
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, 6, cfg.BatchSize)
		assert.Equal(t, ":8080", cfg.HealthAddr)
		assert.Equal(t, 30*time.Second, cfg.PollTimeout)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			DatabaseDSN: "vault.db",
			BatchSize:   2,
			SessionTTL:  3 * time.Minute,
			S3Bucket:    "s3bucket",
		}
		parseJson(cfg)

		assert.Equal(t, "vault.db", cfg.DatabaseDSN)
		assert.Equal(t, 2, cfg.BatchSize)
		assert.Equal(t, 3*time.Minute, cfg.SessionTTL)
		assert.Equal(t, "s3bucket", cfg.S3Bucket)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
