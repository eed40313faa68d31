package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/flagx"
	"github.com/joho/godotenv"
)

// Environment variable names. "Token" is accepted as a fallback for the bot
// token for deployments that predate the prefixed names.
const (
	EnvBotToken        = "FILEKEEPER_BOT_TOKEN"
	EnvLegacyBotToken  = "Token"
	EnvSuperOwnerID    = "FILEKEEPER_SUPER_OWNER_ID"
	EnvDatabaseDSN     = "FILEKEEPER_DATABASE_DSN"
	EnvHealthAddr      = "FILEKEEPER_HEALTH_ADDR"
	EnvLogLevel        = "FILEKEEPER_LOG_LEVEL"
	EnvPollTimeout     = "FILEKEEPER_POLL_TIMEOUT"
	EnvBatchSize       = "FILEKEEPER_BATCH_SIZE"
	EnvRawBytesMaxSize = "FILEKEEPER_RAW_BYTES_MAX_SIZE"
	EnvSessionTTL      = "FILEKEEPER_SESSION_TTL"
	EnvRedisAddr       = "FILEKEEPER_REDIS_ADDR"
	EnvRedisPassword   = "FILEKEEPER_REDIS_PASSWORD"
	EnvRedisDB         = "FILEKEEPER_REDIS_DB"
	EnvAMQPURL         = "FILEKEEPER_AMQP_URL"
	EnvS3RootUser      = "FILEKEEPER_S3_ROOT_USER"
	EnvS3RootPassword  = "FILEKEEPER_S3_ROOT_PASSWORD"
	EnvS3Bucket        = "FILEKEEPER_S3_BUCKET"
	EnvS3Region        = "FILEKEEPER_S3_REGION"
	EnvS3BaseEndpoint  = "FILEKEEPER_S3_BASE_ENDPOINT"
)

const defaultEnvFile = ".env"

// parseEnv loads the .env file (named by -envfile, ".env" by default; a
// missing default file is fine) and overlays environment variables onto
// config. Variables already set in the process environment win over the file.
// Malformed numeric values panic, like a broken JSON file does.
func parseEnv(config *Config) {
	path := flagx.EnvFile()
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	if v, ok := lookup(EnvLegacyBotToken); ok {
		config.BotToken = v
	}
	if v, ok := lookup(EnvBotToken); ok {
		config.BotToken = v
	}
	if v, ok := lookup(EnvSuperOwnerID); ok {
		config.SuperOwnerID = mustInt64(EnvSuperOwnerID, v)
	}
	if v, ok := lookup(EnvDatabaseDSN); ok {
		config.DatabaseDSN = v
	}
	if v, ok := lookup(EnvHealthAddr); ok {
		config.HealthAddr = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		config.LogLevel = v
	}
	if v, ok := lookup(EnvPollTimeout); ok {
		config.PollTimeout = mustDuration(EnvPollTimeout, v)
	}
	if v, ok := lookup(EnvBatchSize); ok {
		config.BatchSize = int(mustInt64(EnvBatchSize, v))
	}
	if v, ok := lookup(EnvRawBytesMaxSize); ok {
		config.RawBytesMaxSize = mustInt64(EnvRawBytesMaxSize, v)
	}
	if v, ok := lookup(EnvSessionTTL); ok {
		config.SessionTTL = mustDuration(EnvSessionTTL, v)
	}
	if v, ok := lookup(EnvRedisAddr); ok {
		config.RedisAddr = v
	}
	if v, ok := lookup(EnvRedisPassword); ok {
		config.RedisPassword = v
	}
	if v, ok := lookup(EnvRedisDB); ok {
		config.RedisDB = int(mustInt64(EnvRedisDB, v))
	}
	if v, ok := lookup(EnvAMQPURL); ok {
		config.AMQPURL = v
	}
	if v, ok := lookup(EnvS3RootUser); ok {
		config.S3RootUser = v
	}
	if v, ok := lookup(EnvS3RootPassword); ok {
		config.S3RootPassword = v
	}
	if v, ok := lookup(EnvS3Bucket); ok {
		config.S3Bucket = v
	}
	if v, ok := lookup(EnvS3Region); ok {
		config.S3Region = v
	}
	if v, ok := lookup(EnvS3BaseEndpoint); ok {
		config.S3BaseEndpoint = v
	}
}

// lookup returns a non-empty environment value.
func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func mustInt64(key, v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		panic("invalid int for " + key + ": " + strconv.Quote(v))
	}
	return n
}

func mustDuration(key, v string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		panic("invalid duration for " + key + ": " + strconv.Quote(v))
	}
	return d
}
