package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/filekeeper/internal/flagx"
	"github.com/dmitrijs2005/filekeeper/internal/timex"
)

// JsonConfig is the on-disk JSON shape of Config. Durations accept both
// strings such as "30s" and integer nanoseconds.
type JsonConfig struct {
	BotToken        string         `json:"bot_token"`
	SuperOwnerID    int64          `json:"super_owner_id"`
	DatabaseDSN     string         `json:"database_dsn"`
	HealthAddr      string         `json:"health_addr"`
	LogLevel        string         `json:"log_level"`
	PollTimeout     timex.Duration `json:"poll_timeout"`
	BatchSize       int            `json:"batch_size"`
	RawBytesMaxSize int64          `json:"raw_bytes_max_size"`
	SessionTTL      timex.Duration `json:"session_ttl"`
	RedisAddr       string         `json:"redis_addr"`
	RedisPassword   string         `json:"redis_password"`
	RedisDB         int            `json:"redis_db"`
	AMQPURL         string         `json:"amqp_url"`
	S3RootUser      string         `json:"s3_root_user"`
	S3RootPassword  string         `json:"s3_root_password"`
	S3Bucket        string         `json:"s3_bucket"`
	S3Region        string         `json:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint"`
}

// parseJson overlays values from the JSON file named by -c/-config onto
// config. Keys missing from the file keep their current values. Without the
// flag nothing is loaded; an unreadable or invalid file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JSONConfigFile()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.BotToken, c.BotToken)
	if c.SuperOwnerID != 0 {
		config.SuperOwnerID = c.SuperOwnerID
	}
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.HealthAddr, c.HealthAddr)
	setString(&config.LogLevel, c.LogLevel)
	if c.PollTimeout.Duration != 0 {
		config.PollTimeout = c.PollTimeout.Duration
	}
	if c.BatchSize != 0 {
		config.BatchSize = c.BatchSize
	}
	if c.RawBytesMaxSize != 0 {
		config.RawBytesMaxSize = c.RawBytesMaxSize
	}
	if c.SessionTTL.Duration != 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != 0 {
		config.RedisDB = c.RedisDB
	}
	setString(&config.AMQPURL, c.AMQPURL)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
