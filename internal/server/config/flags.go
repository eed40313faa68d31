package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-t string   Telegram bot token
//	-o int      super owner Telegram user id
//	-d string   PostgreSQL DSN
//	-a string   health endpoint bind address (empty disables)
//	-l string   log level
//	-w int      long polling timeout, seconds
//	-k int      delivery batch size
//	-m int      raw copy size limit, bytes (0 disables raw copies)
//	-s int      password challenge TTL, minutes (0 means no expiry)
//	-r string   Redis address
//	-q string   AMQP URL
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-t", "-o", "-d", "-a", "-l", "-w", "-k", "-m", "-s", "-r", "-q", "-u", "-p", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.BotToken, "t", config.BotToken, "telegram bot token")
	fs.Int64Var(&config.SuperOwnerID, "o", config.SuperOwnerID, "super owner telegram id")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.HealthAddr, "a", config.HealthAddr, "health endpoint address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	pollTimeout := fs.Int("w", int(config.PollTimeout.Seconds()), "long polling timeout (in seconds)")

	fs.IntVar(&config.BatchSize, "k", config.BatchSize, "delivery batch size")
	fs.Int64Var(&config.RawBytesMaxSize, "m", config.RawBytesMaxSize, "raw copy size limit (in bytes)")

	sessionTTL := fs.Int("s", int(config.SessionTTL.Minutes()), "password challenge ttl (in minutes)")

	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.AMQPURL, "q", config.AMQPURL, "AMQP URL")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Durations are only replaced when given, so sub-unit values from
	// JSON or the environment survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "w":
			config.PollTimeout = time.Duration(*pollTimeout) * time.Second
		case "s":
			config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
		}
	})
}
