package config

import (
	"errors"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// loadDotEnv exports the variables of a .env file into the process
// environment. Variables already set win. A missing file is ignored.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}
}

// parseEnv overlays DIARY_* variables onto config. lookup is os.LookupEnv
// outside of tests.
func parseEnv(config *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				panic(err)
			}
			*dst = n
		}
	}

	str("DIARY_HTTP_ADDR", &config.HTTPAddr)
	str("DIARY_DATABASE_DSN", &config.DatabaseDSN)
	str("DIARY_SECRET_KEY", &config.SecretKey)
	dur("DIARY_SESSION_VALIDITY", &config.SessionValidity)
	str("DIARY_COOKIE_NAME", &config.CookieName)
	if v, ok := lookup("DIARY_COOKIE_SECURE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		config.CookieSecure = b
	}
	num("DIARY_LOGIN_RATE", &config.LoginRatePerMinute)
	num("DIARY_LOGIN_BURST", &config.LoginBurst)
	dur("DIARY_SESSION_PURGE_INTERVAL", &config.SessionPurgeInterval)
	str("DIARY_LOG_LEVEL", &config.LogLevel)
	str("DIARY_S3_USER", &config.S3RootUser)
	str("DIARY_S3_PASSWORD", &config.S3RootPassword)
	str("DIARY_S3_BUCKET", &config.S3Bucket)
	str("DIARY_S3_REGION", &config.S3Region)
	str("DIARY_S3_ENDPOINT", &config.S3BaseEndpoint)
}
