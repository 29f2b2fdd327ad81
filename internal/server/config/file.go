package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/dailydiary/internal/timex"
)

// FileConfig is the on-disk shape of the configuration. Durations accept
// strings such as "15m" in both JSON and TOML.
//
// Zero values leave the current setting untouched, so a file only has to
// name what it overrides.
type FileConfig struct {
	HTTPAddr             string         `json:"http_addr" toml:"http_addr"`
	DatabaseDSN          string         `json:"database_dsn" toml:"database_dsn"`
	SecretKey            string         `json:"secret_key" toml:"secret_key"`
	SessionValidity      timex.Duration `json:"session_validity" toml:"session_validity"`
	CookieName           string         `json:"cookie_name" toml:"cookie_name"`
	CookieSecure         *bool          `json:"cookie_secure" toml:"cookie_secure"`
	LoginRatePerMinute   int            `json:"login_rate_per_minute" toml:"login_rate_per_minute"`
	LoginBurst           int            `json:"login_burst" toml:"login_burst"`
	SessionPurgeInterval timex.Duration `json:"session_purge_interval" toml:"session_purge_interval"`
	LogLevel             string         `json:"log_level" toml:"log_level"`
	S3RootUser           string         `json:"s3_root_user" toml:"s3_root_user"`
	S3RootPassword       string         `json:"s3_root_password" toml:"s3_root_password"`
	S3Bucket             string         `json:"s3_bucket" toml:"s3_bucket"`
	S3Region             string         `json:"s3_region" toml:"s3_region"`
	S3BaseEndpoint       string         `json:"s3_base_endpoint" toml:"s3_base_endpoint"`
}

// parseFile overlays the file at path onto config. Files ending in .toml are
// decoded as TOML, anything else as JSON. An empty path is a no-op; an
// unreadable or malformed file panics.
func parseFile(config *Config, path string) {
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc := &FileConfig{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), fc); err != nil {
			panic(err)
		}
	} else if err := json.Unmarshal(data, fc); err != nil {
		panic(err)
	}

	fc.apply(config)
}

func (fc *FileConfig) apply(config *Config) {
	setString(&config.HTTPAddr, fc.HTTPAddr)
	setString(&config.DatabaseDSN, fc.DatabaseDSN)
	setString(&config.SecretKey, fc.SecretKey)
	if fc.SessionValidity.Duration > 0 {
		config.SessionValidity = fc.SessionValidity.Duration
	}
	setString(&config.CookieName, fc.CookieName)
	if fc.CookieSecure != nil {
		config.CookieSecure = *fc.CookieSecure
	}
	if fc.LoginRatePerMinute > 0 {
		config.LoginRatePerMinute = fc.LoginRatePerMinute
	}
	if fc.LoginBurst > 0 {
		config.LoginBurst = fc.LoginBurst
	}
	if fc.SessionPurgeInterval.Duration > 0 {
		config.SessionPurgeInterval = fc.SessionPurgeInterval.Duration
	}
	setString(&config.LogLevel, fc.LogLevel)
	setString(&config.S3RootUser, fc.S3RootUser)
	setString(&config.S3RootPassword, fc.S3RootPassword)
	setString(&config.S3Bucket, fc.S3Bucket)
	setString(&config.S3Region, fc.S3Region)
	setString(&config.S3BaseEndpoint, fc.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
