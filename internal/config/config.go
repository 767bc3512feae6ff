// Package config loads ucsv settings from environment variables. Every
// setting has a default except DATABASE_URL, which only the load and dump
// commands need.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Codec    CodecConfig
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// CodecConfig controls dialect resolution and writer buffering.
type CodecConfig struct {
	// DialectsFile is a YAML file of extra extension bindings, loaded at startup
	DialectsFile string `env:"UCSV_DIALECTS_FILE"`

	// WatchDialects reloads DialectsFile when it changes (serve only)
	WatchDialects bool `env:"UCSV_WATCH_DIALECTS" default:"false"`

	// TxtEncoding overrides the encoding bound to .txt (default: utf-16)
	TxtEncoding string `env:"UCSV_TXT_ENCODING" default:"utf-16"`

	// WriteBuffer is the writer buffer size in bytes (default: 16KiB)
	WriteBuffer int `env:"UCSV_WRITE_BUFFER" default:"16384"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout bounds reading the request body (default: 60s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"60s"`

	// WriteTimeout is 0 so large conversions can stream (default: 0s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout per request (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// DatabaseConfig holds PostgreSQL settings for load and dump.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// DB_URL is accepted for compatibility.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns int `env:"DB_MAX_CONNS" default:"4"`
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// BatchSize is rows per COPY (default: 1000)
	BatchSize int `env:"DB_BATCH_SIZE" default:"1000"`
}

// UploadConfig limits request bodies handled by the HTTP surface.
type UploadConfig struct {
	// MaxBodySize is the largest accepted body in bytes (default: 100MB)
	MaxBodySize int64 `env:"UPLOAD_MAX_BODY_SIZE" default:"104857600"`

	// MaxConcurrent is the number of conversions run at once (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long a request waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Forwarded-For headers are believed
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// APIKeys is a comma-separated list of accepted X-API-Key values
	APIKeys []string `env:"API_KEYS"`

	// RequireAPIKey rejects /api requests without a valid key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
