// Package config loads server configuration from environment variables with
// defaults, and validates it on startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"

	"github.com/JonMunkholm/listcutter/internal/core"
)

// Config holds all server configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Limits   LimitsConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout bounds reading the request, including the uploaded file.
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"60s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests. It should exceed
	// LIMIT_TIMEOUT so budget errors reach the client before the middleware fires.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"45s"`
}

// DatabaseConfig holds the optional metadata database. Without a URL the
// server still analyses uploads but saved files and run history are disabled.
type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL" envAlt:"DB_URL"`
	MaxConns int    `env:"DB_MAX_CONNS" default:"10"`

	// Migrate creates the metadata tables on startup.
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// Enabled reports whether a database URL is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// StorageConfig selects where saved CSV files live: an S3-compatible bucket
// when S3_ENDPOINT is set, otherwise a local directory.
type StorageConfig struct {
	Dir string `env:"STORAGE_DIR" default:"./data/files"`

	Endpoint  string `env:"S3_ENDPOINT"`
	Bucket    string `env:"S3_BUCKET"`
	AccessKey string `env:"S3_ACCESS_KEY" envAlt:"AWS_ACCESS_KEY_ID"`
	SecretKey string `env:"S3_SECRET_KEY" envAlt:"AWS_SECRET_ACCESS_KEY"`
	Region    string `env:"S3_REGION" default:"us-east-1"`
	UseSSL    bool   `env:"S3_USE_SSL" default:"true"`
}

// UseObjectStore reports whether saved files are kept in a bucket.
func (c *StorageConfig) UseObjectStore() bool {
	return c.Endpoint != ""
}

// LimitsConfig holds the analysis budgets and the concurrency limiter.
type LimitsConfig struct {
	MaxBytes        int64         `env:"LIMIT_MAX_BYTES" default:"52428800"`
	MaxRows         int           `env:"LIMIT_MAX_ROWS" default:"100000"`
	Timeout         time.Duration `env:"LIMIT_TIMEOUT" default:"25s"`
	CheckInterval   int           `env:"LIMIT_CHECK_INTERVAL" default:"5000"`
	MaxUniqueValues int           `env:"LIMIT_MAX_UNIQUE_VALUES" default:"1000"`
	SampleRows      int           `env:"LIMIT_SAMPLE_ROWS" default:"1000"`
	DefaultPageSize int           `env:"LIMIT_DEFAULT_PAGE_SIZE" default:"1000"`
	MaxPageSize     int           `env:"LIMIT_MAX_PAGE_SIZE" default:"10000"`

	// MaxConcurrent is the number of analyses that may run at once.
	MaxConcurrent int           `env:"ANALYSIS_MAX_CONCURRENT" default:"4"`
	MaxWaitTime   time.Duration `env:"ANALYSIS_MAX_WAIT_TIME" default:"10s"`

	// LenientFilters makes unknown operators and bad regex patterns match
	// nothing instead of failing the request.
	LenientFilters bool `env:"FILTER_LENIENT" default:"false"`
}

// CoreLimits converts the settings into engine budgets.
func (c *LimitsConfig) CoreLimits() core.Limits {
	return core.Limits{
		MaxBytes:        c.MaxBytes,
		MaxRows:         c.MaxRows,
		Timeout:         c.Timeout,
		CheckInterval:   c.CheckInterval,
		MaxUniqueValues: c.MaxUniqueValues,
		SampleRows:      c.SampleRows,
		DefaultPageSize: c.DefaultPageSize,
		MaxPageSize:     c.MaxPageSize,
	}
}

// RateLimitConfig holds per-client rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`
	Burst             int  `env:"RATE_LIMIT_BURST" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`
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
