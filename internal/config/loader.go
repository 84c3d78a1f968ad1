package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads configuration through lookup instead of the process
// environment.
func LoadFrom(lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value, lookup func(string) (string, bool)) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal, lookup); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		// Primary name, then the alternate, then the default.
		value, _ := lookup(envName)
		if alt := field.Tag.Get("envAlt"); value == "" && alt != "" {
			value, _ = lookup(alt)
		}
		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Split comma-separated values, trim whitespace
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Database validation
	if c.Database.Enabled() && c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}

	// Storage validation
	if c.Storage.UseObjectStore() {
		if c.Storage.Bucket == "" {
			errs = append(errs, "S3_BUCKET is required when S3_ENDPOINT is set")
		}
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			errs = append(errs, "S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_ENDPOINT is set")
		}
	} else if c.Storage.Dir == "" {
		errs = append(errs, "STORAGE_DIR must be set when S3_ENDPOINT is not")
	}

	// Limits validation
	positive := []struct {
		name  string
		value int64
	}{
		{"LIMIT_MAX_BYTES", c.Limits.MaxBytes},
		{"LIMIT_MAX_ROWS", int64(c.Limits.MaxRows)},
		{"LIMIT_TIMEOUT", int64(c.Limits.Timeout)},
		{"LIMIT_CHECK_INTERVAL", int64(c.Limits.CheckInterval)},
		{"LIMIT_MAX_UNIQUE_VALUES", int64(c.Limits.MaxUniqueValues)},
		{"LIMIT_SAMPLE_ROWS", int64(c.Limits.SampleRows)},
		{"LIMIT_DEFAULT_PAGE_SIZE", int64(c.Limits.DefaultPageSize)},
		{"LIMIT_MAX_PAGE_SIZE", int64(c.Limits.MaxPageSize)},
		{"ANALYSIS_MAX_CONCURRENT", int64(c.Limits.MaxConcurrent)},
		{"ANALYSIS_MAX_WAIT_TIME", int64(c.Limits.MaxWaitTime)},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, p.name+" must be positive")
		}
	}
	if c.Limits.DefaultPageSize > c.Limits.MaxPageSize {
		errs = append(errs, fmt.Sprintf("LIMIT_DEFAULT_PAGE_SIZE (%d) must be <= LIMIT_MAX_PAGE_SIZE (%d)",
			c.Limits.DefaultPageSize, c.Limits.MaxPageSize))
	}
	if c.Server.RequestTimeout > 0 && c.Server.RequestTimeout <= c.Limits.Timeout {
		errs = append(errs, fmt.Sprintf("SERVER_REQUEST_TIMEOUT (%s) must exceed LIMIT_TIMEOUT (%s)",
			c.Server.RequestTimeout, c.Limits.Timeout))
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.Burst <= 0 {
		errs = append(errs, "RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Credentials are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {Enabled: %v, URL: [MASKED], MaxConns: %d}, ",
		c.Database.Enabled(), c.Database.MaxConns))
	if c.Storage.UseObjectStore() {
		b.WriteString(fmt.Sprintf("Storage: {Endpoint: %q, Bucket: %q, Keys: [MASKED]}, ",
			c.Storage.Endpoint, c.Storage.Bucket))
	} else {
		b.WriteString(fmt.Sprintf("Storage: {Dir: %q}, ", c.Storage.Dir))
	}
	b.WriteString(fmt.Sprintf("Limits: {MaxBytes: %d, MaxRows: %d, Timeout: %s, MaxConcurrent: %d}, ",
		c.Limits.MaxBytes, c.Limits.MaxRows, c.Limits.Timeout, c.Limits.MaxConcurrent))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
