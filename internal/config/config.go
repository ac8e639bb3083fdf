package config

import (
	"fmt"
	"time"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

type Config struct {
	Env                  string
	LogLevel             string
	LogAddSource         bool
	DatabaseURL          string
	StoreDriver          string
	DBMinConns           int
	DBMaxConns           int
	HTTPAddr             string
	HTTPShutdownTimeout  time.Duration
	ZoomWebhookSecret    string
	ZoomVerifySignature  bool
	APIKey               string
	SessionsDefaultLimit int
	SessionsMaxLimit     int
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverSQLite:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverSQLite, c.StoreDriver)
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS (%d), got %d", c.DBMaxConns, c.DBMinConns)
	}
	if c.HTTPShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT_SEC must be positive, got %s", c.HTTPShutdownTimeout)
	}
	if c.SessionsDefaultLimit <= 0 {
		return fmt.Errorf("SESSIONS_DEFAULT_LIMIT must be positive, got %d", c.SessionsDefaultLimit)
	}
	if c.SessionsMaxLimit < c.SessionsDefaultLimit {
		return fmt.Errorf("SESSIONS_MAX_LIMIT (%d) must not be below SESSIONS_DEFAULT_LIMIT (%d)", c.SessionsMaxLimit, c.SessionsDefaultLimit)
	}
	if c.ZoomVerifySignature && c.ZoomWebhookSecret == "" {
		return fmt.Errorf("ZOOM_WEBHOOK_SECRET is required when ZOOM_VERIFY_SIGNATURE=true")
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "HTTP_ADDR", value: c.HTTPAddr},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// APIKeyEnabled reports whether query endpoints require X-API-Key.
func (c *Config) APIKeyEnabled() bool {
	return c.APIKey != ""
}
