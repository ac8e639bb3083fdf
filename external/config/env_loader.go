package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/attendance/internal/config"
)

type envConfig struct {
	Env                    string `env:"ENV" envDefault:"production"`
	LogLevel               string `env:"LOG_LEVEL"`
	LogAddSource           bool   `env:"LOG_ADD_SOURCE" envDefault:"false"`
	DatabaseURL            string `env:"DATABASE_URL,required"`
	StoreDriver            string `env:"STORE_DRIVER" envDefault:"postgres"`
	DBMinConns             int    `env:"DB_MIN_CONNS" envDefault:"1"`
	DBMaxConns             int    `env:"DB_MAX_CONNS" envDefault:"10"`
	HTTPAddr               string `env:"HTTP_ADDR" envDefault:":8080"`
	HTTPShutdownTimeoutSec int    `env:"HTTP_SHUTDOWN_TIMEOUT_SEC" envDefault:"10"`
	ZoomWebhookSecret      string `env:"ZOOM_WEBHOOK_SECRET"`
	ZoomVerifySignature    bool   `env:"ZOOM_VERIFY_SIGNATURE" envDefault:"false"`
	APIKey                 string `env:"API_KEY"`
	SessionsDefaultLimit   int    `env:"SESSIONS_DEFAULT_LIMIT" envDefault:"20"`
	SessionsMaxLimit       int    `env:"SESSIONS_MAX_LIMIT" envDefault:"200"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}
	return build(raw)
}

// LoadFrom reads configuration from the given variables instead of the
// process environment.
func LoadFrom(environment map[string]string) (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.ParseWithOptions(&raw, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}
	return build(raw)
}

func build(raw envConfig) (*internalconfig.Config, error) {
	cfg := &internalconfig.Config{
		Env:                  raw.Env,
		LogLevel:             raw.LogLevel,
		LogAddSource:         raw.LogAddSource,
		DatabaseURL:          raw.DatabaseURL,
		StoreDriver:          raw.StoreDriver,
		DBMinConns:           raw.DBMinConns,
		DBMaxConns:           raw.DBMaxConns,
		HTTPAddr:             raw.HTTPAddr,
		HTTPShutdownTimeout:  time.Duration(raw.HTTPShutdownTimeoutSec) * time.Second,
		ZoomWebhookSecret:    raw.ZoomWebhookSecret,
		ZoomVerifySignature:  raw.ZoomVerifySignature,
		APIKey:               raw.APIKey,
		SessionsDefaultLimit: raw.SessionsDefaultLimit,
		SessionsMaxLimit:     raw.SessionsMaxLimit,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
