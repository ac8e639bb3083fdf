package config

import (
	"testing"
	"time"

	internalconfig "github.com/foxseedlab/attendance/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"DATABASE_URL": "postgres://localhost/attendance",
	})
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, internalconfig.StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 1, cfg.DBMinConns)
	assert.Equal(t, 10, cfg.DBMaxConns)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.HTTPShutdownTimeout)
	assert.Equal(t, 20, cfg.SessionsDefaultLimit)
	assert.Equal(t, 200, cfg.SessionsMaxLimit)
	assert.False(t, cfg.APIKeyEnabled())
	assert.False(t, cfg.ZoomVerifySignature)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"ENV":                   "development",
		"DATABASE_URL":          "/tmp/attendance.db",
		"STORE_DRIVER":          "sqlite",
		"DB_MAX_CONNS":          "4",
		"API_KEY":               "secret-key",
		"ZOOM_WEBHOOK_SECRET":   "zoom-secret",
		"ZOOM_VERIFY_SIGNATURE": "true",
		"LOG_LEVEL":             "warn",
	})
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, internalconfig.StoreDriverSQLite, cfg.StoreDriver)
	assert.Equal(t, 4, cfg.DBMaxConns)
	assert.Equal(t, "secret-key", cfg.APIKey)
	assert.True(t, cfg.ZoomVerifySignature)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadFrom_MissingDatabaseURL(t *testing.T) {
	_, err := LoadFrom(map[string]string{})
	assert.Error(t, err)
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	_, err := LoadFrom(map[string]string{
		"DATABASE_URL": "postgres://localhost/attendance",
		"DB_MAX_CONNS": "many",
	})
	assert.Error(t, err)

	_, err = LoadFrom(map[string]string{
		"DATABASE_URL": "postgres://localhost/attendance",
		"STORE_DRIVER": "oracle",
	})
	assert.Error(t, err)
}
