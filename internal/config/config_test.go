package config

import (
	"os"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("PREFLIGHT_STORE", "Memory")
	t.Setenv("PREFLIGHT_DISABLED_ACTIONS", "generate_copy, ,override_red")
	t.Setenv("PREFLIGHT_EXPORT_URL_EXPIRY_SEC", "60")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, "memory", cfg.Preflight.StoreDriver)
	assert.Equal(t, []string{"generate_copy", "override_red"}, cfg.Preflight.DisabledActions)
	assert.Equal(t, time.Minute, cfg.Preflight.ExportPresignExpiry)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PREFLIGHT_STORE", "")
	t.Setenv("PREFLIGHT_DISABLED_ACTIONS", "")
	t.Setenv("PREFLIGHT_OCR_CODE_PREFIX", "")
	t.Setenv("MINIO_ENDPOINT", "")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.Preflight.StoreDriver)
	assert.Empty(t, cfg.Preflight.DisabledActions)
	assert.Equal(t, "OCR_", cfg.Preflight.OCRCodePrefix)
	assert.Equal(t, 8, cfg.Preflight.BatchEvalConcurrency)
	assert.False(t, cfg.MinIO.Enabled())
}

func TestLocation(t *testing.T) {
	cfg := &AppConfig{Timezone: "Asia/Jakarta"}
	assert.Equal(t, "Asia/Jakarta", cfg.Location().String())

	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("TEST_LIST_VAR", " a,b ,,c ")
	assert.Equal(t, []string{"a", "b", "c"}, getEnvList("TEST_LIST_VAR"))

	t.Setenv("TEST_LIST_VAR", "")
	assert.Nil(t, getEnvList("TEST_LIST_VAR"))
}
