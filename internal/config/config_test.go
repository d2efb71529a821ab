package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	assert.Empty(t, cfg.AuthSecret)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("SUGGESTION_DELAY_MS", "")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "-5")
	t.Setenv("SEED_ADMIN_PASSWORD", "")

	cfg := Load()
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, time.Second, cfg.SuggestionDelay)
	assert.Equal(t, 480*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, "admin123", cfg.SeedAdminPassword)
	assert.True(t, cfg.UsingDefaultPassword)
	assert.Equal(t, ":8080", Config{Port: "8080"}.Address())
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("SUGGESTION_DELAY_MS", "250")
	t.Setenv("SEED_ADMIN_PASSWORD", "s3cret-admin")
	t.Setenv("SEED_USER_PASSWORD", "s3cret-user")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, 250*time.Millisecond, cfg.SuggestionDelay)
	assert.Equal(t, "s3cret-user", cfg.SeedUserPassword)
	assert.False(t, cfg.UsingDefaultPassword)
}

func TestLocationFallsBackToLocal(t *testing.T) {
	assert.Equal(t, time.Local, Config{StoreTimezone: "Nowhere/Invalid"}.Location())
	assert.Equal(t, time.UTC, Config{StoreTimezone: "UTC"}.Location())
}

func TestLogErrorWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("debug")
	logger.SetOutput(&buf)

	LogError(logger, "service", "Checkout", "persist", map[string]string{"key": "pos-products"}, errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry["msg"])
	assert.Equal(t, "Checkout", entry["funcName"])
	assert.Equal(t, logrus.ErrorLevel.String(), entry["level"])
}
