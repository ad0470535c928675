package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validKey() string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_CHANNEL", "-100200")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.BotToken)
	assert.Equal(t, "-100200", cfg.AdminChannel)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, time.Duration(0), cfg.SessionTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4096, cfg.MaxInputSize)
	assert.True(t, cfg.IdleCancelAck)
	assert.Equal(t, 30, cfg.PollTimeoutSec)
	assert.NoError(t, cfg.ValidateTelegram())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("INTAKE_STORE", "redis")
	t.Setenv("INTAKE_SESSION_TTL", "24h")
	t.Setenv("INTAKE_IDLE_CANCEL_ACK", "false")
	t.Setenv("INTAKE_ENCRYPTION_FALLBACK_KEYS", "a,b")
	t.Setenv("INTAKE_HTTP_TOKEN", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.HTTPToken)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.IdleCancelAck)
	assert.Equal(t, []string{"a", "b"}, cfg.FallbackKeys)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("INTAKE_TEST_FORM_PATH_ONLY=1\nINTAKE_FORM=/etc/intake/form.yaml\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("INTAKE_FORM")
		os.Unsetenv("INTAKE_TEST_FORM_PATH_ONLY")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/etc/intake/form.yaml", cfg.FormPath)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoad_BadValue(t *testing.T) {
	t.Setenv("INTAKE_REDIS_DB", "zero")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateTelegram_Missing(t *testing.T) {
	cfg := &Config{Store: StoreMemory, MaxInputSize: 1, LogLevel: "info"}
	err := cfg.ValidateTelegram()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOT_TOKEN is required")
	assert.Contains(t, err.Error(), "ADMIN_CHANNEL is required")
}

func TestValidateTelegram_NonNumericAdmin(t *testing.T) {
	cfg := &Config{BotToken: "t", AdminChannel: "@admins", Store: StoreMemory, MaxInputSize: 1}
	err := cfg.ValidateTelegram()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "numeric chat id")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Valid", func(*Config) {}, ""},
		{"Unknown Store", func(c *Config) { c.Store = "bolt" }, "INTAKE_STORE"},
		{"Negative TTL", func(c *Config) { c.SessionTTL = -time.Second }, "INTAKE_SESSION_TTL"},
		{"Zero Input Size", func(c *Config) { c.MaxInputSize = 0 }, "INTAKE_MAX_INPUT_SIZE"},
		{"Bad Log Level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{"Bad Log Format", func(c *Config) { c.LogFormat = "xml" }, "log format"},
		{"Short Key", func(c *Config) { c.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short")) }, "32 bytes"},
		{"Fallback Without Active", func(c *Config) { c.FallbackKeys = []string{validKey()} }, "without INTAKE_ENCRYPTION_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Store: StoreMemory, MaxInputSize: 4096, LogLevel: "info", LogFormat: "text"}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestKeys(t *testing.T) {
	cfg := &Config{EncryptionKey: validKey(), FallbackKeys: []string{validKey()}}
	active, fallback, err := cfg.Keys()
	require.NoError(t, err)
	assert.Len(t, active, 32)
	assert.Len(t, fallback, 1)

	active, fallback, err = (&Config{}).Keys()
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.Nil(t, fallback)
}
