package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORTAL_URL", "PORTAL_TIMEOUT", "REDIRECT_DELAY", "SESSION_DB",
		"TELEGRAM_TOKEN", "CHAT_ID", "DIGEST_CRON", "TIMEZONE", "HEALTH_ADDR", "LOG_LEVEL",
	} {
		// Setenv registers the restore; Unsetenv lets envconfig defaults apply.
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestNew_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/api", cfg.Portal.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Portal.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Portal.RedirectDelay)
	assert.Equal(t, "courtside.db", cfg.Store.Path)
	assert.Equal(t, "America/Chicago", cfg.Digest.Timezone)
	assert.Equal(t, ":8080", cfg.HealthAddr)
	assert.Empty(t, cfg.Digest.Cron)
	assert.Error(t, cfg.TelegramBot.RequireBot())
}

func TestNew_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORTAL_URL", "https://portal.example.com/api")
	t.Setenv("PORTAL_TIMEOUT", "3s")
	t.Setenv("REDIRECT_DELAY", "500ms")
	t.Setenv("SESSION_DB", "/tmp/session.db")
	t.Setenv("TELEGRAM_TOKEN", "bot-token")
	t.Setenv("CHAT_ID", "42")
	t.Setenv("DIGEST_CRON", "30 7 * * 1")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "https://portal.example.com/api", cfg.Portal.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Portal.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Portal.RedirectDelay)
	assert.Equal(t, "/tmp/session.db", cfg.Store.Path)
	assert.Equal(t, "bot-token", cfg.TelegramBot.Token)
	assert.Equal(t, int64(42), cfg.TelegramBot.ChatID)
	assert.NoError(t, cfg.TelegramBot.RequireBot())

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Portal:   Portal{BaseURL: "http://localhost:5000/api", Timeout: time.Second, RedirectDelay: 2 * time.Second},
			LogLevel: "info",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "relative url", mutate: func(c *Config) { c.Portal.BaseURL = "/api" }, wantErr: "PORTAL_URL"},
		{name: "ftp url", mutate: func(c *Config) { c.Portal.BaseURL = "ftp://host/api" }, wantErr: "PORTAL_URL"},
		{name: "zero timeout", mutate: func(c *Config) { c.Portal.Timeout = 0 }, wantErr: "PORTAL_TIMEOUT"},
		{name: "zero redirect delay", mutate: func(c *Config) { c.Portal.RedirectDelay = 0 }, wantErr: "REDIRECT_DELAY"},
		{name: "unbounded redirect delay", mutate: func(c *Config) { c.Portal.RedirectDelay = time.Minute }, wantErr: "REDIRECT_DELAY"},
		{name: "bad cron", mutate: func(c *Config) { c.Digest.Cron = "every monday" }, wantErr: "DIGEST_CRON"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
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

func TestRequireBot(t *testing.T) {
	assert.Error(t, TelegramBot{ChatID: 1}.RequireBot())
	assert.Error(t, TelegramBot{Token: "x"}.RequireBot())
	assert.NoError(t, TelegramBot{Token: "x", ChatID: 1}.RequireBot())
}
