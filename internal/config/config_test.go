package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
postgres:
  dsn: "postgres://localhost/db"
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModePolling, c.Telegram.Mode)
	assert.Equal(t, int64(8), c.Telegram.Workers)
	assert.Equal(t, 30*time.Minute, c.WebApp.TTL)
	assert.Equal(t, 30*time.Second, c.Outbound.Timeout)
	assert.False(t, c.Delivery.ForwardOnly)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
postgres:
  dsn: "postgres://localhost/db"
`)
	t.Setenv("APP_DELIVERY_FORWARD_ONLY", "true")
	t.Setenv("APP_TELEGRAM_ADMIN_CHAT_ID", "42")

	c, err := Load(path)
	require.NoError(t, err)
	assert.True(t, c.Delivery.ForwardOnly)
	assert.Equal(t, int64(42), c.Telegram.AdminChatID)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.Telegram.Token = "t"
		c.Telegram.Mode = ModeWebhook
		c.Telegram.Workers = 1
		c.Postgres.DSN = "dsn"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "no token", mutate: func(c *Config) { c.Telegram.Token = "" }, wantErr: true},
		{name: "no dsn", mutate: func(c *Config) { c.Postgres.DSN = "" }, wantErr: true},
		{name: "bad mode", mutate: func(c *Config) { c.Telegram.Mode = "push" }, wantErr: true},
		{name: "no workers", mutate: func(c *Config) { c.Telegram.Workers = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	var c Config
	c.App.Timezone = "Nowhere/Atlantis"
	assert.Equal(t, time.UTC, c.Location())
}
