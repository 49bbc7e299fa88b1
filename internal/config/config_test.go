package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config with all required fields set.
func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.MaxConcurrency = 4
	cfg.RefreshToken = "refresh-token"
	cfg.BaseURL = "https://graph.microsoft.com/v1.0/"
	cfg.AuthURL = "https://login.microsoftonline.com/common/oauth2/v2.0/token"
	cfg.ClientID = "client-id"
	cfg.Permissions = []string{"Files.ReadWrite", "offline_access"}
	cfg.RedirectURI = "http://localhost/"

	return cfg
}

func TestValidate_AllRequiredPresent(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"max_concurrency", func(c *Config) { c.MaxConcurrency = 0 }},
		{"refresh_token", func(c *Config) { c.RefreshToken = "" }},
		{"base_url", func(c *Config) { c.BaseURL = "" }},
		{"auth_url", func(c *Config) { c.AuthURL = "" }},
		{"client_id", func(c *Config) { c.ClientID = "" }},
		{"permissions", func(c *Config) { c.Permissions = nil }},
		{"redirect_uri", func(c *Config) { c.RedirectURI = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingSetting)
			assert.Contains(t, err.Error(), tt.name)
		})
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative concurrency", func(c *Config) { c.MaxConcurrency = -1 }},
		{"bad refresh interval", func(c *Config) { c.RefreshInterval = "an hour" }},
		{"bad connect delay", func(c *Config) { c.ConnectDelay = "soon" }},
		{"zero connect attempts", func(c *Config) { c.ConnectAttempts = 0 }},
		{"negative rate", func(c *Config) { c.RequestsPerSecond = -2 }},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			assert.ErrorIs(t, Validate(cfg), ErrInvalidSetting)
		})
	}
}

func TestValidate_ReportsAllErrorsAtOnce(t *testing.T) {
	cfg := validConfig()
	cfg.RefreshToken = ""
	cfg.ClientID = ""

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh_token")
	assert.Contains(t, err.Error(), "client_id")
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
max_concurrency = 3
refresh_token = "tok"
base_url = "https://graph.microsoft.com/v1.0/"
auth_url = "https://login.microsoftonline.com/common/oauth2/v2.0/token"
client_id = "cid"
permissions = ["Files.ReadWrite"]
redirect_uri = "http://localhost/"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxConcurrency)
	assert.Equal(t, time.Hour, cfg.RefreshEvery())
	assert.Equal(t, 500*time.Millisecond, cfg.ConnectRetryDelay())
	assert.Equal(t, 50, cfg.ConnectAttempts)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_MissingRequiredIsFatal(t *testing.T) {
	path := writeConfigFile(t, `
max_concurrency = 3
refresh_token = "tok"
`)

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrMissingSetting)
}

func TestLoad_UnknownKeyIsFatal(t *testing.T) {
	path := writeConfigFile(t, `
max_concurrency = 3
refresh_token = "tok"
base_url = "https://graph.microsoft.com/v1.0/"
auth_url = "https://login.microsoftonline.com/common/oauth2/v2.0/token"
client_id = "cid"
permissions = ["Files.ReadWrite"]
redirect_uri = "http://localhost/"
max_threds = 5
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownSetting)
	assert.Contains(t, err.Error(), "max_threds")
}

func TestLoad_FileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestScope_JoinsPermissions(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "Files.ReadWrite offline_access", cfg.Scope())
}
