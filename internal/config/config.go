// Package config implements TOML settings loading and validation for
// onedrive-batch. Every required connection parameter is checked once at
// load time so a misconfigured client fails before any network call is
// attempted, and unknown keys are fatal — silently ignoring a typo in a
// config file leads to hard-to-debug behavior.
package config

import (
	"strings"
	"time"
)

// Default values for the optional settings.
const (
	defaultRefreshInterval = "1h"
	defaultConnectAttempts = 50
	defaultConnectDelay    = "500ms"
	defaultLogLevel        = "info"
)

// Config holds all connection parameters for the OneDrive client.
// Required fields have no defaults; Validate rejects a Config in which
// any of them is missing.
type Config struct {
	// Required.
	MaxConcurrency int      `toml:"max_concurrency"`
	RefreshToken   string   `toml:"refresh_token"`
	BaseURL        string   `toml:"base_url"`
	AuthURL        string   `toml:"auth_url"`
	ClientID       string   `toml:"client_id"`
	Permissions    []string `toml:"permissions"`
	RedirectURI    string   `toml:"redirect_uri"`

	// Optional, defaulted.
	RefreshInterval   string  `toml:"refresh_interval"`
	ConnectAttempts   int     `toml:"connect_attempts"`
	ConnectDelay      string  `toml:"connect_delay"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TokenCache        string  `toml:"token_cache"`
	LogLevel          string  `toml:"log_level"`
}

// DefaultConfig returns a Config populated with defaults for the optional
// settings. Used as the starting point for TOML decoding so unset fields
// retain their defaults.
func DefaultConfig() *Config {
	return &Config{
		RefreshInterval: defaultRefreshInterval,
		ConnectAttempts: defaultConnectAttempts,
		ConnectDelay:    defaultConnectDelay,
		LogLevel:        defaultLogLevel,
	}
}

// Scope returns the OAuth2 scope string: the permission list joined with
// spaces, as the token endpoint expects in the form body.
func (c *Config) Scope() string {
	return strings.Join(c.Permissions, " ")
}

// RefreshEvery returns the parsed refresh interval. Validate has already
// checked the string, so a parse failure cannot occur on a validated Config.
func (c *Config) RefreshEvery() time.Duration {
	d, _ := time.ParseDuration(c.RefreshInterval)
	return d
}

// ConnectRetryDelay returns the parsed delay between connection attempts.
func (c *Config) ConnectRetryDelay() time.Duration {
	d, _ := time.ParseDuration(c.ConnectDelay)
	return d
}
