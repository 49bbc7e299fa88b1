package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Sentinel errors for configuration failures.
// Use errors.Is(err, config.ErrMissingSetting) to check.
var (
	ErrMissingSetting = errors.New("config: missing required setting")
	ErrInvalidSetting = errors.New("config: invalid setting")
	ErrUnknownSetting = errors.New("config: unknown setting")
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateRequired(cfg)...)
	errs = append(errs, validateOptional(cfg)...)

	return errors.Join(errs...)
}

func validateRequired(cfg *Config) []error {
	var errs []error

	if cfg.MaxConcurrency == 0 {
		errs = append(errs, fmt.Errorf("%w: max_concurrency", ErrMissingSetting))
	} else if cfg.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("%w: max_concurrency must be positive, got %d",
			ErrInvalidSetting, cfg.MaxConcurrency))
	}

	if cfg.RefreshToken == "" {
		errs = append(errs, fmt.Errorf("%w: refresh_token", ErrMissingSetting))
	}

	errs = append(errs, validateURLSetting("base_url", cfg.BaseURL)...)
	errs = append(errs, validateURLSetting("auth_url", cfg.AuthURL)...)

	if cfg.ClientID == "" {
		errs = append(errs, fmt.Errorf("%w: client_id", ErrMissingSetting))
	}

	if len(cfg.Permissions) == 0 {
		errs = append(errs, fmt.Errorf("%w: permissions", ErrMissingSetting))
	}

	if cfg.RedirectURI == "" {
		errs = append(errs, fmt.Errorf("%w: redirect_uri", ErrMissingSetting))
	}

	return errs
}

func validateURLSetting(name, value string) []error {
	if value == "" {
		return []error{fmt.Errorf("%w: %s", ErrMissingSetting, name)}
	}

	if _, err := url.ParseRequestURI(value); err != nil {
		return []error{fmt.Errorf("%w: %s: %v", ErrInvalidSetting, name, err)}
	}

	return nil
}

func validateOptional(cfg *Config) []error {
	var errs []error

	if _, err := time.ParseDuration(cfg.RefreshInterval); err != nil {
		errs = append(errs, fmt.Errorf("%w: refresh_interval: %v", ErrInvalidSetting, err))
	}

	if _, err := time.ParseDuration(cfg.ConnectDelay); err != nil {
		errs = append(errs, fmt.Errorf("%w: connect_delay: %v", ErrInvalidSetting, err))
	}

	if cfg.ConnectAttempts < 1 {
		errs = append(errs, fmt.Errorf("%w: connect_attempts must be at least 1, got %d",
			ErrInvalidSetting, cfg.ConnectAttempts))
	}

	if cfg.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("%w: requests_per_second must not be negative, got %g",
			ErrInvalidSetting, cfg.RequestsPerSecond))
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: log_level %q (want debug, info, warn, or error)",
			ErrInvalidSetting, cfg.LogLevel))
	}

	return errs
}
