package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mtkoskinen/onedrive-batch/internal/batch"
	"github.com/mtkoskinen/onedrive-batch/internal/config"
	"github.com/mtkoskinen/onedrive-batch/internal/driveops"
	"github.com/mtkoskinen/onedrive-batch/internal/graph"
	"github.com/mtkoskinen/onedrive-batch/internal/session"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagVerbose    bool
	flagQuiet      bool
)

// cfg holds the configuration loaded by PersistentPreRunE. Available to all
// subcommands after the root pre-run phase completes.
var cfg *config.Config

// httpClientTimeout bounds every HTTP request so a hung connection cannot
// block a command indefinitely. Generous because content transfers share
// this client.
const httpClientTimeout = 10 * time.Minute

// defaultHTTPClient returns an HTTP client with a sensible timeout.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "onedrive-batch",
		Short:   "Batched OneDrive transfer client",
		Long:    "A OneDrive client that lists, organizes, and transfers files in bounded concurrent batches.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	// Register subcommands.
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newMvCmd())
	cmd.AddCommand(newMvallCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newWhoamiCmd())

	return cmd
}

// loadConfig reads and validates the config file and stores the result in
// cfg for use by subcommands.
func loadConfig() error {
	path := flagConfigPath
	if path == "" {
		path = defaultConfigPath()
	}

	loaded, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg = loaded

	return nil
}

// defaultConfigPath returns the config location used when --config is not
// given.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}

	return filepath.Join(home, ".config", "onedrive-batch", "config.toml")
}

// buildLogger creates an slog.Logger configured by the loaded config and CLI
// flags. Config-file log level provides the baseline; --verbose and --quiet
// override it because CLI flags always win. Text output on a terminal, JSON
// when stderr is redirected.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	// CLI flags override config (highest priority).
	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// newClient assembles the full client stack from the loaded config: session,
// token lifecycle, connection guard, Graph client, and batch engine.
func newClient() (*driveops.Client, error) {
	logger := buildLogger()

	sess := session.New(cfg.RefreshToken)

	life := session.NewLifecycle(sess, defaultHTTPClient(), session.Credentials{
		AuthURL:     cfg.AuthURL,
		ClientID:    cfg.ClientID,
		Scope:       cfg.Scope(),
		RedirectURI: cfg.RedirectURI,
	}, cfg.TokenCache, logger)

	if err := life.Restore(); err != nil {
		return nil, fmt.Errorf("restoring token cache: %w", err)
	}

	graphClient := graph.NewClient(cfg.BaseURL, defaultHTTPClient(), sess, cfg.RequestsPerSecond, logger)

	guard, err := session.NewGuard(sess, life, graphClient, session.RetryPolicy{
		MaxAttempts:     cfg.ConnectAttempts,
		ProbeDelay:      cfg.ConnectRetryDelay(),
		RefreshInterval: cfg.RefreshEvery(),
	}, logger)
	if err != nil {
		return nil, err
	}

	engine, err := batch.New(cfg.MaxConcurrency, logger)
	if err != nil {
		return nil, err
	}

	return driveops.New(graphClient, sess, guard, engine, logger), nil
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
