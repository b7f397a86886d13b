package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig carries everything decided on the command line rather than in
// the configuration file: where the config lives, how to log, how long the
// shutdown drain may take.
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	Debug           bool
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

// parseFlags reads the command line. Every flag defaults to its CANLINK_*
// environment variable so containerized deployments can skip flags entirely.
func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	configDefault := envOr("CANLINK_CONFIG", "")
	flag.StringVar(&cfg.ConfigPath, "config", configDefault,
		"Path to configuration file, built-in defaults when empty (env: CANLINK_CONFIG)")
	flag.StringVar(&cfg.ConfigPath, "c", configDefault, "Shorthand for -config")

	flag.StringVar(&cfg.LogLevel, "log-level", envOr("CANLINK_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: CANLINK_LOG_LEVEL)")
	flag.StringVar(&cfg.LogFormat, "log-format", envOr("CANLINK_LOG_FORMAT", "json"),
		"Log format: json, text (env: CANLINK_LOG_FORMAT)")
	flag.BoolVar(&cfg.Debug, "debug", envBool("CANLINK_DEBUG"),
		"Force debug logging (env: CANLINK_DEBUG)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		envDuration("CANLINK_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Window for the send-protocol drain before teardown (env: CANLINK_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Shorthand for -version")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Print detailed help and exit")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Shorthand for -help")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = printDetailedHelp
	flag.Parse()

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	return cfg
}

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "text": true}
)

// validateFlags rejects bad flag combinations before any component starts.
func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file %s: %w", cfg.ConfigPath, err)
		}
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	if !validLogFormats[cfg.LogFormat] {
		return fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %v", cfg.ShutdownTimeout)
	}
	return nil
}

func printDetailedHelp() {
	fmt.Printf(`%s - Vehicle CAN Interface Daemon

canlinkd owns one CAN channel: it decodes vehicle reports into chassis
state, encodes commands onto the bus, and bridges both to NATS telemetry
subjects.

Usage:
  %s [flags]

Flags:
`, appName, appName)
	flag.PrintDefaults()
	fmt.Printf(`
Examples:
  # Run against config.yaml on can0
  %s -config config.yaml

  # Built-in defaults, overriding the channel from the environment
  CANLINK_TRANSPORT_CHANNEL=can1 %s

  # Check a config file without touching the bus
  %s -config config.yaml -validate

Environment:
  Every flag falls back to its CANLINK_* variable. Configuration file
  fields have their own overrides, see the config package.
`, appName, appName, appName)
}

// envOr returns the variable's value, or fallback when unset or empty.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}
