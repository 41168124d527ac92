package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/c360/insight/config"
)

// CLIConfig holds command-line configuration
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

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("INSIGHT_CONFIG", ""),
		"Path to configuration file, empty for defaults (env: INSIGHT_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("INSIGHT_CONFIG", ""),
		"Path to configuration file, empty for defaults (env: INSIGHT_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("INSIGHT_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: INSIGHT_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("INSIGHT_LOG_FORMAT", "json"),
		"Log format: json, text (env: INSIGHT_LOG_FORMAT)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool("INSIGHT_DEBUG", false),
		"Enable debug mode (env: INSIGHT_DEBUG)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("INSIGHT_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: INSIGHT_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	// Custom usage
	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()

	// Override log level if debug is set
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	// Validate config file exists when one was named
	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	// Validate log level
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	// Validate log format
	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %v", cfg.ShutdownTimeout)
	}

	return nil
}

// resolveLogging picks the effective log settings: the config file's logging
// section applies unless the operator passed the flag (or set the env var)
// explicitly. Returns changed=false when the CLI settings already apply.
func resolveLogging(cliCfg *CLIConfig, fileCfg config.LoggingConfig) (level, format string, changed bool) {
	level, format = cliCfg.LogLevel, cliCfg.LogFormat

	passed := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { passed[f.Name] = true })

	if !passed["log-level"] && !cliCfg.Debug && os.Getenv("INSIGHT_LOG_LEVEL") == "" {
		if fileCfg.Level != level {
			level, changed = fileCfg.Level, true
		}
	}
	if !passed["log-format"] && os.Getenv("INSIGHT_LOG_FORMAT") == "" {
		if fileCfg.Format != format {
			format, changed = fileCfg.Format, true
		}
	}
	return level, format, changed
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Analytics Caching & Orchestration Engine

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with the built-in defaults (in-memory storage, seeded demo data)
  %s

  # Run with custom config
  %s --config=/path/to/config.yaml

  # Run with debug logging
  %s --log-level=debug --log-format=text

  # Run with environment variables
  export INSIGHT_CONFIG=/etc/insight/config.json
  export INSIGHT_LOG_LEVEL=debug
  %s

  # Validate configuration only
  %s --config=/path/to/config.yaml --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
