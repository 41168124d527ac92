// Package main implements the entry point for the insight engine: an
// analytics caching and orchestration service that computes per-entity
// confidence, health, and insight summaries over pluggable analyzers.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/insight/analytics"
	"github.com/c360/insight/config"
	"github.com/c360/insight/metric"
	"github.com/c360/insight/pkg/cache"
	"github.com/c360/insight/profile"
	"github.com/c360/insight/seed"
	"github.com/c360/insight/storage"
	"github.com/c360/insight/storage/memstore"
	"github.com/c360/insight/storage/natskv"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "insight"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// Load and validate configuration
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The file's logging section applies unless the operator passed explicit
	// CLI flags, which win.
	if level, format, changed := resolveLogging(cliCfg, cfg.Logging); changed {
		logger = setupLogger(level, format)
		slog.SetDefault(logger)
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()
	registry := metric.NewMetricsRegistry()

	// Profile persistence backend
	kv, cleanup, err := setupStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// Orchestrator and its collaborators
	orch, store, err := setupEngine(ctx, cfg, kv, registry, logger)
	if err != nil {
		return err
	}

	// Demo dataset when the datastore starts empty
	if cfg.Seed.Enabled && store.EntityCount() == 0 {
		if err := seedDatastore(ctx, cfg, store, orch, logger); err != nil {
			return err
		}
	}

	return runWithSignalHandling(ctx, cfg, orch, registry, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting insight engine",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// setupStorage creates the profile persistence backend. The returned cleanup
// closes the NATS connection when one was opened.
func setupStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.KV, func(), error) {
	if cfg.Storage.Backend == config.StorageBackendMemory {
		slog.Info("Using in-memory profile storage (profiles are lost on restart)")
		return memstore.New(), func() {}, nil
	}

	slog.Info("Connecting to NATS", "url", cfg.Storage.NATS.URL)
	nc, err := nats.Connect(cfg.Storage.NATS.URL,
		nats.Name(appName),
		nats.Timeout(10*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	kv, err := natskv.New(ctx, nc, cfg.Storage.NATS.KVConfig(), logger)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create KV store: %w", err)
	}

	slog.Info("Profile storage ready", "bucket", cfg.Storage.NATS.Bucket)
	return kv, nc.Close, nil
}

// setupEngine wires the datastore, profile store, cache, and orchestrator.
// Analyzers are external collaborators; the binary runs the engine without
// any, which still yields confidence, health, and data-driven insights.
func setupEngine(
	ctx context.Context,
	cfg *config.Config,
	kv storage.KV,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*analytics.Orchestrator, *seed.MemoryStore, error) {
	profiles := profile.NewStore(kv, logger, profile.WithMetrics(registry))
	profiles.Load(ctx)
	slog.Info("Profiles loaded", "count", profiles.Count())

	results, err := cache.NewFromConfig(ctx, cfg.Cache,
		cache.WithMetrics[*analytics.AnalyticsResult](registry, "analytics"))
	if err != nil {
		return nil, nil, fmt.Errorf("create result cache: %w", err)
	}

	store := seed.NewMemoryStore()

	orch, err := analytics.New(store, profiles, results, analytics.Analyzers{}, cfg.Analytics,
		analytics.WithLogger(logger),
		analytics.WithMetrics(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create orchestrator: %w", err)
	}

	return orch, store, nil
}

// seedDatastore generates the demo dataset and warms analytics for it.
func seedDatastore(
	ctx context.Context,
	cfg *config.Config,
	store *seed.MemoryStore,
	orch *analytics.Orchestrator,
	logger *slog.Logger,
) error {
	seeder, err := seed.New(cfg.Seed.Config)
	if err != nil {
		return fmt.Errorf("create seeder: %w", err)
	}

	entities := seeder.Populate(store)
	logger.Info("Seeded demo dataset",
		"entities", len(entities),
		"days", cfg.Seed.Days,
		"records_per_day", cfg.Seed.RecordsPerDay)

	summary, err := orch.TriggerRefreshAll(ctx)
	if err != nil {
		return fmt.Errorf("warm analytics: %w", err)
	}
	logger.Info("Analytics warmed",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"duration", summary.Duration)
	return nil
}

// statusHandler serves the JSON status summary plus cache statistics.
func statusHandler(orch *analytics.Orchestrator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entries, err := orch.StatusSummary(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"entities": entries,
			"cache":    orch.CacheStats(),
		})
	})
}

// runWithSignalHandling starts the HTTP surface and background refresh, then
// blocks until a shutdown signal arrives.
func runWithSignalHandling(
	ctx context.Context,
	cfg *config.Config,
	orch *analytics.Orchestrator,
	registry *metric.MetricsRegistry,
	shutdownTimeout time.Duration,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if cfg.Refresh.Enabled {
		if err := orch.StartBackgroundRefresh(signalCtx, cfg.Refresh.Interval); err != nil {
			return fmt.Errorf("start background refresh: %w", err)
		}
	}

	var server *metric.Server
	if cfg.Metrics.Enabled {
		server = metric.NewServer(cfg.Metrics.Port, "/metrics", registry)
		server.Handle("/status", statusHandler(orch))

		go func() {
			if err := server.Start(); err != nil {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
		slog.Info("Metrics server listening", "address", server.Address())
	}

	registry.CoreMetrics().ServiceStatus.Set(1)
	slog.Info("Insight engine started")
	<-signalCtx.Done()
	registry.CoreMetrics().ServiceStatus.Set(0)
	slog.Info("Received shutdown signal")

	return shutdown(orch, server, shutdownTimeout)
}

// shutdown stops the HTTP surface first so no new work arrives while the
// orchestrator drains its refresh pool.
func shutdown(orch *analytics.Orchestrator, server *metric.Server, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		if server != nil {
			if err := server.Stop(); err != nil {
				slog.Warn("Metrics server stop failed", "error", err)
			}
		}
		done <- orch.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	case <-time.After(timeout):
		return fmt.Errorf("graceful shutdown timed out after %v", timeout)
	}

	slog.Info("Insight engine shutdown complete")
	return nil
}
