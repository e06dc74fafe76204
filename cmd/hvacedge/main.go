// HVAC Edge - Data Centre Cooling Control Plane
//
// This is the main entry point for the HVAC Edge agent. The agent runs on
// site, next to the racks it supervises, and is designed for:
//   - Offline-first operation (telemetry is queued locally when the cloud
//     sync endpoint is unreachable)
//   - Local control loops (policies act on rack actuators without a
//     round-trip to the cloud)
//   - Open protocols (MQTT for device traffic, CoAP for control commands)
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coldaisle/hvac-edge/internal/infrastructure/config"
	"github.com/coldaisle/hvac-edge/internal/infrastructure/logging"
	"github.com/coldaisle/hvac-edge/internal/orchestrator"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// healthCheckTimeout bounds the post-startup connectivity check.
const healthCheckTimeout = 10 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting HVAC Edge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "site", cfg.Site.ID)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Build and start the edge stack. The orchestrator owns component
	// lifecycle and tears everything down in reverse order on Stop.
	orch, err := orchestrator.New(cfg, log, version)
	if err != nil {
		return fmt.Errorf("building orchestrator: %w", err)
	}

	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("starting orchestrator: %w", err)
	}
	defer func() {
		log.Info("stopping HVAC Edge")
		orch.Stop()
	}()

	// Verify all connections are healthy
	checkCtx, checkCancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer checkCancel()
	if err := orch.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HVACEDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HVACEDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
