// Package main implements the entry point for the collector API server,
// which schedules collection tasks against an external address source and
// exposes an administrative HTTP surface for task creation and lookup.
package main

import (
	"fmt"
	"log"
	"log/slog"

	"github.com/phamilton/collector-api/internal/config"
	"github.com/phamilton/collector-api/internal/platform/logger"
)

func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.run(); err != nil {
		log.Fatalf("Application exited with error: %v", err)
	}
}

// initializeApp loads configuration, sets up logging and wires the
// application components together.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"tick_interval", cfg.Scheduler.TickInterval)

	return newApplication(cfg, appLogger)
}
