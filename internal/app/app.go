package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prolink-bio/prolink/internal/config"
	"github.com/prolink-bio/prolink/internal/ctxlog"
	"github.com/prolink-bio/prolink/internal/pipeline"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	registry  *pipeline.Registry
	runConfig *config.Config
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
func NewApp(outW io.Writer, appConfig *Config, modules ...pipeline.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	runConfig, err := config.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		// A failure to load config is a fatal startup error.
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	applyOverrides(runConfig, appConfig)
	if err := runConfig.Validate(); err != nil {
		panic(fmt.Errorf("invalid configuration: %w", err))
	}
	logger.Debug("Run configuration loaded and validated.",
		"queries", len(runConfig.Queries))

	// Create and populate the registry with stage handlers.
	reg := pipeline.NewRegistry()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All stage modules registered.", "count", len(modules))

	return &App{
		outW:      outW,
		logger:    logger,
		registry:  reg,
		runConfig: runConfig,
	}
}

// applyOverrides folds the command line overrides into the run configuration.
func applyOverrides(cfg *config.Config, appConfig *Config) {
	if len(appConfig.Queries) > 0 {
		cfg.Queries = appConfig.Queries
	}
	if appConfig.OutputDir != "" {
		cfg.Output.Dir = appConfig.OutputDir
	}
	if appConfig.NoZip {
		cfg.Output.Zip = false
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *pipeline.Registry {
	return a.registry
}

// RunConfig returns the loaded run configuration. This is primarily for
// testing.
func (a *App) RunConfig() *config.Config {
	return a.runConfig
}
