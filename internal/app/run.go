package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prolink-bio/prolink/internal/ctxlog"
	"github.com/prolink-bio/prolink/internal/pipeline"
	"github.com/prolink-bio/prolink/internal/setup"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if appConfig.SkipSetup {
		a.logger.Info("Setup skipped, assuming tools are installed.")
	} else {
		if err := a.setup(ctx); err != nil {
			return fmt.Errorf("setup failed: %w", err)
		}
	}
	// Environment and verification cover both paths: a skip-setup run
	// still needs $BLASTDB set and the managed bin directory on PATH.
	sc := a.runConfig.Setup
	binDir := (&setup.Installer{ToolsDir: sc.ToolsDir}).BinDir()
	if err := setup.ApplyEnv(binDir, sc.DatabaseDir); err != nil {
		return err
	}
	if err := setup.Verify(ctx); err != nil {
		return err
	}
	if appConfig.SetupOnly {
		a.logger.Info("Setup finished, exiting as requested.")
		return nil
	}

	outDir := fmt.Sprintf("%s_%s", a.runConfig.Output.Dir,
		time.Now().Format("2006-01-02_15-04-05"))
	a.logger.Debug("Building run graph.", "output_dir", outDir)
	graph, err := pipeline.Build(a.runConfig, outDir)
	if err != nil {
		return fmt.Errorf("failed to build run graph: %w", err)
	}
	if err := a.registry.Validate(graph); err != nil {
		// A graph referencing an unregistered stage is a programmer error.
		panic(err)
	}
	a.logger.Debug("Run graph built.", "node_count", len(graph.Nodes))

	a.logger.Info("Starting concurrent execution.",
		"queries", len(a.runConfig.Queries), "workers", appConfig.WorkerCount)
	exec := pipeline.NewExecutor(graph, a.registry, appConfig.WorkerCount)
	if err := exec.Run(ctx); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("Execution finished.", "output_dir", outDir)

	a.logger.Debug("App.Run method finished.")
	return nil
}

// setup installs the managed external tools and optionally downloads the
// BLAST database.
func (a *App) setup(ctx context.Context) error {
	sc := a.runConfig.Setup

	installer := setup.NewInstaller(sc.ToolsDir)
	if err := installer.Install(ctx); err != nil {
		return err
	}

	if sc.DownloadDatabase {
		dl := &setup.DBDownloader{
			Client: installer.Client,
			Mirror: setup.DefaultMirror,
			Dir:    sc.DatabaseDir,
		}
		if err := dl.Download(ctx, a.runConfig.Search.Database); err != nil {
			return err
		}
	}
	return nil
}
