package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string // hcl run configuration

	// Queries, OutputDir, and NoZip override the corresponding attributes
	// of the run configuration when set.
	Queries   []string
	OutputDir string
	NoZip     bool

	LogFormat   string
	LogLevel    string
	WorkerCount int

	// SetupOnly installs the tools and databases, then exits.
	SetupOnly bool

	// SkipSetup assumes the external tools are already on PATH.
	SkipSetup bool
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if cfg.SetupOnly && cfg.SkipSetup {
		return nil, errors.New("setup-only and skip-setup are mutually exclusive")
	}
	return &cfg, nil
}
