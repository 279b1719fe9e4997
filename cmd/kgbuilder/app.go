package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/config"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/database"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/docker"
	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/orchestrator"
)

// app bundles the wired orchestrator with its configuration and logger.
type app struct {
	cfg    *config.Config
	db     *database.DB
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
	flags  *GlobalFlags
}

// buildApp loads configuration and wires the registry, container driver,
// and orchestrator. The returned cleanup closes the registry connection.
func buildApp(cmd *cobra.Command) (*app, func(), error) {
	flags, err := ParseGlobalFlags(cmd)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, err
	}

	logger := newLogger(cfg, flags)

	if err := config.EnsureDirs(cfg); err != nil {
		return nil, nil, err
	}

	db, err := database.OpenWithConfig(database.Config{
		Path:        cfg.Database.Path,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, nil, err
	}

	driver, err := docker.NewDriver(cfg.Docker, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	a := &app{
		cfg:    cfg,
		db:     db,
		orch:   orchestrator.New(cfg, db, driver, logger),
		logger: logger,
		flags:  flags,
	}
	cleanup := func() {
		driver.Close()
		db.Close()
	}
	return a, cleanup, nil
}

// loadConfig resolves the home directory and config file from flags and
// environment, then loads the YAML config with defaults.
func loadConfig(flags *GlobalFlags) (*config.Config, error) {
	homeDir := flags.HomeDir
	if homeDir == "" {
		homeDir = os.Getenv("KGBUILDER_HOME")
	}

	configFile := flags.ConfigFile
	if configFile == "" {
		base := homeDir
		if base == "" {
			base = config.DefaultConfig().Core.HomeDir
		}
		configFile = filepath.Join(base, "config.yaml")
	}

	loader := config.NewConfigLoader(config.NewValidator())
	cfg, err := loader.LoadWithDefaults(configFile)
	if err != nil {
		return nil, err
	}

	// An explicit home directory rebases every default path under it.
	if homeDir != "" {
		defaults := config.DefaultConfig()
		if cfg.Core.ScriptsDir == defaults.Core.ScriptsDir {
			cfg.Core.ScriptsDir = filepath.Join(homeDir, "connection_scripts")
		}
		if cfg.Core.ResultsDir == defaults.Core.ResultsDir {
			cfg.Core.ResultsDir = filepath.Join(homeDir, "results")
		}
		if cfg.Database.Path == defaults.Database.Path {
			cfg.Database.Path = filepath.Join(homeDir, "kgbuilder.db")
		}
		cfg.Core.HomeDir = homeDir
	}

	return cfg, nil
}

// newLogger builds the slog logger from config and verbosity flags.
func newLogger(cfg *config.Config, flags *GlobalFlags) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if flags.IsVerbose() || cfg.Core.Debug {
		level = slog.LevelDebug
	}
	if flags.IsQuiet() {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
