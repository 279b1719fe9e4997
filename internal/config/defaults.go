package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	homeDir := getDefaultHomeDir()

	return &Config{
		Core: CoreConfig{
			HomeDir:    homeDir,
			ScriptsDir: filepath.Join(homeDir, "connection_scripts"),
			ResultsDir: filepath.Join(homeDir, "results"),
			Debug:      false,
		},
		Database: DBConfig{
			Path:        filepath.Join(homeDir, "kgbuilder.db"),
			BusyTimeout: 30 * time.Second,
			WALMode:     true,
		},
		Docker: DockerConfig{
			Image:         "neo4j:community",
			MemoryLimitMB: 2048,
			HeapInitial:   "1G",
			HeapMax:       "2G",
			PageCache:     "1G",
			RestartPolicy: "unless-stopped",
			PullTimeout:   10 * time.Minute,
		},
		Ports: PortsConfig{
			HTTPBase:    7474,
			BoltBase:    7687,
			MaxAttempts: 200,
		},
		Readiness: ReadinessConfig{
			Timeout:   5 * time.Minute,
			Intervals: []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second},
		},
		Ingest: IngestConfig{
			BatchSize: 500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// getDefaultHomeDir returns the default kgbuilder home directory.
// It uses ~/.kgbuilder or falls back to a temporary directory if the user
// home cannot be determined.
func getDefaultHomeDir() string {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".kgbuilder")
	}
	return filepath.Join(userHome, ".kgbuilder")
}
