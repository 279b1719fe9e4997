package config

import (
	"time"
)

// Config is the root configuration for the kgbuilder orchestrator.
type Config struct {
	Core      CoreConfig      `mapstructure:"core" yaml:"core" validate:"required"`
	Database  DBConfig        `mapstructure:"database" yaml:"database" validate:"required"`
	Docker    DockerConfig    `mapstructure:"docker" yaml:"docker" validate:"required"`
	Ports     PortsConfig     `mapstructure:"ports" yaml:"ports" validate:"required"`
	Readiness ReadinessConfig `mapstructure:"readiness" yaml:"readiness"`
	Ingest    IngestConfig    `mapstructure:"ingest" yaml:"ingest"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// CoreConfig contains paths and general behavior settings.
type CoreConfig struct {
	HomeDir    string `mapstructure:"home_dir" yaml:"home_dir"`
	ScriptsDir string `mapstructure:"scripts_dir" yaml:"scripts_dir"`
	ResultsDir string `mapstructure:"results_dir" yaml:"results_dir"`
	Debug      bool   `mapstructure:"debug" yaml:"debug"`
}

// DBConfig contains instance registry database settings.
type DBConfig struct {
	Path        string        `mapstructure:"path" yaml:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout" validate:"min=1s"`
	WALMode     bool          `mapstructure:"wal_mode" yaml:"wal_mode"`
}

// DockerConfig contains container engine settings for provisioned instances.
type DockerConfig struct {
	Image         string        `mapstructure:"image" yaml:"image" validate:"required"`
	MemoryLimitMB int64         `mapstructure:"memory_limit_mb" yaml:"memory_limit_mb" validate:"min=512"`
	HeapInitial   string        `mapstructure:"heap_initial" yaml:"heap_initial"`
	HeapMax       string        `mapstructure:"heap_max" yaml:"heap_max"`
	PageCache     string        `mapstructure:"page_cache" yaml:"page_cache"`
	RestartPolicy string        `mapstructure:"restart_policy" yaml:"restart_policy" validate:"oneof=no always unless-stopped on-failure"`
	PullTimeout   time.Duration `mapstructure:"pull_timeout" yaml:"pull_timeout" validate:"min=10s"`
}

// PortsConfig contains the host port search window.
type PortsConfig struct {
	HTTPBase    int `mapstructure:"http_base" yaml:"http_base" validate:"min=1024,max=65535"`
	BoltBase    int `mapstructure:"bolt_base" yaml:"bolt_base" validate:"min=1024,max=65535"`
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts" validate:"min=1,max=10000"`
}

// ReadinessConfig controls how long a freshly started instance is polled
// before the create flow gives up.
type ReadinessConfig struct {
	Timeout   time.Duration   `mapstructure:"timeout" yaml:"timeout" validate:"min=10s"`
	Intervals []time.Duration `mapstructure:"intervals" yaml:"intervals"`
}

// IngestConfig contains ingestion pipeline tuning.
type IngestConfig struct {
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size" validate:"min=1,max=10000"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}
