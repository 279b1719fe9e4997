package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// ConfigLoader handles loading configuration from files.
type ConfigLoader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

// viperConfigLoader implements ConfigLoader using Viper.
type viperConfigLoader struct {
	validator ConfigValidator
}

// NewConfigLoader creates a new ConfigLoader instance.
func NewConfigLoader(validator ConfigValidator) ConfigLoader {
	return &viperConfigLoader{
		validator: validator,
	}
}

// Load loads configuration from the specified file path. Defaults are
// applied first so a partial file only needs to name what it overrides.
func (l *viperConfigLoader) Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to read config file", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to unmarshal config", err)
	}

	interpolateConfig(cfg)

	if err := l.validator.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration.
func (l *viperConfigLoader) LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := l.validator.Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	return l.Load(path)
}

// interpolateConfig expands ${VAR_NAME} references in all string-valued
// path and identity settings.
func interpolateConfig(cfg *Config) {
	cfg.Core.HomeDir = interpolateString(cfg.Core.HomeDir)
	cfg.Core.ScriptsDir = interpolateString(cfg.Core.ScriptsDir)
	cfg.Core.ResultsDir = interpolateString(cfg.Core.ResultsDir)
	cfg.Database.Path = interpolateString(cfg.Database.Path)
	cfg.Docker.Image = interpolateString(cfg.Docker.Image)
	cfg.Logging.Level = interpolateString(cfg.Logging.Level)
	cfg.Logging.Format = interpolateString(cfg.Logging.Format)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateString replaces ${VAR_NAME} with environment variable values.
// Unset variables are left as-is.
func interpolateString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if envValue := os.Getenv(varName); envValue != "" {
			return envValue
		}
		return match
	})
}
