package config

import (
	"os"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// EnsureDirs creates the home, scripts, and results directories if missing.
func EnsureDirs(cfg *Config) error {
	for _, dir := range []string{cfg.Core.HomeDir, cfg.Core.ScriptsDir, cfg.Core.ResultsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return types.WrapError(types.CONFIG_LOAD_FAILED, "failed to create directory "+dir, err)
		}
	}
	return nil
}
