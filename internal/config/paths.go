package config

import (
	"os"
	"path/filepath"
)

// GetConfigPath returns $XDG_CONFIG_HOME/better-tor/config.yaml, or
// config.yaml in the working directory when no config dir is known.
func GetConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "better-tor", "config.yaml")
}
