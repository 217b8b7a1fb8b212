package logger

import (
	"os"
	"path/filepath"
)

// getLogDir returns $XDG_STATE_HOME/better-tor, falling back to
// ~/.local/state/better-tor and finally the working directory.
func getLogDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "better-tor")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "state", "better-tor")
}
