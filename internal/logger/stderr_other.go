//go:build !linux

package logger

import "os"

// redirectStderr is a no-op outside Linux.
func redirectStderr(*os.File) error {
	return nil
}
