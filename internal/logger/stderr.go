//go:build linux

package logger

import (
	"os"

	"golang.org/x/sys/unix"
)

// redirectStderr points fd 2 at the log file so runtime panics land in it.
func redirectStderr(f *os.File) error {
	return unix.Dup3(int(f.Fd()), int(os.Stderr.Fd()), 0)
}
