// Package elevate wraps commands with a privilege-escalation prompt.
package elevate

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/better-ecosystem/better-tor/internal/config"
)

// pkexec exit codes for a dismissed or refused authorization dialog.
const (
	pkexecDismissed    = 126
	pkexecUnauthorized = 127
)

// ErrNoWrapper is returned when no escalation tool is available and the
// process is not root.
var ErrNoWrapper = errors.New("neither pkexec nor sudo found; please run as root")

// IsAdmin returns true if the current process is running as root.
func IsAdmin() bool {
	return unix.Geteuid() == 0
}

// Elevator builds commands that run with root privileges.
type Elevator struct {
	wrapper  config.Wrapper
	lookPath func(string) (string, error)
	isAdmin  func() bool
}

// New creates an Elevator for the configured wrapper.
func New(wrapper config.Wrapper) *Elevator {
	return &Elevator{
		wrapper:  wrapper,
		lookPath: exec.LookPath,
		isAdmin:  IsAdmin,
	}
}

// Resolve returns the wrapper binary to use, or "" when the command should
// run directly (already root, or wrapper "none").
func (e *Elevator) Resolve() (string, error) {
	if e.wrapper == config.WrapperNone || e.isAdmin() {
		return "", nil
	}

	var candidates []string
	switch e.wrapper {
	case config.WrapperPkexec:
		candidates = []string{"pkexec"}
	case config.WrapperSudo:
		candidates = []string{"sudo"}
	default:
		// Try pkexec (graphical prompt), then sudo
		candidates = []string{"pkexec", "sudo"}
	}

	for _, name := range candidates {
		if path, err := e.lookPath(name); err == nil {
			return path, nil
		}
	}
	if e.wrapper == config.WrapperAuto {
		return "", ErrNoWrapper
	}
	return "", fmt.Errorf("%s not found in PATH", e.wrapper)
}

// Command returns an *exec.Cmd running name with args under the wrapper.
func (e *Elevator) Command(ctx context.Context, name string, args ...string) (*exec.Cmd, error) {
	wrapper, err := e.Resolve()
	if err != nil {
		return nil, err
	}
	if wrapper == "" {
		return exec.CommandContext(ctx, name, args...), nil
	}
	return exec.CommandContext(ctx, wrapper, append([]string{name}, args...)...), nil
}

// PromptRefused reports whether an exit code means the wrapper itself
// refused to run the command (dialog dismissed or not authorized) rather
// than the command failing.
func PromptRefused(wrapperPath string, exitCode int) bool {
	if wrapperPath == "" {
		return false
	}
	switch filepath.Base(wrapperPath) {
	case "pkexec":
		return exitCode == pkexecDismissed || exitCode == pkexecUnauthorized
	}
	return false
}
