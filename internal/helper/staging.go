// Package helper materializes the privileged helper script the controller
// runs through the escalation wrapper.
package helper

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sys/unix"
)

// FileName is the name of the staged helper.
const FileName = "better-tor-helper.sh"

//go:embed assets/better-tor-helper.sh
var script []byte

// Locator yields the path of an executable helper.
type Locator interface {
	Ensure() (string, error)
}

// Script returns the embedded helper.
func Script() []byte {
	return bytes.Clone(script)
}

// Stager writes the embedded helper to disk once per process.
type Stager struct {
	dir     string
	content []byte

	mu   sync.Mutex
	path string
}

// NewStager stages into dir; an empty dir selects DefaultDir().
func NewStager(dir string) *Stager {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Stager{dir: dir, content: script}
}

// DefaultDir returns the per-user cache directory, or the temp dir when the
// user has none.
func DefaultDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "better-tor")
	}
	return os.TempDir()
}

// Ensure writes the helper (if missing or stale) and returns its path. The
// first successful path is cached for the lifetime of the Stager.
func (s *Stager) Ensure() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		return s.path, nil
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create helper directory: %w", err)
	}

	path := filepath.Join(s.dir, FileName)
	if !s.current(path) {
		if err := s.write(path); err != nil {
			return "", err
		}
	}
	if err := checkExecutable(path); err != nil {
		return "", err
	}

	s.path = path
	return path, nil
}

// current reports whether path is a regular file with the embedded content
// and the executable bit set.
func (s *Stager) current(path string) bool {
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0100 == 0 {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return blake2b.Sum256(data) == blake2b.Sum256(s.content)
}

// write replaces path atomically so a running helper is never truncated.
func (s *Stager) write(path string) error {
	tmp, err := os.CreateTemp(s.dir, ".better-tor-helper-*")
	if err != nil {
		return fmt.Errorf("failed to create helper: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(s.content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write helper: %w", err)
	}
	if err := tmp.Chmod(0755); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to mark helper executable: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write helper: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to install helper: %w", err)
	}
	return nil
}

// Preinstalled is a helper installed outside the process, e.g. by a package.
type Preinstalled struct {
	Path string
}

// Ensure validates the configured path.
func (p Preinstalled) Ensure() (string, error) {
	if p.Path == "" {
		return "", fmt.Errorf("helper path is empty")
	}
	path, err := filepath.Abs(p.Path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve helper path: %w", err)
	}
	if err := checkExecutable(path); err != nil {
		return "", err
	}
	return path, nil
}

func checkExecutable(path string) error {
	if err := unix.Access(path, unix.X_OK); err != nil {
		return fmt.Errorf("helper %s is not executable: %w", path, err)
	}
	return nil
}
