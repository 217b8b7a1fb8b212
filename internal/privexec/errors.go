package privexec

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ExcerptLimit bounds the diagnostic text shown on user-facing surfaces.
const ExcerptLimit = 100

// StagingError means the helper artifact is unavailable.
type StagingError struct {
	Err error
}

func (e *StagingError) Error() string {
	return fmt.Sprintf("helper unavailable: %v", e.Err)
}

func (e *StagingError) Unwrap() error { return e.Err }

// ExecutionError means the process could not run to completion: it failed
// to start, timed out, or the privilege prompt was refused.
type ExecutionError struct {
	Directive Directive
	Stderr    string
	Err       error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Directive, e.Err)
	if s := Excerpt(e.Stderr, ExcerptLimit); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// HelperError means the helper ran and reported failure. Stderr holds the
// full diagnostic; Error() only carries a bounded excerpt.
type HelperError struct {
	Directive Directive
	ExitCode  int
	Stderr    string
}

func (e *HelperError) Error() string {
	msg := fmt.Sprintf("%s failed with exit status %d", e.Directive, e.ExitCode)
	if s := e.Excerpt(); s != "" {
		msg += ": " + s
	}
	return msg
}

// Excerpt returns the display-safe prefix of the diagnostic text.
func (e *HelperError) Excerpt() string {
	return Excerpt(e.Stderr, ExcerptLimit)
}

// Excerpt trims s and cuts it to at most limit runes, marking the cut.
func Excerpt(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
