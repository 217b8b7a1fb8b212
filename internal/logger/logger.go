// Package logger provides centralized logging for better-tor.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// Options controls where log records go.
type Options struct {
	Level         string    // debug, info, warn, error
	Path          string    // log file, empty = default location
	Console       io.Writer // colourised copy of every record, nil = none
	CaptureStderr bool      // redirect fd 2 to the log file (long-running tray)
}

var (
	logFile  *os.File
	logMutex sync.Mutex
	logPath  string
	level    = new(slog.LevelVar)
	base     = slog.New(slog.DiscardHandler)
)

// Init opens the log file and installs the package logger.
func Init(opts Options) error {
	logMutex.Lock()
	defer logMutex.Unlock()

	level.Set(ParseLevel(opts.Level))

	logPath = opts.Path
	if logPath == "" {
		logPath = filepath.Join(getLogDir(), "better-tor.log")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = f

	handlers := []slog.Handler{slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})}
	if opts.Console != nil {
		handlers = append(handlers, tint.NewHandler(opts.Console, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(opts.Console),
		}))
	}
	base = slog.New(fanout(handlers))

	if opts.CaptureStderr {
		if err := redirectStderr(f); err != nil {
			base.Warn("stderr redirect failed", "err", err)
		}
	}
	return nil
}

// Close closes the log file and reverts to discarding records.
func Close() {
	logMutex.Lock()
	defer logMutex.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	base = slog.New(slog.DiscardHandler)
}

// ParseLevel converts a level name to a slog.Level; unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the minimum level at runtime.
func SetLevel(s string) {
	level.Set(ParseLevel(s))
}

// L returns the package logger.
func L() *slog.Logger {
	logMutex.Lock()
	defer logMutex.Unlock()
	return base
}

// With returns a logger tagged with a component name.
func With(component string) *slog.Logger {
	return L().With("component", component)
}

// Info logs an info message
func Info(format string, args ...any) {
	L().Info(fmt.Sprintf(format, args...))
}

// Error logs an error message
func Error(format string, args ...any) {
	L().Error(fmt.Sprintf(format, args...))
}

// Debug logs a debug message
func Debug(format string, args ...any) {
	L().Debug(fmt.Sprintf(format, args...))
}

// Warning logs a warning message
func Warning(format string, args ...any) {
	L().Warn(fmt.Sprintf(format, args...))
}

// GetLogPath returns the path to the log file
func GetLogPath() string {
	logMutex.Lock()
	defer logMutex.Unlock()
	if logPath == "" {
		return filepath.Join(getLogDir(), "better-tor.log")
	}
	return logPath
}

// Recover should be deferred at the top of every goroutine to catch panics.
// Usage: go func() { defer logger.Recover("myGoroutine"); ... }()
func Recover(name string) {
	if r := recover(); r != nil {
		L().Error("panic recovered", "goroutine", name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
	}
}

// SafeGo launches a goroutine with panic recovery.
func SafeGo(name string, fn func()) {
	go func() {
		defer Recover(name)
		fn()
	}()
}

// ReadLogs reads the log file contents
func ReadLogs() (string, error) {
	data, err := os.ReadFile(GetLogPath())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ClearLogs truncates the log file
func ClearLogs() error {
	path := GetLogPath()

	logMutex.Lock()
	defer logMutex.Unlock()

	if err := os.Truncate(path, 0); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (h fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, hh := range h {
		if hh.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (h fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, hh := range h {
		if hh.Enabled(ctx, r.Level) {
			errs = append(errs, hh.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(h))
	for i, hh := range h {
		out[i] = hh.WithAttrs(attrs)
	}
	return out
}

func (h fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(h))
	for i, hh := range h {
		out[i] = hh.WithGroup(name)
	}
	return out
}
