package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher reloads the manager's file when it changes on disk.
type Watcher struct {
	manager  *Manager
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(*Config)
	onError  func(error)
}

// NewWatcher watches the directory holding the manager's config file.
// The directory is watched rather than the file so editors that save by
// rename are still seen.
func NewWatcher(m *Manager, onChange func(*Config), onError func(error)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	dir := filepath.Dir(m.Path())
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", dir, err)
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &Watcher{
		manager:  m,
		watcher:  w,
		debounce: reloadDebounce,
		onChange: onChange,
		onError:  onError,
	}, nil
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	target := filepath.Clean(w.manager.Path())

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)
			mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.onError(fmt.Errorf("config watcher: %w", err))
		}
	}
}

func (w *Watcher) reload() {
	if err := w.manager.Load(); err != nil {
		w.onError(err)
		return
	}
	if w.onChange != nil {
		w.onChange(w.manager.Get())
	}
}
