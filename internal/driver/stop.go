package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"mcqagent/internal/logging"
)

// StopSignal is checked once per item boundary by the driver.
type StopSignal interface {
	// Requested reports whether a graceful stop has been asked for.
	Requested() bool
	// Clear consumes the signal once it has been honored.
	Clear() error
}

// StopWatcher watches for a sentinel file whose presence requests a
// graceful stop. Creation events flip a flag so the per-item check stays
// cheap; a stat fallback covers sentinels created before the watch
// started.
type StopWatcher struct {
	path      string
	watcher   *fsnotify.Watcher
	requested atomic.Bool
}

// NewStopWatcher watches the sentinel's directory (the sentinel itself
// usually does not exist yet).
func NewStopWatcher(path string) (*StopWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating stop watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	return &StopWatcher{path: path, watcher: w}, nil
}

// Watch consumes filesystem events until the context is canceled.
func (s *StopWatcher) Watch(ctx context.Context) error {
	log := logging.Get(logging.CategoryDriver)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			if event.Name == s.path && event.Op.Has(fsnotify.Create|fsnotify.Write) {
				log.Infow("stop requested", "sentinel", s.path)
				s.requested.Store(true)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnw("stop watcher error", "error", err)
		}
	}
}

// Requested reports whether the sentinel has appeared.
func (s *StopWatcher) Requested() bool {
	if s.requested.Load() {
		return true
	}
	if _, err := os.Stat(s.path); err == nil {
		s.requested.Store(true)
		return true
	}
	return false
}

// Clear deletes the sentinel so the next run starts clean.
func (s *StopWatcher) Clear() error {
	s.requested.Store(false)
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing stop sentinel: %w", err)
	}
	return nil
}

// Close releases the filesystem watch.
func (s *StopWatcher) Close() error {
	return s.watcher.Close()
}
