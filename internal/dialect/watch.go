package dialect

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay is how long the watcher waits after the last change
// before reloading, so editors that write in several steps trigger one reload.
const DefaultReloadDelay = 100 * time.Millisecond

// Watch reloads the dialect file at path into r whenever it changes, until
// ctx is cancelled. The parent directory is watched so that editors which
// replace the file by rename are picked up.
//
// Each reload replaces the bindings of the previous load, so an extension
// deleted from the file is unbound again. A reload that fails validation is
// logged and leaves the current bindings in place. onReload, if non-nil, is called after every reload attempt.
func Watch(ctx context.Context, path string, r *Registry, logger *slog.Logger, onReload func(error)) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create dialect watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve dialect file: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	logger.Info("dialect watcher started", "path", abs)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("dialect watcher stopped", "path", abs)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("dialect watcher: events channel closed")
			}
			if filepath.Clean(event.Name) != abs || event.Op&fsnotify.Chmod == event.Op {
				continue
			}
			logger.Debug("dialect file event", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(DefaultReloadDelay)
			} else {
				timer.Reset(DefaultReloadDelay)
			}
			pending = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("dialect watcher: errors channel closed")
			}
			logger.Warn("dialect watcher error", "error", err)

		case <-pending:
			pending = nil
			n, err := r.LoadFile(abs)
			if err != nil {
				logger.Error("dialect reload failed, keeping previous bindings", "path", abs, "error", err)
			} else {
				logger.Info("dialects reloaded", "path", abs, "bindings", n)
			}
			if onReload != nil {
				onReload(err)
			}
		}
	}
}
