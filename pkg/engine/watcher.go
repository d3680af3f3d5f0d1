package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher is the notification-based alternative to the Poller. It watches
// the parent directories of the engine's file set and refreshes the snapshot
// after a quiet period, so editor save storms collapse into one rebuild.
type Watcher struct {
	engine   *Engine
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce *Debouncer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a filesystem watcher for the engine with the given
// debounce interval.
func NewWatcher(e *Engine, debounceInterval time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &Watcher{
		engine:   e,
		watcher:  fw,
		logger:   slog.Default().With("component", "watcher"),
		debounce: NewDebouncer(debounceInterval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch processes filesystem events until the context is cancelled or Stop
// is called. It is a blocking call.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	watched := w.watchedSet()
	dirs := map[string]bool{}
	for path := range watched {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn("failed to watch directory", "dir", dir, "error", err)
		}
	}

	w.logger.Info("filesystem watcher started", "dirs", len(dirs))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("filesystem watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("filesystem watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}
			w.logger.Debug("file event detected", "path", event.Name, "op", event.Op.String())
			w.debounce.Trigger(func() {
				res := w.engine.Refresh(context.Background())
				if res.Status != StatusRefreshed {
					w.logger.Warn("watch-triggered refresh did not complete", "status", res.Status)
				}
				// a refresh can change the watch set (new manifests in the
				// policy), so re-arm the directories
				for dir := range w.refreshDirs() {
					if !dirs[dir] {
						if err := w.watcher.Add(dir); err == nil {
							dirs[dir] = true
						}
					}
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("filesystem watcher error", "error", err)
		}
	}
}

// Stop terminates the watcher and waits for Watch to return.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.debounce.Stop()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *Watcher) watchedSet() map[string]bool {
	set := map[string]bool{}
	for _, path := range w.engine.WatchedFiles() {
		set[filepath.Clean(path)] = true
	}
	return set
}

func (w *Watcher) refreshDirs() map[string]bool {
	dirs := map[string]bool{}
	for path := range w.watchedSet() {
		dirs[filepath.Dir(path)] = true
	}
	return dirs
}

// Debouncer collapses rapid event bursts: the callback runs only after the
// interval passes without a newer trigger.
type Debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopCh   chan struct{}
}

// NewDebouncer creates a debouncer with the given quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Trigger arms the debouncer with a new callback, resetting any pending one.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
			d.mu.Lock()
			cb := d.callback
			d.mu.Unlock()
			if cb != nil {
				cb()
			}
		}
	})
}

// Stop cancels any pending callback.
func (d *Debouncer) Stop() {
	close(d.stopCh)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
