package loader

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a definitions file and triggers reloads on change.
// Editor save patterns (rename-over, truncate-then-write) arrive as bursts
// of events, so reloads are debounced.
type Watcher struct {
	path     string
	onChange func()
	debounce time.Duration
	logger   *slog.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for path. onChange runs (debounced) after
// each detected modification.
func NewWatcher(path string, onChange func()) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: 200 * time.Millisecond,
		logger:   slog.Default().With("component", "loader.watcher"),
	}
}

// Start begins watching. The parent directory is watched rather than the
// file itself so atomic rename-over saves keep being observed.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.loop()
	w.logger.Info("watching definitions file", "path", w.path)
	return nil
}

// Stop halts the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.watcher.Close()
	<-w.doneCh
}

func (w *Watcher) loop() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// schedule arms (or re-arms) the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}
