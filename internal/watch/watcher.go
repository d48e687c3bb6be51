// Package watch notifies callers when individual files change on disk.
package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 200 * time.Millisecond

// FileWatcher watches files for changes. Directories are watched rather
// than the files themselves so atomic rename-over saves are seen.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	files   map[string]func()
	dirs    map[string]bool
	timers  map[string]*time.Timer
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a FileWatcher. A debounce of zero uses DefaultDebounce.
func New(debounce time.Duration, logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  watcher,
		logger:   logger,
		debounce: debounce,
		files:    make(map[string]func()),
		dirs:     make(map[string]bool),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Watch calls onChange after path is written, created or renamed into place.
// Watching the same path again replaces its callback.
func (w *FileWatcher) Watch(path string, onChange func()) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.dirs[dir] {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.files[path] = onChange
	return nil
}

// Unwatch stops reporting changes to path.
func (w *FileWatcher) Unwatch(path string) {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.files, path)
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

// Start begins delivering change callbacks.
func (w *FileWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	go w.watch(w.stopCh, w.doneCh)
}

// Stop stops the watcher and releases its inotify handle. A stopped
// watcher cannot be restarted.
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	close(w.stopCh)
	doneCh := w.doneCh
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	<-doneCh
	return err
}

// watch is the event loop.
func (w *FileWatcher) watch(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule(filepath.Clean(event.Name))
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// schedule debounces the callback for path.
func (w *FileWatcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if _, ok := w.files[path]; !ok {
		return
	}

	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

// fire runs the callback for path outside the lock.
func (w *FileWatcher) fire(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	onChange := w.files[path]
	running := w.running
	w.mu.Unlock()

	if !running || onChange == nil {
		return
	}

	w.logger.Debug("file changed", "path", path)
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("file change callback panicked", "path", path, "panic", r)
		}
	}()
	onChange()
}
