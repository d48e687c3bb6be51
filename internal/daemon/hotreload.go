package daemon

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmylchreest/notiwin/internal/config"
	"github.com/jmylchreest/notiwin/internal/watch"
)

// ConfigWatcher reloads the configuration file when it changes on disk.
// Invalid files are reported and the previous configuration stays current.
type ConfigWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	path    string
	watcher *watch.FileWatcher
	current *config.Config

	onReloadCallback func(*config.Config)
	onErrorCallback  func(error)

	running bool
}

// NewConfigWatcher creates a ConfigWatcher for path, starting from initial.
func NewConfigWatcher(path string, initial *config.Config, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = config.Path()
	}
	if initial == nil {
		initial = config.DefaultConfig()
	}
	return &ConfigWatcher{
		logger:  logger,
		path:    path,
		current: initial,
	}
}

// SetReloadCallback sets the callback invoked with each valid new config.
func (w *ConfigWatcher) SetReloadCallback(callback func(*config.Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReloadCallback = callback
}

// SetErrorCallback sets the callback invoked when a changed file fails to load.
func (w *ConfigWatcher) SetErrorCallback(callback func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onErrorCallback = callback
}

// Path returns the watched file.
func (w *ConfigWatcher) Path() string {
	return w.path
}

// Current returns the last successfully loaded configuration.
func (w *ConfigWatcher) Current() *config.Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching the config file.
func (w *ConfigWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	watcher, err := watch.New(0, w.logger)
	if err != nil {
		return err
	}
	if err := watcher.Watch(w.path, w.Reload); err != nil {
		_ = watcher.Stop()
		return fmt.Errorf("failed to watch config: %w", err)
	}
	watcher.Start()

	w.watcher = watcher
	w.running = true
	w.logger.Info("config watcher started", "path", w.path)
	return nil
}

// Stop stops watching the config file.
func (w *ConfigWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	watcher := w.watcher
	w.watcher = nil
	w.mu.Unlock()

	return watcher.Stop()
}

// Reload loads the file now. It is called by the watcher on change and
// may be called directly, for example on SIGHUP.
func (w *ConfigWatcher) Reload() {
	w.mu.RLock()
	reloadCallback := w.onReloadCallback
	errorCallback := w.onErrorCallback
	w.mu.RUnlock()

	cfg, err := config.Load(w.path)
	if err != nil {
		w.logger.Warn("config file changed but validation failed", "path", w.path, "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	w.logger.Info("config reloaded", "path", w.path)
	if reloadCallback != nil {
		reloadCallback(cfg)
	}
}
