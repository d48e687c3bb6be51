package audio

import (
	"log/slog"
	"sync"

	"github.com/jmylchreest/notiwin/internal/config"
	"github.com/jmylchreest/notiwin/internal/model"
	"github.com/jmylchreest/notiwin/internal/watch"
)

// soundPlayer is the subset of *Player the manager uses.
type soundPlayer interface {
	Play(path string) error
	Preload(path string) error
	Invalidate(path string)
	SetVolume(volume float64)
	Close()
}

// Manager plays the configured error sound when an error message is shown.
type Manager struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	player  soundPlayer
	watcher *watch.FileWatcher
	config  config.AudioConfig
	watched string
	wg      sync.WaitGroup
}

// NewManager creates a new audio manager.
func NewManager(cfg config.AudioConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return newManager(cfg, NewPlayer(logger), logger)
}

func newManager(cfg config.AudioConfig, player soundPlayer, logger *slog.Logger) *Manager {
	m := &Manager{
		logger: logger,
		player: player,
		config: cfg,
	}
	player.SetVolume(volumeFraction(cfg.Volume))
	return m
}

// volumeFraction converts the 0-100 config volume to 0.0-1.0.
func volumeFraction(volume int) float64 {
	return float64(volume) / 100
}

// Start preloads the error sound and watches it for changes so edits are
// picked up without a restart. A missing watcher only disables reloading.
func (m *Manager) Start() error {
	w, err := watch.New(0, m.logger)
	if err != nil {
		m.logger.Warn("sound file watching disabled", "error", err)
	} else {
		m.mu.Lock()
		m.watcher = w
		m.mu.Unlock()
		w.Start()
	}

	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()
	m.prepare(cfg)

	m.logger.Info("audio manager started", "enabled", cfg.Enabled, "error_sound", cfg.ErrorSoundPath())
	return nil
}

// Stop waits for sounds being started, then releases the speaker.
func (m *Manager) Stop() {
	m.mu.Lock()
	w := m.watcher
	m.watcher = nil
	m.mu.Unlock()

	if w != nil {
		if err := w.Stop(); err != nil {
			m.logger.Debug("failed to stop sound watcher", "error", err)
		}
	}
	m.wg.Wait()
	m.player.Close()
	m.logger.Debug("audio manager stopped")
}

// UpdateConfig applies a reloaded configuration.
func (m *Manager) UpdateConfig(cfg config.AudioConfig) {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()

	m.player.SetVolume(volumeFraction(cfg.Volume))
	m.prepare(cfg)
	m.logger.Debug("audio config updated", "enabled", cfg.Enabled, "volume", cfg.Volume)
}

// OnAccept plays the error sound for error messages. It is installed as
// the controller accept hook, so playback starts on its own goroutine.
func (m *Manager) OnAccept(n model.Notification) {
	if !n.Severity.IsError() {
		return
	}

	m.mu.RLock()
	enabled := m.config.Enabled
	path := m.config.ErrorSoundPath()
	m.mu.RUnlock()

	if !enabled || path == "" {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.player.Play(path); err != nil {
			m.logger.Warn("failed to play error sound", "path", path, "error", err)
		}
	}()
}

// prepare preloads the sound and moves the file watch to it.
func (m *Manager) prepare(cfg config.AudioConfig) {
	path := cfg.ErrorSoundPath()

	m.mu.Lock()
	w := m.watcher
	previous := m.watched
	m.watched = path
	m.mu.Unlock()

	if previous != "" && previous != path {
		m.player.Invalidate(previous)
		if w != nil {
			w.Unwatch(previous)
		}
	}
	if path == "" || !cfg.Enabled {
		return
	}

	if err := m.player.Preload(path); err != nil {
		m.logger.Warn("failed to preload error sound", "path", path, "error", err)
	}
	if w != nil {
		if err := w.Watch(path, func() { m.player.Invalidate(path) }); err != nil {
			m.logger.Warn("failed to watch error sound", "path", path, "error", err)
		}
	}
}
