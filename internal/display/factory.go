package display

import (
	"log/slog"
	"sync"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/notiwin/internal/config"
	"github.com/jmylchreest/notiwin/internal/popup"
)

// Factory creates GTK popups for the controller.
type Factory struct {
	app    *gtk.Application
	logger *slog.Logger

	mu     sync.RWMutex
	config config.DisplayConfig
}

// NewFactory creates a popup factory bound to a GTK application.
func NewFactory(app *gtk.Application, cfg config.DisplayConfig, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		app:    app,
		config: cfg,
		logger: logger,
	}
}

// Check reports whether a display is available. Call it on the GTK main loop.
func (f *Factory) Check() error {
	if gdk.DisplayGetDefault() == nil {
		return &DisplayError{Message: "no display available"}
	}
	return nil
}

// UpdateConfig applies display settings to popups created from now on.
func (f *Factory) UpdateConfig(cfg config.DisplayConfig) {
	f.mu.Lock()
	f.config = cfg
	f.mu.Unlock()
	f.logger.Debug("display config updated", "position", cfg.Position, "width", cfg.Width)
}

// NewPresenter schedules window creation on the GTK main loop and returns
// without waiting for it.
func (f *Factory) NewPresenter(instanceID string, dismiss func()) (popup.Presenter, error) {
	if f.app == nil {
		return nil, &DisplayError{Message: "no GTK application"}
	}

	f.mu.RLock()
	cfg := f.config
	f.mu.RUnlock()

	p := newPopup(f.app, instanceID, cfg, dismiss, f.logger)
	glib.IdleAdd(p.build)
	return p, nil
}
