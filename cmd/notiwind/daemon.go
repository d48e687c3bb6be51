package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
	"github.com/hashicorp/go-multierror"

	"github.com/jmylchreest/notiwin/internal/audio"
	"github.com/jmylchreest/notiwin/internal/config"
	"github.com/jmylchreest/notiwin/internal/daemon"
	"github.com/jmylchreest/notiwin/internal/dbus"
	"github.com/jmylchreest/notiwin/internal/display"
	"github.com/jmylchreest/notiwin/internal/logging"
	"github.com/jmylchreest/notiwin/internal/metrics"
	"github.com/jmylchreest/notiwin/internal/popup"
)

const shutdownTimeout = 5 * time.Second

// busService is the D-Bus side: the notification server or a monitor.
type busService interface {
	Start() error
	Stop() error
}

// services holds everything started in the activate handler. Fields are
// written on the GTK main loop before running is set.
type services struct {
	controller *popup.Controller
	bus        busService
	audio      *audio.Manager
	config     *daemon.ConfigWatcher
	metrics    *metricsServer
}

// stop shuts services down in reverse dependency order: input first, then
// the popup, then the helpers it calls.
func (s *services) stop(logger *slog.Logger) error {
	var result *multierror.Error

	if s.config != nil {
		if err := s.config.Stop(); err != nil {
			result = multierror.Append(result, fmt.Errorf("config watcher: %w", err))
		}
	}
	if s.bus != nil {
		if err := s.bus.Stop(); err != nil {
			result = multierror.Append(result, fmt.Errorf("d-bus: %w", err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.controller != nil {
		if err := s.controller.Stop(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("popup controller: %w", err))
		}
	}
	if s.audio != nil {
		s.audio.Stop()
	}
	if s.metrics != nil {
		s.metrics.Shutdown(ctx)
	}

	logger.Info("services stopped")
	return result.ErrorOrNil()
}

func run() error {
	logger := logging.Setup(opts.verbose)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}

	logger.Info("starting notiwind", "version", version, "monitor", opts.monitor)

	app := adw.NewApplication(appID, 0)

	var (
		svc     services
		running atomic.Bool
	)

	app.ConnectActivate(func() {
		if running.Load() {
			logger.Warn("application already running")
			return
		}

		if err := activate(app, cfg, &svc, logger); err != nil {
			logger.Error("failed to start", "error", err)
			go func() {
				_ = svc.stop(logger)
				glib.IdleAdd(app.Quit)
			}()
			return
		}
		running.Store(true)

		// Holds the application open while no popup is visible.
		keepAliveWindow := gtk.NewWindow()
		keepAliveWindow.SetApplication(&app.Application)
		keepAliveWindow.SetDefaultSize(1, 1)
		keepAliveWindow.SetDecorated(false)
		keepAliveWindow.SetVisible(false)

		logger.Info("notiwind ready", "dbus_interface", dbus.DBusInterface)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				if running.Load() && svc.config != nil {
					logger.Info("received SIGHUP, reloading config")
					svc.config.Reload()
				}
				continue
			}

			logger.Info("received signal, shutting down", "signal", sig)
			// Controller.Stop waits for fades, which post to the main
			// loop, so it must not run there.
			if running.Load() {
				if err := svc.stop(logger); err != nil {
					logger.Warn("errors during shutdown", "error", err)
				}
			}
			glib.IdleAdd(app.Quit)
			return
		}
	}()

	// GTK must not see our flags.
	status := app.Run(os.Args[:1])
	if status != 0 {
		return fmt.Errorf("application exited with status %d", status)
	}
	logger.Info("notiwind stopped")
	return nil
}

// activate builds and starts the services on the GTK main loop.
func activate(app *adw.Application, cfg *config.Config, svc *services, logger *slog.Logger) error {
	factory := display.NewFactory(&app.Application, cfg.Display, logger)
	if err := factory.Check(); err != nil {
		return err
	}

	registry := newRegistry()
	popupMetrics, err := metrics.NewPopupMetrics(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	if cfg.Metrics.Addr != "" {
		svc.metrics = startMetricsServer(cfg.Metrics.Addr, registry, logger)
	}

	svc.audio = audio.NewManager(cfg.Audio, logger)
	if err := svc.audio.Start(); err != nil {
		logger.Warn("failed to start audio manager", "error", err)
	}

	var server *dbus.NotificationServer
	options := []popup.Option{
		popup.WithMetrics(popupMetrics),
		popup.WithAcceptHook(svc.audio.OnAccept),
	}
	if !opts.monitor {
		options = append(options, popup.WithCloseHook(func(reason string) {
			server.PopupClosed(reason)
		}))
	}
	svc.controller = popup.NewController(cfg, factory, logger, options...)

	if opts.monitor {
		svc.bus = dbus.NewMonitor(svc.controller, cfg.DBus, popupMetrics, logger)
	} else {
		server = dbus.NewNotificationServer(svc.controller, cfg.DBus, popupMetrics, logger)
		server.SetServerInfo(dbus.ServerInfo{
			Name:        "notiwind",
			Vendor:      "notiwin",
			Version:     version,
			SpecVersion: "1.2",
		})
		svc.bus = server
	}

	if err := svc.controller.Start(); err != nil {
		return fmt.Errorf("failed to start popup controller: %w", err)
	}
	if cfg.DBus.Enabled || opts.monitor {
		if err := svc.bus.Start(); err != nil {
			return fmt.Errorf("failed to start d-bus: %w", err)
		}
	}

	notifier := daemon.NewInternalNotifier(svc.controller, logger)

	svc.config = daemon.NewConfigWatcher(opts.configPath, cfg, logger)
	svc.config.SetReloadCallback(func(newConfig *config.Config) {
		svc.controller.UpdateConfig(newConfig)
		factory.UpdateConfig(newConfig.Display)
		svc.audio.UpdateConfig(newConfig.Audio)
		if server != nil {
			server.UpdateConfig(newConfig.DBus)
		}
		notifier.NotifyConfigReloaded()
	})
	svc.config.SetErrorCallback(notifier.NotifyConfigError)
	if err := svc.config.Start(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	return nil
}
