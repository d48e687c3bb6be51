package dbus

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"golang.org/x/time/rate"

	"github.com/jmylchreest/notiwin/internal/config"
	"github.com/jmylchreest/notiwin/internal/metrics"
	"github.com/jmylchreest/notiwin/internal/model"
)

const (
	// DBusInterface is the notification interface name.
	DBusInterface = "org.freedesktop.Notifications"
	// DBusPath is the notification object path.
	DBusPath = "/org/freedesktop/Notifications"
	// DBusBusName is the bus name to claim.
	DBusBusName = "org.freedesktop.Notifications"
)

// ErrRateLimited is returned to callers over the configured rate.
var ErrRateLimited = errors.New("notification rate limit exceeded")

// Sink receives notifications. *popup.Controller satisfies it.
type Sink interface {
	Add(severity model.Severity, text string)
	Dismiss()
}

// NotificationServer implements the org.freedesktop.Notifications D-Bus interface.
type NotificationServer struct {
	conn    *dbus.Conn
	logger  *slog.Logger
	sink    Sink
	metrics *metrics.PopupMetrics
	limiter *rate.Limiter

	// ID generation
	nextID atomic.Uint32

	// IDs shown since the last popup closed
	mu         sync.Mutex
	pending    []uint32
	serverInfo ServerInfo
	running    bool
}

// NewNotificationServer creates a new NotificationServer.
func NewNotificationServer(sink Sink, cfg config.DBusConfig, m *metrics.PopupMetrics, logger *slog.Logger) *NotificationServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationServer{
		logger:     logger,
		sink:       sink,
		metrics:    m,
		limiter:    rate.NewLimiter(rateLimit(cfg), burst(cfg)),
		serverInfo: DefaultServerInfo(),
	}
}

func rateLimit(cfg config.DBusConfig) rate.Limit {
	if cfg.RateLimit <= 0 {
		return rate.Inf
	}
	return rate.Limit(cfg.RateLimit)
}

func burst(cfg config.DBusConfig) int {
	return max(cfg.Burst, 1)
}

// SetServerInfo sets the server information returned by GetServerInformation.
func (s *NotificationServer) SetServerInfo(info ServerInfo) {
	s.mu.Lock()
	s.serverInfo = info
	s.mu.Unlock()
}

// UpdateConfig applies new rate limits.
func (s *NotificationServer) UpdateConfig(cfg config.DBusConfig) {
	s.limiter.SetLimit(rateLimit(cfg))
	s.limiter.SetBurst(burst(cfg))
}

// Start connects to the session bus and exports the notification service.
func (s *NotificationServer) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	s.conn = conn

	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: notificationMethods(),
				Signals: notificationSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue|dbus.NameFlagReplaceExisting)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", DBusBusName)
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus notification server started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name.
func (s *NotificationServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(DBusBusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		// Don't close the connection as it's shared (SessionBus)
	}

	s.logger.Info("D-Bus notification server stopped")
	return nil
}

// GetCapabilities returns the list of capabilities supported by this server.
// D-Bus method: GetCapabilities() -> as
func (s *NotificationServer) GetCapabilities() ([]string, *dbus.Error) {
	s.logger.Debug("GetCapabilities called")
	return ServerCapabilities, nil
}

// GetServerInformation returns information about the notification server.
// D-Bus method: GetServerInformation() -> (ssss)
func (s *NotificationServer) GetServerInformation() (string, string, string, string, *dbus.Error) {
	s.logger.Debug("GetServerInformation called")
	s.mu.Lock()
	info := s.serverInfo
	s.mu.Unlock()
	return info.Name, info.Vendor, info.Version, info.SpecVersion, nil
}

// Notify shows a notification as a popup message.
// D-Bus method: Notify(susssasa{sv}i) -> u
func (s *NotificationServer) Notify(
	appName string,
	replacesID uint32,
	appIcon string,
	summary string,
	body string,
	actions []string,
	hints map[string]dbus.Variant,
	expireTimeout int32,
) (uint32, *dbus.Error) {
	notification := &DBusNotification{
		AppName:       appName,
		ReplacesID:    replacesID,
		AppIcon:       appIcon,
		Summary:       summary,
		Body:          body,
		Actions:       actions,
		Hints:         hints,
		ExpireTimeout: expireTimeout,
	}

	id, err := s.accept(notification)
	if err != nil {
		return 0, dbus.MakeFailedError(err)
	}
	return id, nil
}

// accept rate limits a notification and forwards it to the sink.
func (s *NotificationServer) accept(n *DBusNotification) (uint32, error) {
	if !s.limiter.Allow() {
		s.logger.Debug("notification rate limited", "app_name", n.AppName, "summary", n.Summary)
		s.metrics.RecordDropped(metrics.DropReasonLimited)
		return 0, ErrRateLimited
	}

	id := n.ReplacesID
	if id == 0 {
		id = s.nextID.Add(1)
	}

	s.logger.Debug("Notify called",
		"app_name", n.AppName,
		"replaces_id", n.ReplacesID,
		"urgency", n.Urgency(),
		"id", id,
	)

	s.mu.Lock()
	if !slices.Contains(s.pending, id) {
		s.pending = append(s.pending, id)
	}
	s.mu.Unlock()

	s.sink.Add(n.Severity(), n.Text())
	return id, nil
}

// CloseNotification dismisses the popup when id is the newest notification.
// Older notifications only get their NotificationClosed signal; the popup
// rows expire on their own.
// D-Bus method: CloseNotification(u) -> nothing
func (s *NotificationServer) CloseNotification(id uint32) *dbus.Error {
	s.logger.Debug("CloseNotification called", "id", id)

	s.mu.Lock()
	idx := slices.Index(s.pending, id)
	newest := idx >= 0 && idx == len(s.pending)-1
	if idx >= 0 {
		s.pending = slices.Delete(s.pending, idx, idx+1)
	}
	s.mu.Unlock()

	if idx < 0 {
		return nil
	}
	if newest {
		s.sink.Dismiss()
	}
	if err := s.EmitNotificationClosed(id, CloseReasonClosed); err != nil {
		s.logger.Warn("failed to emit NotificationClosed signal", "id", id, "error", err)
	}
	return nil
}

// PopupClosed emits NotificationClosed for every notification shown since
// the previous popup closed. Install it as the controller close hook.
func (s *NotificationServer) PopupClosed(reason string) {
	s.mu.Lock()
	ids := s.pending
	s.pending = nil
	s.mu.Unlock()

	dbusReason := CloseReasonFor(reason)
	for _, id := range ids {
		if err := s.EmitNotificationClosed(id, dbusReason); err != nil {
			s.logger.Debug("failed to emit NotificationClosed signal", "id", id, "error", err)
		}
	}
}

// Pending returns the IDs shown since the last popup closed, oldest first.
func (s *NotificationServer) Pending() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pending)
}

// notificationMethods returns the D-Bus method introspection data.
func notificationMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "GetCapabilities",
			Args: []introspect.Arg{
				{Name: "capabilities", Type: "as", Direction: "out"},
			},
		},
		{
			Name: "GetServerInformation",
			Args: []introspect.Arg{
				{Name: "name", Type: "s", Direction: "out"},
				{Name: "vendor", Type: "s", Direction: "out"},
				{Name: "version", Type: "s", Direction: "out"},
				{Name: "spec_version", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Notify",
			Args: []introspect.Arg{
				{Name: "app_name", Type: "s", Direction: "in"},
				{Name: "replaces_id", Type: "u", Direction: "in"},
				{Name: "app_icon", Type: "s", Direction: "in"},
				{Name: "summary", Type: "s", Direction: "in"},
				{Name: "body", Type: "s", Direction: "in"},
				{Name: "actions", Type: "as", Direction: "in"},
				{Name: "hints", Type: "a{sv}", Direction: "in"},
				{Name: "expire_timeout", Type: "i", Direction: "in"},
				{Name: "id", Type: "u", Direction: "out"},
			},
		},
		{
			Name: "CloseNotification",
			Args: []introspect.Arg{
				{Name: "id", Type: "u", Direction: "in"},
			},
		},
	}
}

// notificationSignals returns the D-Bus signal introspection data.
func notificationSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "NotificationClosed",
			Args: []introspect.Arg{
				{Name: "id", Type: "u"},
				{Name: "reason", Type: "u"},
			},
		},
	}
}
