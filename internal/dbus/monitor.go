package dbus

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"golang.org/x/time/rate"

	"github.com/jmylchreest/notiwin/internal/config"
	"github.com/jmylchreest/notiwin/internal/metrics"
)

// Monitor passively observes Notify calls to another notification daemon
// and mirrors them as popup messages without claiming the bus name.
type Monitor struct {
	conn    *dbus.Conn
	logger  *slog.Logger
	sink    Sink
	metrics *metrics.PopupMetrics
	limiter *rate.Limiter
}

// NewMonitor creates a new notification monitor.
func NewMonitor(sink Sink, cfg config.DBusConfig, m *metrics.PopupMetrics, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		logger:  logger,
		sink:    sink,
		metrics: m,
		limiter: rate.NewLimiter(rateLimit(cfg), burst(cfg)),
	}
}

// Start begins monitoring D-Bus for notification traffic.
func (m *Monitor) Start() error {
	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	if err := conn.Hello(); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to register on bus: %w", err)
	}
	m.conn = conn

	rules := []string{
		"type='method_call',interface='org.freedesktop.Notifications',member='Notify'",
	}

	err = conn.BusObject().Call(
		"org.freedesktop.DBus.Monitoring.BecomeMonitor",
		0,
		rules,
		uint32(0),
	).Err
	if err != nil {
		// Older buses lack BecomeMonitor.
		m.logger.Warn("BecomeMonitor not available, trying AddMatch", "error", err)
		return m.startWithAddMatch()
	}

	m.logger.Info("started D-Bus monitor using BecomeMonitor")
	go m.processMessages()
	return nil
}

// startWithAddMatch uses the older AddMatch API for eavesdropping.
func (m *Monitor) startWithAddMatch() error {
	matchRule := "type='method_call',interface='org.freedesktop.Notifications',member='Notify',eavesdrop='true'"

	err := m.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchRule).Err
	if err != nil {
		return fmt.Errorf("failed to add match rule (eavesdrop may require permissions): %w", err)
	}

	m.logger.Info("started D-Bus monitor using AddMatch with eavesdrop")
	go m.processMessages()
	return nil
}

// processMessages reads messages until the connection closes.
func (m *Monitor) processMessages() {
	ch := make(chan *dbus.Message, 100)
	m.conn.Eavesdrop(ch)

	for msg := range ch {
		if msg.Type != dbus.TypeMethodCall {
			continue
		}
		if msg.Headers[dbus.FieldInterface].Value() != DBusInterface {
			continue
		}
		if msg.Headers[dbus.FieldMember].Value() != "Notify" {
			continue
		}
		m.handleNotify(msg.Body)
	}
}

// handleNotify forwards one observed Notify call.
func (m *Monitor) handleNotify(body []any) {
	notification, err := parseNotify(body)
	if err != nil {
		m.logger.Warn("malformed Notify call", "error", err)
		return
	}

	if !m.limiter.Allow() {
		m.metrics.RecordDropped(metrics.DropReasonLimited)
		return
	}

	m.logger.Debug("captured notification", "app", notification.AppName, "urgency", notification.Urgency())
	m.sink.Add(notification.Severity(), notification.Text())
}

// parseNotify decodes the Notify(susssasa{sv}i) arguments.
func parseNotify(body []any) (*DBusNotification, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("expected 8 arguments, got %d", len(body))
	}

	n := &DBusNotification{}
	var ok bool
	if n.AppName, ok = body[0].(string); !ok {
		return nil, fmt.Errorf("invalid app_name type %T", body[0])
	}
	if n.ReplacesID, ok = body[1].(uint32); !ok {
		return nil, fmt.Errorf("invalid replaces_id type %T", body[1])
	}
	if n.AppIcon, ok = body[2].(string); !ok {
		return nil, fmt.Errorf("invalid app_icon type %T", body[2])
	}
	if n.Summary, ok = body[3].(string); !ok {
		return nil, fmt.Errorf("invalid summary type %T", body[3])
	}
	if n.Body, ok = body[4].(string); !ok {
		return nil, fmt.Errorf("invalid body type %T", body[4])
	}
	if actions, ok := body[5].([]string); ok {
		n.Actions = actions
	}
	if hints, ok := body[6].(map[string]dbus.Variant); ok {
		n.Hints = hints
	}
	if timeout, ok := body[7].(int32); ok {
		n.ExpireTimeout = timeout
	}
	return n, nil
}

// Stop closes the monitor connection.
func (m *Monitor) Stop() error {
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}
