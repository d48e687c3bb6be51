package dbus

import (
	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/notiwin/internal/metrics"
	"github.com/jmylchreest/notiwin/internal/model"
)

// Urgency levels from the notification specification.
const (
	UrgencyLow      = 0
	UrgencyNormal   = 1
	UrgencyCritical = 2
)

// CloseReason represents the reason for closing a notification.
// These values are defined by the freedesktop.org notification specification.
type CloseReason uint32

const (
	// CloseReasonExpired indicates the notification expired (timeout reached).
	CloseReasonExpired CloseReason = 1
	// CloseReasonDismissed indicates the user dismissed the notification.
	CloseReasonDismissed CloseReason = 2
	// CloseReasonClosed indicates the notification was closed via CloseNotification.
	CloseReasonClosed CloseReason = 3
	// CloseReasonUndefined is reserved by the notification protocol.
	CloseReasonUndefined CloseReason = 4
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// CloseReasonFor maps a popup close reason to the D-Bus close reason.
func CloseReasonFor(reason string) CloseReason {
	switch reason {
	case metrics.CloseReasonExpired:
		return CloseReasonExpired
	case metrics.CloseReasonDismissed:
		return CloseReasonDismissed
	case metrics.CloseReasonShutdown:
		return CloseReasonClosed
	default:
		return CloseReasonUndefined
	}
}

// DBusNotification represents an incoming D-Bus Notify call.
type DBusNotification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// Urgency extracts the urgency hint from the notification.
// Returns UrgencyNormal if not specified.
func (n *DBusNotification) Urgency() int {
	if v, ok := n.Hints["urgency"]; ok {
		if b, ok := v.Value().(byte); ok {
			return int(b)
		}
	}
	return UrgencyNormal
}

// Severity maps critical urgency to an error message.
func (n *DBusNotification) Severity() model.Severity {
	if n.Urgency() == UrgencyCritical {
		return model.SeverityError
	}
	return model.SeverityInfo
}

// Text returns the popup row text, "summary: body" when both are set.
func (n *DBusNotification) Text() string {
	switch {
	case n.Body == "":
		return n.Summary
	case n.Summary == "":
		return n.Body
	default:
		return n.Summary + ": " + n.Body
	}
}

// ServerCapabilities lists the capabilities advertised by notiwind.
var ServerCapabilities = []string{
	"body", // Support body text
}

// ServerInfo contains information about the notification server.
type ServerInfo struct {
	Name        string // "notiwind"
	Vendor      string // "notiwin"
	Version     string // Build version
	SpecVersion string // "1.2"
}

// DefaultServerInfo returns the default server information.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Name:        "notiwind",
		Vendor:      "notiwin",
		Version:     "0.0.1", // Will be replaced by build-time version
		SpecVersion: "1.2",
	}
}
