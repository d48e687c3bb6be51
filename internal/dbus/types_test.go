package dbus

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/notiwin/internal/metrics"
	"github.com/jmylchreest/notiwin/internal/model"
)

func TestCloseReasonString(t *testing.T) {
	tests := []struct {
		reason   CloseReason
		expected string
	}{
		{CloseReasonExpired, "expired"},
		{CloseReasonDismissed, "dismissed"},
		{CloseReasonClosed, "closed"},
		{CloseReasonUndefined, "undefined"},
		{CloseReason(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.reason.String())
		})
	}
}

func TestCloseReasonFor(t *testing.T) {
	assert.Equal(t, CloseReasonExpired, CloseReasonFor(metrics.CloseReasonExpired))
	assert.Equal(t, CloseReasonDismissed, CloseReasonFor(metrics.CloseReasonDismissed))
	assert.Equal(t, CloseReasonClosed, CloseReasonFor(metrics.CloseReasonShutdown))
	assert.Equal(t, CloseReasonUndefined, CloseReasonFor(metrics.CloseReasonFailed))
	assert.Equal(t, CloseReasonUndefined, CloseReasonFor("other"))
}

func TestUrgencyAndSeverity(t *testing.T) {
	tests := []struct {
		name     string
		hints    map[string]dbus.Variant
		urgency  int
		severity model.Severity
	}{
		{
			name:     "no hint",
			urgency:  UrgencyNormal,
			severity: model.SeverityInfo,
		},
		{
			name:     "low urgency",
			hints:    map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(0))},
			urgency:  UrgencyLow,
			severity: model.SeverityInfo,
		},
		{
			name:     "normal urgency",
			hints:    map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(1))},
			urgency:  UrgencyNormal,
			severity: model.SeverityInfo,
		},
		{
			name:     "critical urgency",
			hints:    map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(2))},
			urgency:  UrgencyCritical,
			severity: model.SeverityError,
		},
		{
			name:     "wrong type returns normal",
			hints:    map[string]dbus.Variant{"urgency": dbus.MakeVariant("high")},
			urgency:  UrgencyNormal,
			severity: model.SeverityInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &DBusNotification{Hints: tt.hints}
			assert.Equal(t, tt.urgency, n.Urgency())
			assert.Equal(t, tt.severity, n.Severity())
		})
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		summary, body, want string
	}{
		{"Backup", "finished in 3m", "Backup: finished in 3m"},
		{"Backup", "", "Backup"},
		{"", "finished", "finished"},
		{"", "", ""},
	}

	for _, tt := range tests {
		n := &DBusNotification{Summary: tt.summary, Body: tt.body}
		assert.Equal(t, tt.want, n.Text())
	}
}

func TestDefaultServerInfo(t *testing.T) {
	info := DefaultServerInfo()
	assert.Equal(t, "notiwind", info.Name)
	assert.Equal(t, "notiwin", info.Vendor)
	assert.Equal(t, "1.2", info.SpecVersion)
	assert.NotEmpty(t, info.Version)
}

func TestServerCapabilities(t *testing.T) {
	assert.Equal(t, []string{"body"}, ServerCapabilities)
}
