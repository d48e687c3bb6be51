package dbus

import (
	"sync"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/notiwin/internal/config"
	"github.com/jmylchreest/notiwin/internal/metrics"
	"github.com/jmylchreest/notiwin/internal/model"
)

type added struct {
	severity model.Severity
	text     string
}

type fakeSink struct {
	mu        sync.Mutex
	added     []added
	dismissed int
}

func (s *fakeSink) Add(severity model.Severity, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.added = append(s.added, added{severity, text})
}

func (s *fakeSink) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dismissed++
}

func unlimited() config.DBusConfig {
	return config.DBusConfig{Enabled: true}
}

func notify(t *testing.T, s *NotificationServer, replacesID uint32, summary, body string, urgency byte) uint32 {
	t.Helper()
	hints := map[string]dbus.Variant{"urgency": dbus.MakeVariant(urgency)}
	id, derr := s.Notify("test", replacesID, "", summary, body, nil, hints, -1)
	require.Nil(t, derr)
	return id
}

func TestNotify_ForwardsToSink(t *testing.T) {
	sink := &fakeSink{}
	s := NewNotificationServer(sink, unlimited(), nil, nil)

	id1 := notify(t, s, 0, "Build", "passed", UrgencyNormal)
	id2 := notify(t, s, 0, "Build", "failed", UrgencyCritical)

	assert.Equal(t, uint32(1), id1)
	assert.Equal(t, uint32(2), id2)
	assert.Equal(t, []added{
		{model.SeverityInfo, "Build: passed"},
		{model.SeverityError, "Build: failed"},
	}, sink.added)
	assert.Equal(t, []uint32{1, 2}, s.Pending())
}

func TestNotify_ReplacesIDKeepsID(t *testing.T) {
	sink := &fakeSink{}
	s := NewNotificationServer(sink, unlimited(), nil, nil)

	id := notify(t, s, 0, "Volume", "40%", UrgencyLow)
	again := notify(t, s, id, "Volume", "50%", UrgencyLow)

	assert.Equal(t, id, again)
	assert.Len(t, sink.added, 2)
	assert.Equal(t, []uint32{id}, s.Pending())
}

func TestNotify_RateLimited(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewPopupMetrics(reg)
	require.NoError(t, err)

	sink := &fakeSink{}
	s := NewNotificationServer(sink, config.DBusConfig{RateLimit: 0.001, Burst: 2}, m, nil)

	notify(t, s, 0, "a", "", UrgencyNormal)
	notify(t, s, 0, "b", "", UrgencyNormal)

	id, derr := s.Notify("test", 0, "", "c", "", nil, nil, -1)
	require.NotNil(t, derr)
	assert.Zero(t, id)
	assert.Contains(t, derr.Error(), ErrRateLimited.Error())

	assert.Len(t, sink.added, 2)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NotificationsDropped.WithLabelValues(metrics.DropReasonLimited)), 0)
}

func TestUpdateConfig_RaisesLimit(t *testing.T) {
	sink := &fakeSink{}
	s := NewNotificationServer(sink, config.DBusConfig{RateLimit: 0.001, Burst: 1}, nil, nil)

	notify(t, s, 0, "a", "", UrgencyNormal)
	_, derr := s.Notify("test", 0, "", "b", "", nil, nil, -1)
	require.NotNil(t, derr)

	s.UpdateConfig(config.DBusConfig{})
	notify(t, s, 0, "c", "", UrgencyNormal)
	assert.Len(t, sink.added, 2)
}

func TestCloseNotification(t *testing.T) {
	sink := &fakeSink{}
	s := NewNotificationServer(sink, unlimited(), nil, nil)

	older := notify(t, s, 0, "one", "", UrgencyNormal)
	newest := notify(t, s, 0, "two", "", UrgencyNormal)

	require.Nil(t, s.CloseNotification(older))
	assert.Zero(t, sink.dismissed)
	assert.Equal(t, []uint32{newest}, s.Pending())

	require.Nil(t, s.CloseNotification(newest))
	assert.Equal(t, 1, sink.dismissed)
	assert.Empty(t, s.Pending())

	require.Nil(t, s.CloseNotification(999))
	assert.Equal(t, 1, sink.dismissed)
}

func TestPopupClosed_ClearsPending(t *testing.T) {
	sink := &fakeSink{}
	s := NewNotificationServer(sink, unlimited(), nil, nil)

	notify(t, s, 0, "one", "", UrgencyNormal)
	notify(t, s, 0, "two", "", UrgencyNormal)

	s.PopupClosed(metrics.CloseReasonExpired)
	assert.Empty(t, s.Pending())

	// A closed id is no longer the newest.
	require.Nil(t, s.CloseNotification(2))
	assert.Zero(t, sink.dismissed)
}

func TestServerInformation(t *testing.T) {
	s := NewNotificationServer(&fakeSink{}, unlimited(), nil, nil)
	s.SetServerInfo(ServerInfo{Name: "n", Vendor: "v", Version: "1.0.0", SpecVersion: "1.2"})

	name, vendor, version, specVersion, derr := s.GetServerInformation()
	require.Nil(t, derr)
	assert.Equal(t, []string{"n", "v", "1.0.0", "1.2"}, []string{name, vendor, version, specVersion})

	caps, derr := s.GetCapabilities()
	require.Nil(t, derr)
	assert.Equal(t, ServerCapabilities, caps)
}

func TestStop_NotRunning(t *testing.T) {
	s := NewNotificationServer(&fakeSink{}, unlimited(), nil, nil)
	assert.NoError(t, s.Stop())
}

func TestParseNotify(t *testing.T) {
	hints := map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(2))}
	n, err := parseNotify([]any{"app", uint32(3), "icon", "Disk", "full", []string{}, hints, int32(-1)})
	require.NoError(t, err)
	assert.Equal(t, "app", n.AppName)
	assert.Equal(t, uint32(3), n.ReplacesID)
	assert.Equal(t, "Disk: full", n.Text())
	assert.Equal(t, model.SeverityError, n.Severity())

	_, err = parseNotify([]any{"app"})
	assert.Error(t, err)

	_, err = parseNotify([]any{1, uint32(0), "", "", "", nil, nil, int32(0)})
	assert.ErrorContains(t, err, "app_name")
}

func TestMonitor_ForwardsNotify(t *testing.T) {
	sink := &fakeSink{}
	m := NewMonitor(sink, unlimited(), nil, nil)

	m.handleNotify([]any{"app", uint32(0), "", "Saved", "", []string{}, map[string]dbus.Variant{}, int32(-1)})
	m.handleNotify([]any{"broken"})

	assert.Equal(t, []added{{model.SeverityInfo, "Saved"}}, sink.added)
	assert.NoError(t, m.Stop())
}
