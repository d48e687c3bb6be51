package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPopupMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m, err := NewPopupMetrics(registry)
	require.NoError(t, err)

	m.RecordAdded("info")
	m.RecordAdded("error")
	m.RecordAdded("error")
	m.RecordEvicted(3)
	m.RecordEvicted(0)
	m.RecordDropped(DropReasonFormat)
	m.RecordOpened()
	m.RecordClosed(CloseReasonExpired, 200*time.Millisecond)
	m.SetVisible(4)

	assert.InDelta(t, 1, testutil.ToFloat64(m.NotificationsAdded.WithLabelValues("info")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.NotificationsAdded.WithLabelValues("error")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.NotificationsEvicted), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NotificationsDropped.WithLabelValues(DropReasonFormat)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PopupsOpened), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PopupsClosed.WithLabelValues(CloseReasonExpired)), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.VisibleGauge), 0)

	count, err := testutil.GatherAndCount(registry, "notiwin_fade_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewPopupMetrics_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()

	_, err := NewPopupMetrics(registry)
	require.NoError(t, err)

	_, err = NewPopupMetrics(registry)
	assert.Error(t, err)
}

func TestPopupMetrics_NilIsNoop(t *testing.T) {
	var m *PopupMetrics

	assert.NotPanics(t, func() {
		m.RecordAdded("info")
		m.RecordEvicted(1)
		m.RecordDropped(DropReasonStopped)
		m.RecordOpened()
		m.RecordClosed(CloseReasonShutdown, time.Second)
		m.SetVisible(1)
	})
}
