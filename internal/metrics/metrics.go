// Package metrics provides Prometheus metrics for the popup lifecycle.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Close reasons.
const (
	CloseReasonExpired   = "expired"
	CloseReasonDismissed = "dismissed"
	CloseReasonShutdown  = "shutdown"
	CloseReasonFailed    = "failed"
)

// Drop reasons.
const (
	DropReasonFormat  = "format"
	DropReasonStopped = "stopped"
	DropReasonPanic   = "panic"
	DropReasonLimited = "rate_limited"
	DropReasonFailed  = "failed"
)

// PopupMetrics contains all Prometheus metrics for notification popups.
// A nil *PopupMetrics is valid and records nothing.
type PopupMetrics struct {
	NotificationsAdded   *prometheus.CounterVec
	NotificationsEvicted prometheus.Counter
	NotificationsDropped *prometheus.CounterVec
	PopupsOpened         prometheus.Counter
	PopupsClosed         *prometheus.CounterVec
	VisibleGauge         prometheus.Gauge
	FadeDuration         prometheus.Histogram
}

// NewPopupMetrics creates the popup metrics and registers them with registry.
func NewPopupMetrics(registry prometheus.Registerer) (*PopupMetrics, error) {
	m := &PopupMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register popup metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for PopupMetrics.
func (m *PopupMetrics) initMetrics() {
	m.NotificationsAdded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notiwin_notifications_added_total",
			Help: "Total number of notifications shown, partitioned by severity.",
		},
		[]string{"severity"},
	)
	m.NotificationsEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notiwin_notifications_evicted_total",
			Help: "Total number of notifications removed after their lifetime ended.",
		},
	)
	m.NotificationsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notiwin_notifications_dropped_total",
			Help: "Total number of notifications that were never shown, partitioned by reason.",
		},
		[]string{"reason"},
	)
	m.PopupsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notiwin_popups_opened_total",
			Help: "Total number of popup windows opened.",
		},
	)
	m.PopupsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notiwin_popups_closed_total",
			Help: "Total number of popup windows closed, partitioned by reason.",
		},
		[]string{"reason"},
	)
	m.VisibleGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notiwin_notifications_visible",
			Help: "Number of notifications currently shown.",
		},
	)
	m.FadeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notiwin_fade_duration_seconds",
			Help:    "Wall time spent fading out closing popups.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8), // 50ms to ~6.4s
		},
	)
}

// Describe implements the prometheus.Collector interface.
func (m *PopupMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.NotificationsAdded.Describe(ch)
	ch <- m.NotificationsEvicted.Desc()
	m.NotificationsDropped.Describe(ch)
	ch <- m.PopupsOpened.Desc()
	m.PopupsClosed.Describe(ch)
	ch <- m.VisibleGauge.Desc()
	ch <- m.FadeDuration.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *PopupMetrics) Collect(ch chan<- prometheus.Metric) {
	m.NotificationsAdded.Collect(ch)
	ch <- m.NotificationsEvicted
	m.NotificationsDropped.Collect(ch)
	ch <- m.PopupsOpened
	m.PopupsClosed.Collect(ch)
	ch <- m.VisibleGauge
	ch <- m.FadeDuration
}

// RecordAdded counts a shown notification.
func (m *PopupMetrics) RecordAdded(severity string) {
	if m == nil {
		return
	}
	m.NotificationsAdded.WithLabelValues(severity).Inc()
}

// RecordEvicted counts expired notifications.
func (m *PopupMetrics) RecordEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.NotificationsEvicted.Add(float64(n))
}

// RecordDropped counts a notification that was never shown.
func (m *PopupMetrics) RecordDropped(reason string) {
	if m == nil {
		return
	}
	m.NotificationsDropped.WithLabelValues(reason).Inc()
}

// RecordOpened counts a popup opening.
func (m *PopupMetrics) RecordOpened() {
	if m == nil {
		return
	}
	m.PopupsOpened.Inc()
}

// RecordClosed counts a popup closing and how long its fade took.
func (m *PopupMetrics) RecordClosed(reason string, fade time.Duration) {
	if m == nil {
		return
	}
	m.PopupsClosed.WithLabelValues(reason).Inc()
	m.FadeDuration.Observe(fade.Seconds())
}

// SetVisible records the number of notifications on screen.
func (m *PopupMetrics) SetVisible(n int) {
	if m == nil {
		return
	}
	m.VisibleGauge.Set(float64(n))
}
