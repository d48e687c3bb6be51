package daemon

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jmylchreest/notiwin/internal/model"
)

// DefaultMinInterval is how long the same internal message is suppressed.
const DefaultMinInterval = 5 * time.Second

// Poster accepts messages for display. *popup.Controller satisfies it.
type Poster interface {
	Add(severity model.Severity, text string)
}

// InternalNotifier posts messages about notiwind itself to the popup.
// Each key is rate limited so a flapping condition cannot flood the screen.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	poster Poster
	now    func() time.Time

	limiters    map[string]*rate.Limiter
	minInterval time.Duration
	enabled     bool
}

// NewInternalNotifier creates an InternalNotifier posting to poster.
func NewInternalNotifier(poster Poster, logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:      logger,
		poster:      poster,
		now:         time.Now,
		limiters:    make(map[string]*rate.Limiter),
		minInterval: DefaultMinInterval,
		enabled:     true,
	}
}

// SetEnabled enables or disables internal messages.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between messages with the same key.
// Existing limiters are discarded.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
	n.limiters = make(map[string]*rate.Limiter)
}

// Notify posts text unless key was used within the minimum interval.
// It reports whether the message was posted.
func (n *InternalNotifier) Notify(key string, severity model.Severity, text string) bool {
	n.mu.Lock()
	if !n.enabled || n.poster == nil {
		n.mu.Unlock()
		return false
	}

	limiter, ok := n.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(n.minInterval), 1)
		n.limiters[key] = limiter
	}
	if !limiter.AllowN(n.now(), 1) {
		n.mu.Unlock()
		n.logger.Debug("internal message rate-limited", "key", key)
		return false
	}
	poster := n.poster
	n.mu.Unlock()

	n.logger.Debug("posting internal message", "key", key, "severity", severity)
	poster.Add(severity, text)
	return true
}

// NotifyStartup announces that the daemon is running.
func (n *InternalNotifier) NotifyStartup(version string) {
	n.Notify("startup", model.SeverityInfo, "notiwind "+version+" started")
}

// NotifyConfigReloaded reports a successful configuration reload.
func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify("config-reload", model.SeverityInfo, "Configuration reloaded")
}

// NotifyConfigError reports a configuration file that failed to load.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify("config-error", model.SeverityError, "Configuration error: "+err.Error())
}
