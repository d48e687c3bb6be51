// Package timer provides a periodic tick source that can be paused and
// resumed around critical sections.
package timer

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Errors returned by StartPeriodic.
var (
	ErrAlreadyRunning  = errors.New("timer already running")
	ErrInvalidInterval = errors.New("timer interval must be positive")
)

// Coordinator wraps a single periodic tick source with an enabled flag.
// Ticks are delivered serially on the coordinator's own goroutine and are
// dropped while the coordinator is paused.
type Coordinator struct {
	mu     sync.Mutex
	logger *slog.Logger

	interval time.Duration
	onTick   func()
	enabled  bool
	running  bool
	missed   bool

	// Control channels
	stopCh    chan struct{}
	doneCh    chan struct{}
	catchUpCh chan struct{}
}

// NewCoordinator creates a stopped Coordinator.
func NewCoordinator(logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	done := make(chan struct{})
	close(done)
	return &Coordinator{
		logger: logger,
		doneCh: done,
	}
}

// StartPeriodic starts delivering onTick every interval. The coordinator is
// enabled on return.
func (c *Coordinator) StartPeriodic(interval time.Duration, onTick func()) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}

	c.interval = interval
	c.onTick = onTick
	c.enabled = true
	c.running = true
	c.missed = false
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.catchUpCh = make(chan struct{}, 1)

	go c.loop(interval, c.stopCh, c.doneCh, c.catchUpCh)
	return nil
}

// Stop stops the tick source. It does not wait for the loop to exit, so it
// is safe to call from inside onTick; use Done to wait. Calling Stop more
// than once is harmless.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.running = false
	c.enabled = false
	close(c.stopCh)
}

// Done returns a channel closed once the tick goroutine has exited.
func (c *Coordinator) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doneCh
}

// Enabled reports whether ticks are currently delivered.
func (c *Coordinator) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Pause disables tick delivery and returns whether it was enabled.
func (c *Coordinator) Pause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	was := c.enabled
	c.enabled = false
	return was
}

// Resume restores the state returned by the matching Pause. The interval
// phase is kept; a tick that fell due while paused is delivered once on
// re-enable.
func (c *Coordinator) Resume(wasEnabled bool) {
	if !wasEnabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.enabled {
		return
	}
	c.enabled = true
	if !c.missed {
		return
	}
	c.missed = false

	select {
	case c.catchUpCh <- struct{}{}:
	default:
		// Catch-up already pending
	}
}

// Suspend pauses the coordinator and returns a Guard that resumes it.
//
//	guard := c.Suspend()
//	defer guard.Release()
func (c *Coordinator) Suspend() *Guard {
	return &Guard{c: c, wasEnabled: c.Pause()}
}

// loop is the tick loop. Channels are passed in so a restarted coordinator
// never shares them with an exiting loop.
func (c *Coordinator) loop(interval time.Duration, stopCh, doneCh, catchUpCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-catchUpCh:
			c.fire()
		case <-ticker.C:
			c.fire()
		}
	}
}

// fire delivers one tick if enabled, otherwise remembers it for Resume.
func (c *Coordinator) fire() {
	c.mu.Lock()
	fire := c.enabled && c.running
	if c.running && !c.enabled {
		c.missed = true
	}
	fn := c.onTick
	c.mu.Unlock()

	if fire && fn != nil {
		c.tick(fn)
	}
}

// tick runs fn, recovering from panics so one bad tick does not kill the loop.
func (c *Coordinator) tick(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("timer callback panicked", "panic", r)
		}
	}()
	fn()
}

// Guard is a scoped pause of a Coordinator.
type Guard struct {
	c          *Coordinator
	wasEnabled bool
	once       sync.Once
}

// WasEnabled reports whether the coordinator was enabled when suspended.
func (g *Guard) WasEnabled() bool {
	return g.wasEnabled
}

// Release resumes the coordinator. Only the first call has an effect.
func (g *Guard) Release() {
	g.once.Do(func() {
		g.c.Resume(g.wasEnabled)
	})
}
