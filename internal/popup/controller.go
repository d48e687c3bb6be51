package popup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/jmylchreest/notiwin/internal/config"
	"github.com/jmylchreest/notiwin/internal/fade"
	"github.com/jmylchreest/notiwin/internal/metrics"
	"github.com/jmylchreest/notiwin/internal/model"
	"github.com/jmylchreest/notiwin/internal/store"
	"github.com/jmylchreest/notiwin/internal/timer"
)

// Option configures a Controller.
type Option func(*Controller)

// WithMetrics records lifecycle metrics.
func WithMetrics(m *metrics.PopupMetrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithAnimator replaces the fade animator.
func WithAnimator(a *fade.Animator) Option {
	return func(c *Controller) {
		c.animator = a
	}
}

// WithClock sets the clock used to stamp and expire messages.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithAcceptHook sets a function called after each message is shown.
// It runs on the worker goroutine and should return quickly.
func WithAcceptHook(fn func(model.Notification)) Option {
	return func(c *Controller) {
		c.onAccept = fn
	}
}

// WithCloseHook sets a function called after a popup has closed, with the
// close reason from the metrics package.
func WithCloseHook(fn func(reason string)) Option {
	return func(c *Controller) {
		c.onClose = fn
	}
}

// request is one queued message.
type request struct {
	text     string
	severity model.Severity
}

// Controller owns the popup lifecycle. There is at most one visible popup
// instance; instances that are closing are detached and never receive new
// messages.
type Controller struct {
	mu       sync.Mutex
	cfg      *config.Config
	logger   *slog.Logger
	factory  PresenterFactory
	animator *fade.Animator
	metrics  *metrics.PopupMetrics
	now      func() time.Time
	onAccept func(model.Notification)
	onClose  func(reason string)

	current *instance
	closing int
	closeWG sync.WaitGroup

	requests    chan request
	fadeCtx     context.Context
	cancelFades context.CancelFunc

	// Control channels
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	stopped bool
}

// NewController creates a Controller. Call Start to begin processing messages.
func NewController(cfg *config.Config, factory PresenterFactory, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	queueSize := cfg.Popup.QueueSize
	if queueSize < 1 {
		queueSize = config.DefaultQueueSize
	}

	fadeCtx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:         cfg,
		logger:      logger,
		factory:     factory,
		now:         time.Now,
		requests:    make(chan request, queueSize),
		fadeCtx:     fadeCtx,
		cancelFades: cancel,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.animator == nil {
		c.animator = fade.NewAnimator(logger)
	}
	return c
}

// Start starts the worker goroutine. Messages added before Start wait in
// the queue.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrStopped
	}
	if c.running {
		return nil
	}
	c.running = true

	go c.run()

	c.logger.Debug("popup controller started", "queue_size", cap(c.requests))
	return nil
}

// Stop discards queued messages, closes any visible popup without fading
// and waits for popups that are already fading out. If ctx ends first,
// running fades are cut short and ctx.Err() is returned.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	wasRunning := c.running
	close(c.stopCh)
	c.mu.Unlock()

	if wasRunning {
		<-c.doneCh
	}

	if dropped := c.discardQueued(); dropped > 0 {
		c.logger.Debug("discarded queued messages", "count", dropped)
	}

	c.mu.Lock()
	inst := c.current
	if inst != nil {
		c.detachLocked(inst)
	}
	c.mu.Unlock()

	if inst != nil {
		c.teardown(inst, 0, metrics.CloseReasonShutdown)
	}

	waitCh := make(chan struct{})
	go func() {
		c.closeWG.Wait()
		close(waitCh)
	}()

	var err error
	select {
	case <-waitCh:
	case <-ctx.Done():
		err = ctx.Err()
		c.cancelFades()
		<-waitCh
	}
	c.cancelFades()

	c.logger.Debug("popup controller stopped")
	return err
}

// AddMessage shows an Info message. Safe to call from any goroutine.
// The message is formatted with fmt.Sprintf; without args format is used
// verbatim.
func (c *Controller) AddMessage(format string, args ...any) {
	c.add(model.SeverityInfo, format, args...)
}

// AddErrorMessage shows an Error message, which turns the popup background
// to the error colour while it is shown. Safe to call from any goroutine.
func (c *Controller) AddErrorMessage(format string, args ...any) {
	c.add(model.SeverityError, format, args...)
}

// Add shows a message with the given severity.
func (c *Controller) Add(severity model.Severity, text string) {
	c.enqueue(request{text: text, severity: severity})
}

// Dismiss closes the visible popup early using the dismiss fade.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	inst := c.current
	c.mu.Unlock()

	if inst != nil {
		c.dismiss(inst)
	}
}

// UpdateConfig replaces the configuration. The visible popup picks up the
// new ttl and colours on its next poll; the poll interval applies to popups
// opened afterwards.
func (c *Controller) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

// State returns the state of the visible popup, StateClosing while only
// detached popups are fading out, and StateClosed otherwise.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return c.current.state
	}
	if c.closing > 0 {
		return StateClosing
	}
	return StateClosed
}

// Count returns the number of messages in the visible popup.
func (c *Controller) Count() int {
	c.mu.Lock()
	inst := c.current
	c.mu.Unlock()

	if inst == nil {
		return 0
	}
	return inst.store.Count()
}

// add formats and enqueues a message.
func (c *Controller) add(severity model.Severity, format string, args ...any) {
	text, err := FormatMessage(format, args...)
	if err != nil {
		c.logger.Warn("dropping message", "severity", severity, "format", format, "error", err)
		c.metrics.RecordDropped(metrics.DropReasonFormat)
		return
	}
	c.enqueue(request{text: text, severity: severity})
}

// enqueue blocks while the queue is full, until the worker catches up or
// the controller stops.
func (c *Controller) enqueue(req request) {
	select {
	case <-c.stopCh:
		c.dropStopped(req)
		return
	default:
	}

	select {
	case c.requests <- req:
	case <-c.stopCh:
		c.dropStopped(req)
	}
}

func (c *Controller) dropStopped(req request) {
	c.logger.Debug("dropping message, controller stopped", "severity", req.severity, "text", req.text)
	c.metrics.RecordDropped(metrics.DropReasonStopped)
}

// discardQueued empties the request queue.
func (c *Controller) discardQueued() int {
	n := 0
	for {
		select {
		case req := <-c.requests:
			c.dropStopped(req)
			n++
		default:
			return n
		}
	}
}

// run is the worker loop.
func (c *Controller) run() {
	defer close(c.doneCh)

	for {
		select {
		case <-c.stopCh:
			return
		case req := <-c.requests:
			c.handleAdd(req)
		}
	}
}

// handleAdd shows one message.
func (c *Controller) handleAdd(req request) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("adding message panicked", "panic", r, "text", req.text)
			c.metrics.RecordDropped(metrics.DropReasonPanic)
		}
	}()

	inst, n, err := c.appendMessage(req)
	if err != nil {
		c.logger.Warn("dropping message", "severity", req.severity, "error", err)
		c.metrics.RecordDropped(metrics.DropReasonFailed)
		return
	}

	c.metrics.RecordAdded(n.Severity.String())
	c.refresh(inst)
	c.notifyAccepted(n)
}

// appendMessage appends req to the visible popup, opening one if needed.
// Holding c.mu while appending means a draining popup can never receive
// the message.
func (c *Controller) appendMessage(req request) (*instance, model.Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst := c.current
	if inst == nil {
		var err error
		inst, err = c.openLocked()
		if err != nil {
			return nil, model.Notification{}, err
		}
	}

	n, err := c.appendLocked(inst, req)
	if err != nil {
		return nil, model.Notification{}, err
	}

	if inst.state == StateOpening {
		interval := c.pollIntervalLocked()
		if err := inst.timer.StartPeriodic(interval, func() { c.poll(inst) }); err != nil {
			// Without a poller the popup would never close.
			c.detachLocked(inst)
			go c.teardown(inst, 0, metrics.CloseReasonFailed)
			return nil, model.Notification{}, fmt.Errorf("failed to start poll timer: %w", err)
		}
		inst.state = StateVisible
		c.metrics.RecordOpened()
		c.logger.Debug("popup opened", "instance", inst.id, "poll_interval", interval)
	}

	return inst, n, nil
}

// pollIntervalLocked returns the configured poll interval, or the default
// when the configuration holds a non-positive one.
// Must be called with c.mu held.
func (c *Controller) pollIntervalLocked() time.Duration {
	interval := c.cfg.Popup.PollInterval.Duration()
	if interval <= 0 {
		c.logger.Warn("invalid poll interval, using default",
			"poll_interval", interval, "default", config.DefaultPollInterval)
		return config.DefaultPollInterval
	}
	return interval
}

// openLocked creates a popup instance and makes it current.
// Must be called with c.mu held.
func (c *Controller) openLocked() (*instance, error) {
	if c.factory == nil {
		return nil, &PresenterError{Op: "create", Message: "no presenter factory"}
	}

	inst := &instance{
		id:    newInstanceID(c.now()),
		store: store.NewStore(store.WithClock(c.now)),
		timer: timer.NewCoordinator(c.logger),
		state: StateOpening,
	}

	p, err := c.factory.NewPresenter(inst.id, func() { c.dismiss(inst) })
	if err != nil {
		return nil, &PresenterError{Op: "create", Message: "failed to create presenter", Cause: err}
	}
	if p == nil {
		return nil, &PresenterError{Op: "create", Message: "factory returned no presenter"}
	}
	inst.presenter = p

	c.current = inst
	return inst, nil
}

// appendLocked appends with the poll timer suspended.
// Must be called with c.mu held.
func (c *Controller) appendLocked(inst *instance, req request) (model.Notification, error) {
	guard := inst.timer.Suspend()
	defer guard.Release()

	return inst.store.TryAppend(req.text, req.severity)
}

// poll runs on the instance's timer goroutine.
func (c *Controller) poll(inst *instance) {
	evicted, fadeFor, drained := c.evict(inst)
	if drained {
		c.logger.Debug("popup drained", "instance", inst.id)
		c.teardown(inst, fadeFor, metrics.CloseReasonExpired)
		return
	}
	if evicted > 0 {
		c.refresh(inst)
	}
}

// evict removes expired messages and detaches the instance once it is empty.
func (c *Controller) evict(inst *instance) (evicted int, fadeFor time.Duration, drained bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != inst {
		// Dismissed or stopped since this tick was scheduled.
		return 0, 0, false
	}

	guard := inst.timer.Suspend()
	before := inst.store.Count()
	remaining := inst.store.EvictExpired(c.cfg.Popup.TTL.Duration())
	evicted = before - remaining
	c.metrics.RecordEvicted(evicted)

	if remaining > 0 {
		guard.Release()
		return evicted, 0, false
	}

	// The timer stays paused; teardown stops it.
	c.detachLocked(inst)
	return evicted, c.cfg.Popup.FadeOut.Duration(), true
}

// dismiss closes inst early if it is still the visible popup.
func (c *Controller) dismiss(inst *instance) {
	c.mu.Lock()
	if c.current != inst {
		c.mu.Unlock()
		return
	}
	c.detachLocked(inst)
	fadeFor := c.cfg.Popup.DismissFade.Duration()
	c.mu.Unlock()

	c.logger.Debug("popup dismissed", "instance", inst.id)
	go c.teardown(inst, fadeFor, metrics.CloseReasonDismissed)
}

// detachLocked makes inst non-current so new messages open a fresh popup.
// Must be called with c.mu held.
func (c *Controller) detachLocked(inst *instance) {
	if c.current == inst {
		c.current = nil
	}
	inst.state = StateDraining
	c.closing++
	c.closeWG.Add(1)
}

// teardown stops, empties, fades and closes a detached instance.
func (c *Controller) teardown(inst *instance, fadeFor time.Duration, reason string) {
	defer c.closeWG.Done()

	var result *multierror.Error

	inst.timer.Stop()
	inst.store.Clear()
	_ = inst.store.Close()
	if err := c.present(inst, "clear selection", func(p Presenter) { p.ClearSelection() }); err != nil {
		result = multierror.Append(result, err)
	}

	c.mu.Lock()
	inst.state = StateClosing
	c.mu.Unlock()

	start := time.Now()
	opacityFailed := false
	err := c.animator.FadeOut(c.fadeCtx, fadeFor, func(opacity float64) {
		if opacityFailed {
			return
		}
		if err := c.present(inst, "set opacity", func(p Presenter) { p.SetOpacity(opacity) }); err != nil {
			opacityFailed = true
			result = multierror.Append(result, err)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		result = multierror.Append(result, err)
	}
	faded := time.Since(start)

	inst.renderMu.Lock()
	inst.closed = true
	inst.renderMu.Unlock()

	if err := c.present(inst, "close", func(p Presenter) { p.Close() }); err != nil {
		result = multierror.Append(result, err)
	}

	c.mu.Lock()
	inst.state = StateClosed
	c.closing--
	idle := c.current == nil
	c.mu.Unlock()

	if idle {
		c.metrics.SetVisible(0)
	}
	c.metrics.RecordClosed(reason, faded)
	c.notifyClosed(reason)

	if err := result.ErrorOrNil(); err != nil {
		c.logger.Warn("popup closed with errors", "instance", inst.id, "reason", reason, "error", err)
		return
	}
	c.logger.Debug("popup closed", "instance", inst.id, "reason", reason, "fade", faded)
}

// refresh renders the current contents of inst.
func (c *Controller) refresh(inst *instance) {
	c.mu.Lock()
	colors := c.cfg.Display.Colors
	c.mu.Unlock()

	inst.renderMu.Lock()
	defer inst.renderMu.Unlock()

	if inst.closed {
		return
	}

	view := newView(inst.store.Snapshot(), colors)

	if err := c.present(inst, "render", func(p Presenter) {
		p.Render(view)
		p.ClearSelection()
	}); err != nil {
		return
	}
	c.metrics.SetVisible(len(view.Notifications))
}

// present calls fn on the instance presenter, turning panics into errors.
func (c *Controller) present(inst *instance, op string, fn func(Presenter)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("presenter call panicked", "instance", inst.id, "op", op, "panic", r)
			err = &PresenterError{Op: op, Message: fmt.Sprint(r)}
		}
	}()
	fn(inst.presenter)
	return nil
}

// notifyAccepted runs the accept hook.
func (c *Controller) notifyAccepted(n model.Notification) {
	if c.onAccept == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("accept hook panicked", "panic", r)
		}
	}()
	c.onAccept(n)
}

// notifyClosed runs the close hook.
func (c *Controller) notifyClosed(reason string) {
	if c.onClose == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("close hook panicked", "panic", r)
		}
	}()
	c.onClose(reason)
}

// newView builds a View from one snapshot so rows and colour agree.
func newView(notifications []model.Notification, colors config.ColorConfig) View {
	hasError := false
	for _, n := range notifications {
		if n.Severity.IsError() {
			hasError = true
			break
		}
	}
	return View{
		Notifications: notifications,
		HasError:      hasError,
		Background:    colors.Background(hasError),
	}
}
