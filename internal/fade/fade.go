// Package fade drives the opacity decay of a closing popup.
package fade

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// stepCount is the number of opacity decrements per fade.
const stepCount = 100

// opacityStep is the amount opacity drops per step.
const opacityStep = 1.0 / stepCount

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures an Animator.
type Option func(*Animator)

// WithSleep replaces the wait between steps.
func WithSleep(sleep SleepFunc) Option {
	return func(a *Animator) {
		if sleep != nil {
			a.sleep = sleep
		}
	}
}

// Animator runs fade-out sequences.
// An Animator holds no per-fade state and may run several fades at once.
type Animator struct {
	logger *slog.Logger
	sleep  SleepFunc
}

// NewAnimator creates an Animator.
func NewAnimator(logger *slog.Logger, opts ...Option) *Animator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Animator{
		logger: logger,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FadeOut lowers opacity from 1 to 0 over roughly total, reporting each
// value to setOpacity. The step delay starts at total/100 milliseconds and
// shrinks by one whenever it is even, so long fades speed up slightly.
//
// setOpacity(0) is always the last call, even when ctx is cancelled or
// setOpacity panics. FadeOut blocks; never call it on a UI thread.
func (a *Animator) FadeOut(ctx context.Context, total time.Duration, setOpacity func(float64)) (err error) {
	defer func() {
		if ferr := a.finish(setOpacity); ferr != nil && err == nil {
			err = ferr
		}
	}()

	if total <= 0 {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("opacity update panicked during fade", "panic", r)
			err = fmt.Errorf("fade: opacity update panicked: %v", r)
		}
	}()

	step := initialStep(total)
	opacity := 1.0
	for opacity > 0 {
		opacity -= opacityStep
		setOpacity(clamp(opacity))

		if err := a.sleep(ctx, time.Duration(step)*time.Millisecond); err != nil {
			return err
		}
		step = nextStep(step)
	}

	return nil
}

// Schedule returns the delays FadeOut waits between its opacity steps.
func Schedule(total time.Duration) []time.Duration {
	if total <= 0 {
		return nil
	}

	delays := make([]time.Duration, 0, stepCount+1)
	step := initialStep(total)
	for opacity := 1.0; opacity > 0; opacity -= opacityStep {
		delays = append(delays, time.Duration(step)*time.Millisecond)
		step = nextStep(step)
	}
	return delays
}

// finish sets the final opacity of zero.
func (a *Animator) finish(setOpacity func(float64)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("final opacity update panicked", "panic", r)
			err = fmt.Errorf("fade: final opacity update panicked: %v", r)
		}
	}()
	setOpacity(0)
	return nil
}

func initialStep(total time.Duration) int64 {
	return total.Milliseconds() / stepCount
}

func nextStep(step int64) int64 {
	if step%2 == 0 {
		step--
	}
	return max(step, 0)
}

func clamp(opacity float64) float64 {
	return min(max(opacity, 0), 1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
