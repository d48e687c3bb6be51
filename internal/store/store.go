// Package store provides the time-bounded notification store backing a popup.
package store

import (
	"sync"
	"time"

	"github.com/jmylchreest/notiwin/internal/model"
)

// ChangeType indicates the type of store change.
type ChangeType int

const (
	// ChangeTypeAdd indicates a notification was appended.
	ChangeTypeAdd ChangeType = iota
	// ChangeTypeEvict indicates expired notifications were removed.
	ChangeTypeEvict
	// ChangeTypeClear indicates all notifications were cleared.
	ChangeTypeClear
)

// String returns the change type name.
func (t ChangeType) String() string {
	switch t {
	case ChangeTypeAdd:
		return "add"
	case ChangeTypeEvict:
		return "evict"
	case ChangeTypeClear:
		return "clear"
	default:
		return "unknown"
	}
}

// ChangeEvent signals store content changes.
type ChangeEvent struct {
	Type      ChangeType
	Count     int // notifications added or removed
	Remaining int // store size after the change
	Severity  model.Severity
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp and age notifications.
// A nil clock keeps time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is an ordered, thread-safe container of notifications.
// Oldest entries come first. All reads and writes share one lock, so callers
// only ever observe the result of complete operations.
type Store struct {
	mu            sync.RWMutex
	notifications []model.Notification
	errorCount    int
	now           func() time.Time

	subscribers []chan ChangeEvent
	closed      bool
}

// NewStore creates a new, empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		notifications: make([]model.Notification, 0),
		now:           time.Now,
		subscribers:   make([]chan ChangeEvent, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append adds a notification at the tail, stamped with the current time.
// Appending to a closed store is a no-op.
func (s *Store) Append(text string, severity model.Severity) {
	_, _ = s.TryAppend(text, severity)
}

// TryAppend is Append that reports the stored notification, or
// ErrStoreClosed when the store has been closed.
func (s *Store) TryAppend(text string, severity model.Severity) (model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return model.Notification{}, ErrStoreClosed
	}

	n := model.New(text, severity, s.now())
	s.notifications = append(s.notifications, n)
	if severity.IsError() {
		s.errorCount++
	}

	s.notifyChange(ChangeEvent{
		Type:      ChangeTypeAdd,
		Count:     1,
		Remaining: len(s.notifications),
		Severity:  severity,
	})

	return n, nil
}

// EvictExpired removes every notification whose age is at least maxAge and
// returns how many remain. Survivors keep their relative order.
func (s *Store) EvictExpired(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.notifications) == 0 {
		return 0
	}

	now := s.now()
	kept := s.notifications[:0]
	errCount := 0
	for _, n := range s.notifications {
		if n.Expired(now, maxAge) {
			continue
		}
		if n.Severity.IsError() {
			errCount++
		}
		kept = append(kept, n)
	}

	removed := len(s.notifications) - len(kept)
	// Zero the tail so evicted text can be collected.
	clear(s.notifications[len(kept):])
	s.notifications = kept
	s.errorCount = errCount

	if removed > 0 {
		s.notifyChange(ChangeEvent{
			Type:      ChangeTypeEvict,
			Count:     removed,
			Remaining: len(kept),
		})
	}

	return len(kept)
}

// Clear removes all notifications and returns how many were removed.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.notifications)
	s.notifications = make([]model.Notification, 0)
	s.errorCount = 0

	if count > 0 {
		s.notifyChange(ChangeEvent{
			Type:  ChangeTypeClear,
			Count: count,
		})
	}

	return count
}

// HasError reports whether at least one Error notification is stored.
func (s *Store) HasError() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errorCount > 0
}

// Count returns the number of stored notifications.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notifications)
}

// Snapshot returns a copy of the stored notifications, oldest first.
func (s *Store) Snapshot() []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Notification, len(s.notifications))
	copy(result, s.notifications)
	return result
}

// Subscribe returns a channel that receives change events.
func (s *Store) Subscribe() <-chan ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan ChangeEvent, 16)
	if s.closed {
		close(ch)
		return ch
	}
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription.
func (s *Store) Unsubscribe(ch <-chan ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close closes all subscriber channels. Further appends are rejected; the
// remaining contents can still be read, evicted and cleared.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil

	return nil
}

// notifyChange sends a change event to all subscribers (non-blocking).
// Must be called with s.mu held.
func (s *Store) notifyChange(event ChangeEvent) {
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip
		}
	}
}

// Errors
var (
	ErrStoreClosed = storeError("store is closed")
)

type storeError string

func (e storeError) Error() string {
	return string(e)
}
