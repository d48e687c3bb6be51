package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmylchreest/notiwin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func texts(ns []model.Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Text
	}
	return out
}

func TestNewStore(t *testing.T) {
	s := NewStore()
	assert.NotNil(t, s)
	assert.Equal(t, 0, s.Count())
	assert.False(t, s.HasError())
	assert.Empty(t, s.Snapshot())
}

func TestStore_AppendPreservesOrder(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))
	defer s.Close()

	s.Append("A", model.SeverityInfo)
	clock.Advance(time.Millisecond)
	s.Append("B", model.SeverityInfo)
	clock.Advance(time.Millisecond)
	s.Append("C", model.SeverityError)

	snap := s.Snapshot()
	assert.Equal(t, []string{"A", "B", "C"}, texts(snap))
	assert.Equal(t, clock.Now(), snap[2].CreatedAt)
	assert.Equal(t, model.SeverityError, snap[2].Severity)
	assert.Equal(t, 3, s.Count())
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s := NewStore()
	s.Append("A", model.SeverityInfo)

	snap := s.Snapshot()
	snap[0].Text = "mutated"

	assert.Equal(t, "A", s.Snapshot()[0].Text)
}

func TestStore_EvictExpired(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))

	s.Append("old", model.SeverityInfo) // t=0
	clock.Advance(2500 * time.Millisecond)
	s.Append("mid", model.SeverityInfo) // t=2.5s
	clock.Advance(1500 * time.Millisecond)
	s.Append("new", model.SeverityInfo) // t=4s

	clock.Advance(time.Second) // t=5s: old is 5s, mid 2.5s, new 1s
	remaining := s.EvictExpired(3 * time.Second)

	assert.Equal(t, 2, remaining)
	assert.Equal(t, []string{"mid", "new"}, texts(s.Snapshot()))

	clock.Advance(500 * time.Millisecond) // t=5.5s: mid reaches 3s exactly
	assert.Equal(t, 1, s.EvictExpired(3*time.Second))
	assert.Equal(t, []string{"new"}, texts(s.Snapshot()))
}

func TestStore_EvictExpired_BoundaryIsInclusive(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))

	s.Append("A", model.SeverityInfo)
	clock.Advance(5 * time.Second)

	assert.Equal(t, 0, s.EvictExpired(5*time.Second))
}

func TestStore_EvictExpired_Idempotent(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))

	s.Append("A", model.SeverityInfo)
	clock.Advance(10 * time.Second)
	s.Append("B", model.SeverityInfo)

	first := s.EvictExpired(5 * time.Second)
	second := s.EvictExpired(5 * time.Second)

	assert.Equal(t, 1, first)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"B"}, texts(s.Snapshot()))
}

func TestStore_EvictExpired_Empty(t *testing.T) {
	s := NewStore()
	assert.Equal(t, 0, s.EvictExpired(time.Second))
}

func TestStore_HasErrorFollowsEviction(t *testing.T) {
	// Info X at t=0, Error Y at t=3s, ttl 5s.
	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))

	s.Append("X", model.SeverityInfo)
	clock.Advance(3 * time.Second)
	s.Append("Y", model.SeverityError)
	assert.True(t, s.HasError())

	// t=6s: X evicted, Y survives.
	clock.Advance(3 * time.Second)
	assert.Equal(t, 1, s.EvictExpired(5*time.Second))
	assert.True(t, s.HasError())

	// t=9s: Y evicted.
	clock.Advance(3 * time.Second)
	assert.Equal(t, 0, s.EvictExpired(5*time.Second))
	assert.False(t, s.HasError())
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.Append("A", model.SeverityError)
	s.Append("B", model.SeverityInfo)

	assert.Equal(t, 2, s.Clear())
	assert.Equal(t, 0, s.Count())
	assert.False(t, s.HasError())
	assert.Equal(t, 0, s.Clear())
}

func TestStore_ConcurrentAppend(t *testing.T) {
	s := NewStore()

	const workers, perWorker = 4, 100
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWorker {
				s.Append(fmt.Sprintf("%d:%d", w, i), model.SeverityInfo)
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	require.Len(t, snap, workers*perWorker)

	// Each worker's messages appear in the order that worker sent them.
	last := make(map[int]int)
	for _, n := range snap {
		var w, i int
		_, err := fmt.Sscanf(n.Text, "%d:%d", &w, &i)
		require.NoError(t, err)
		if prev, ok := last[w]; ok {
			assert.Greater(t, i, prev)
		}
		last[w] = i
	}
	assert.Len(t, last, workers)
}

func TestStore_ConcurrentAppendAndEvict(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 200 {
			s.Append(fmt.Sprintf("m%d", i), model.SeverityInfo)
		}
	}()
	go func() {
		defer wg.Done()
		for range 200 {
			remaining := s.EvictExpired(time.Hour)
			assert.GreaterOrEqual(t, remaining, 0)
		}
	}()
	wg.Wait()

	assert.Equal(t, 200, s.Count())
}

func TestStore_Subscribe(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))
	ch := s.Subscribe()

	s.Append("A", model.SeverityError)
	ev := <-ch
	assert.Equal(t, ChangeTypeAdd, ev.Type)
	assert.Equal(t, 1, ev.Count)
	assert.Equal(t, 1, ev.Remaining)
	assert.Equal(t, model.SeverityError, ev.Severity)

	clock.Advance(time.Minute)
	s.EvictExpired(time.Second)
	ev = <-ch
	assert.Equal(t, ChangeTypeEvict, ev.Type)
	assert.Equal(t, 1, ev.Count)
	assert.Equal(t, 0, ev.Remaining)

	// Nothing to evict, no event.
	s.EvictExpired(time.Second)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %v", ev.Type)
	default:
	}

	s.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestStore_Close(t *testing.T) {
	s := NewStore()
	ch := s.Subscribe()
	s.Append("A", model.SeverityInfo)
	<-ch

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, ok := <-ch
	assert.False(t, ok)

	_, err := s.TryAppend("B", model.SeverityInfo)
	assert.ErrorIs(t, err, ErrStoreClosed)
	s.Append("C", model.SeverityInfo)

	assert.Equal(t, []string{"A"}, texts(s.Snapshot()))
	assert.Equal(t, 1, s.Clear())

	closedCh := s.Subscribe()
	_, ok = <-closedCh
	assert.False(t, ok)
}

func TestChangeType_String(t *testing.T) {
	assert.Equal(t, "add", ChangeTypeAdd.String())
	assert.Equal(t, "evict", ChangeTypeEvict.String())
	assert.Equal(t, "clear", ChangeTypeClear.String())
	assert.Equal(t, "unknown", ChangeType(9).String())
}
