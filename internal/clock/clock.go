// Package clock abstracts timers so the connection supervisor's periodic
// tick can be driven manually in tests. Use RealClock in production and
// MockClock in tests.
package clock

import (
	"sync"
	"time"
)

// Clock is an interface over the time operations the supervisor needs.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After waits for the duration to elapse and then sends the current
	// time on the returned channel.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker that delivers ticks every d.
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers periodic ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// NewRealClock creates a new RealClock instance.
func NewRealClock() *RealClock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

func (c *RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (c *RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *realTicker) Stop() {
	t.ticker.Stop()
}

// MockClock is a Clock for tests; time only moves when Advance is called.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []*waiter
}

// waiter is a pending After channel or ticker. One-shot waiters have a zero
// period; ticker waiters are rescheduled each time they fire.
type waiter struct {
	deadline time.Time
	period   time.Duration
	ch       chan time.Time
	stopped  bool
}

// NewMockClock creates a MockClock starting at the given time.
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{current: start}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *MockClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := &waiter{
		deadline: c.current.Add(d),
		ch:       make(chan time.Time, 1),
	}
	c.waiters = append(c.waiters, w)
	return w.ch
}

func (c *MockClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := &waiter{
		deadline: c.current.Add(d),
		period:   d,
		ch:       make(chan time.Time, 1),
	}
	c.waiters = append(c.waiters, w)
	return &mockTicker{clock: c, w: w}
}

// Advance moves the mock clock forward by d, firing due waiters in deadline
// order. Ticks that would overwrite an undelivered tick are dropped, matching
// time.Ticker behavior.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	end := c.current.Add(d)
	for {
		var next *waiter
		for _, w := range c.waiters {
			if w.stopped || w.deadline.After(end) {
				continue
			}
			if next == nil || w.deadline.Before(next.deadline) {
				next = w
			}
		}
		if next == nil {
			break
		}

		c.current = next.deadline
		select {
		case next.ch <- c.current:
		default:
		}

		if next.period > 0 {
			next.deadline = next.deadline.Add(next.period)
		} else {
			next.stopped = true
		}
	}
	c.current = end
}

// BlockUntil waits until at least n waiters (pending After channels or
// running tickers) are registered. Lets tests synchronize with a goroutine
// that is about to park on the clock.
func (c *MockClock) BlockUntil(n int) {
	for {
		c.mu.Lock()
		active := 0
		for _, w := range c.waiters {
			if !w.stopped {
				active++
			}
		}
		c.mu.Unlock()
		if active >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

type mockTicker struct {
	clock *MockClock
	w     *waiter
}

func (t *mockTicker) C() <-chan time.Time {
	return t.w.ch
}

func (t *mockTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.w.stopped = true
}
