package engine

import (
	"sync"
	"time"
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules debounce callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock runs callbacks on real timers.
var SystemClock Clock = systemClock{}

// ManualClock is a Clock that only fires when advanced. It lets hosts and
// tests drive debounce deterministically.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	clock *ManualClock
	at    time.Duration
	seq   int
	f     func()
}

// NewManualClock returns a clock at time zero.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// AfterFunc schedules f to run when the clock is advanced past d.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &manualTimer{clock: c, at: c.now + d, seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Stop removes t from the schedule. It reports whether t was still pending.
func (t *manualTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.timers {
		if p == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

// Advance moves the clock forward by d and runs every timer that became
// due, in schedule order, on the calling goroutine.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		idx := -1
		for i, t := range c.timers {
			if t.at > target {
				continue
			}
			if idx < 0 || t.at < c.timers[idx].at || (t.at == c.timers[idx].at && t.seq < c.timers[idx].seq) {
				idx = i
			}
		}
		if idx < 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		t := c.timers[idx]
		c.timers = append(c.timers[:idx], c.timers[idx+1:]...)
		if t.at > c.now {
			c.now = t.at
		}
		c.mu.Unlock()
		t.f()
	}
}

// Pending returns the number of scheduled timers.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
