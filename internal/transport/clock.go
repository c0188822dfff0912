package transport

import (
	"sync"
	"time"
)

// Clock reports the current time in seconds.
type Clock interface {
	Now() float64
}

type wallClock struct {
	start time.Time
}

// NewWallClock returns a monotonic clock that reads zero when created.
func NewWallClock() Clock {
	return wallClock{start: time.Now()}
}

func (c wallClock) Now() float64 {
	return time.Since(c.start).Seconds()
}

// ManualClock only moves when told to. Offline rendering and tests drive the
// transport with it.
type ManualClock struct {
	mu  sync.Mutex
	now float64
}

func (c *ManualClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(t float64) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Add moves the clock forward by d seconds and returns the new time.
func (c *ManualClock) Add(d float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}
