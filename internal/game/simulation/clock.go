package simulation

import (
	"sync"
	"time"
)

// RoundClock calls tick once per interval until stopped.
//
// Invariant: tick is never invoked concurrently with itself.
type RoundClock struct {
	interval time.Duration
	tick     func()
	done     chan struct{}
	once     sync.Once
}

// NewRoundClock creates a stopped clock.
//
// Precondition: interval must be > 0; tick must be non-nil.
func NewRoundClock(interval time.Duration, tick func()) *RoundClock {
	if interval <= 0 {
		panic("simulation.NewRoundClock: interval must be > 0")
	}
	if tick == nil {
		panic("simulation.NewRoundClock: tick must be non-nil")
	}
	return &RoundClock{interval: interval, tick: tick, done: make(chan struct{})}
}

// Start runs the clock and blocks until Stop is called.
//
// Postcondition: returns nil once stopped.
func (c *RoundClock) Start() error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return nil
		case <-ticker.C:
			c.tick()
		}
	}
}

// Stop halts the clock. Calling Stop more than once is safe.
func (c *RoundClock) Stop() {
	c.once.Do(func() { close(c.done) })
}
