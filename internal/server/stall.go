package server

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// StallProbe returns a Probe that fails once the counter reported by round has
// not advanced for longer than limit. The first sample only records a baseline.
//
// Precondition: round and now must be non-nil; limit must be > 0.
func StallProbe(round func() uint64, limit time.Duration, now func() time.Time) Probe {
	if round == nil || now == nil || limit <= 0 {
		panic("server: StallProbe requires a round source, a clock, and a positive limit")
	}
	var (
		mu      sync.Mutex
		started bool
		last    uint64
		since   time.Time
	)
	return func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		r, t := round(), now()
		if !started || r != last {
			started, last, since = true, r, t
			return nil
		}
		if idle := t.Sub(since); idle > limit {
			return fmt.Errorf("round clock stalled at round %d for %s", r, idle)
		}
		return nil
	}
}
