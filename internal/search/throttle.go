// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import "time"

// Throttle enforces a minimum interval between successive calls to the same
// provider. It is a single-owner object injected into the orchestrator, not
// shared state: one research run owns exactly one Throttle per provider.
// Now and Sleep are injectable so tests substitute a fake clock.
type Throttle struct {
	Interval time.Duration
	Now      func() time.Time
	Sleep    func(time.Duration)

	last time.Time
}

// NewThrottle returns a real-clock throttle with the given minimum interval.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		Interval: interval,
		Now:      time.Now,
		Sleep:    time.Sleep,
	}
}

// Wait blocks until at least Interval has elapsed since the previous call,
// then records the new call time. The read-then-write on the timestamp is
// not interleaved because the throttle has a single owner.
func (t *Throttle) Wait() {
	if t == nil || t.Interval <= 0 {
		return
	}
	now := t.Now()
	if !t.last.IsZero() {
		if elapsed := now.Sub(t.last); elapsed < t.Interval {
			t.Sleep(t.Interval - elapsed)
			now = t.Now()
		}
	}
	t.last = now
}
