// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lumen

import (
	"context"
	"sync"
	"time"
)

// DefaultCallInterval is the minimum gap between outgoing gateway calls
// when the config does not set one. The gateway enforces a daily quota, so
// all stages pace their calls through one shared throttle.
const DefaultCallInterval = 750 * time.Millisecond

// Throttle serializes call admission so that no two calls start within
// Interval of each other, regardless of how many workers issue them.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// NewThrottle returns a throttle with the given minimum inter-call
// interval. A non-positive interval disables pacing.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval}
}

// Wait blocks until the caller may issue the next call, or until ctx is
// cancelled. Admission order follows lock-acquisition order.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.interval <= 0 {
		return ctx.Err()
	}

	t.mu.Lock()
	now := time.Now()
	wait := t.next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	t.next = now.Add(wait + t.interval)
	t.mu.Unlock()

	if wait == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
