//go:build !tinygo

package hal

import (
	"sync"
	"time"
)

const defaultHostStep = 10 * time.Millisecond

// hostClock is wall time, or a stepped clock that only moves when the
// runner advances it.
type hostClock struct {
	mu      sync.Mutex
	stepped bool
	step    time.Duration
	now     time.Time
}

func newHostClock(stepped bool, step time.Duration) *hostClock {
	if step <= 0 {
		step = defaultHostStep
	}
	return &hostClock{stepped: stepped, step: step, now: time.Unix(0, 0).UTC()}
}

func (c *hostClock) Now() time.Time {
	if !c.stepped {
		return time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *hostClock) advance() {
	if !c.stepped {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
}
