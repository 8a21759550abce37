package device

import (
	"sync"
	"time"
)

// countdown keeps the time-left capability counting down once per second between polls.
// At most one tick is pending at any time: ticks are armed only from set (when not yet
// running) and from tick itself, both under the lock.
type countdown struct {
	capabilities CapabilitySink
	mu           sync.Mutex
	endTime      time.Time
	timer        *time.Timer
	running      bool
}

func newCountdown(capabilities CapabilitySink) *countdown {
	return &countdown{capabilities: capabilities}
}

// set recomputes the end time from a freshly observed remaining duration and starts the
// tick if it is not already running. The end time is always recomputed, never decremented,
// so drift from poll jitter self-corrects.
func (c *countdown) set(endTime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTime = endTime
	now := time.Now()
	c.publish(now)
	if !c.running {
		c.running = true
		c.schedule(now)
	}
}

// stop cancels the pending tick, marks not running and clears the end time, all in one
// step: once stop returns, no tick can republish stale remaining time.
func (c *countdown) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.running = false
	c.endTime = time.Time{}
}

func (c *countdown) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *countdown) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		// stopped between the tick being armed and firing
		return
	}
	now := time.Now()
	if !now.Before(c.endTime) {
		c.capabilities.PublishCapability(CapabilityTimeLeft, TimeLeftIdle)
		c.running = false
		c.timer = nil
		c.endTime = time.Time{}
		return
	}
	c.publish(now)
	c.schedule(now)
}

func (c *countdown) publish(now time.Time) {
	remaining := c.endTime.Sub(now)
	c.capabilities.PublishCapability(CapabilityTimeLeft, FormatTimeLeft(&remaining))
}

// schedule arms the next tick on the next whole-second boundary. Aligning to the wall
// clock avoids the cumulative drift of a flat one-second repeat.
func (c *countdown) schedule(now time.Time) {
	next := time.Duration(1000-now.UnixMilli()%1000) * time.Millisecond
	c.timer = time.AfterFunc(next, c.tick)
}
