// Package ratelimit throttles repeated notices, such as console overflow
// reports, to at most one per interval.
package ratelimit

import (
	"sync/atomic"
	"time"
)

// Counter counts events and remembers when a notice was last allowed.
// It is safe for concurrent use; the zero value never throttles.
type Counter struct {
	interval time.Duration
	lastEmit atomic.Int64
	total    atomic.Uint64
}

// NewCounter constructs a Counter that allows a notice at most once per
// interval. A zero or negative interval allows every notice.
func NewCounter(interval time.Duration) *Counter {
	return &Counter{interval: interval}
}

// Inc records one event and reports whether a notice may be emitted now.
func (c *Counter) Inc() (uint64, bool) {
	return c.incAt(time.Now())
}

func (c *Counter) incAt(now time.Time) (uint64, bool) {
	if c == nil {
		return 0, false
	}
	total := c.total.Add(1)
	if c.interval <= 0 {
		return total, true
	}
	ts := now.UnixNano()
	last := c.lastEmit.Load()
	if last != 0 && ts-last < c.interval.Nanoseconds() {
		return total, false
	}
	return total, c.lastEmit.CompareAndSwap(last, ts)
}
