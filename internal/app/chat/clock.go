package chat

import (
	"sync"
	"time"
)

// Clock issues message timestamps that never go backwards, at millisecond precision
// so a stamp survives a round trip through every store unchanged.
type Clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewClock returns a Clock reading from now, or time.Now if now is nil.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Now returns the current UTC time truncated to milliseconds,
// or the previously issued stamp if the wall clock stepped back.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Millisecond)
	if t.Before(c.last) {
		return c.last
	}

	c.last = t
	return t
}
