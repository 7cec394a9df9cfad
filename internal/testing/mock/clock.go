package mock

import (
	"sync"
	"time"

	"helix/internal/auth"
)

// Clock is a controllable auth.Clock for token expiry tests.
// Safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

var _ auth.Clock = (*Clock)(nil)

// NewClock returns a clock stopped at start, or at the current time when
// start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = time.Now()
	}
	return &Clock{now: start}
}

// Now implements auth.Clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// EnterRefreshWindow moves the clock to the first second at which a token
// expiring at expiresAt is no longer valid with the given buffer.
func (c *Clock) EnterRefreshWindow(expiresAt time.Time, buffer time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = expiresAt.Add(-buffer).Add(time.Second)
}
