package capture

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Cooldown lets one event through per window. The first event after the window has
// elapsed fires and re-arms it; events while armed are dropped, never queued.
type Cooldown struct {
	mu      sync.Mutex
	window  time.Duration
	limiter *rate.Limiter
}

func NewCooldown(window time.Duration) *Cooldown {
	c := &Cooldown{window: window}
	c.Reset()
	return c
}

// Fire reports whether an event observed at now may be emitted, arming the window if so.
func (c *Cooldown) Fire(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.window <= 0 {
		return true
	}
	return c.limiter.AllowN(now, 1)
}

// Armed reports whether an event at now would be dropped, without consuming the window.
func (c *Cooldown) Armed(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.window <= 0 {
		return false
	}
	return c.limiter.TokensAt(now) < 1
}

// Reset disarms the cooldown.
func (c *Cooldown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiter = rate.NewLimiter(rate.Every(c.window), 1)
}

func (c *Cooldown) Window() time.Duration {
	return c.window
}
