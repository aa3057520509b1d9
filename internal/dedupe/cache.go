// ABOUTME: Thread-safe TTL cache for suppressing redelivered webhook events.
// ABOUTME: The upstream transport is at-least-once, so request ids can repeat.

package dedupe

import (
	"sync"
	"time"
)

// Cache tracks recently seen webhook request ids so redeliveries of the same
// event can be dropped before dispatch. Entries expire after the TTL.
type Cache struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	ttl    time.Duration
	done   chan struct{}
	closed bool
}

// New creates a new dedupe cache with the specified TTL.
// A background goroutine periodically cleans up expired entries.
func New(ttl time.Duration) *Cache {
	c := &Cache{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		done: make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Seen reports whether the request id was recorded within the TTL window.
// It does not record the id; callers Mark only after handling succeeds, so
// a failed delivery can still be retried by the upstream transport.
func (c *Cache) Seen(requestID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.seen[requestID]
	return ok && time.Since(ts) < c.ttl
}

// Mark records the request id as processed.
func (c *Cache) Mark(requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seen[requestID] = time.Now()
}

// cleanup runs in a background goroutine, periodically removing expired entries.
func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runCleanup()
		case <-c.done:
			return
		}
	}
}

// runCleanup removes all expired entries from the cache.
func (c *Cache) runCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, ts := range c.seen {
		if now.Sub(ts) > c.ttl {
			delete(c.seen, key)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
