// Package cache provides a small generic in-memory TTL cache used by
// peripheral code (spec §1: "a generic in-memory TTL cache used by
// peripheral code"). The ftp client uses it to memoize MLST results per
// path for 30 seconds (cleared at Logout) so repeated stats of the same
// path don't round-trip the control channel.
//
// No pack example vendors a generic TTL cache (see DESIGN.md); this is
// stdlib-only by necessity, not preference.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// TTL is a goroutine-safe map with per-entry expiration.
type TTL[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	ttl     time.Duration
}

// New returns a TTL cache whose entries expire ttl after insertion.
func New[K comparable, V any](ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{
		entries: make(map[K]entry[V]),
		ttl:     ttl,
	}
}

// Get returns the cached value for key, if present and not expired.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	var zero V
	if !ok {
		return zero, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Set stores value for key, resetting its expiration.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expires: time.Now().Add(c.ttl)}
}

// Delete removes key, if present.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *TTL[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]entry[V])
}
