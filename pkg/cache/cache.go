// Package cache provides the short-lived page cache used by the index
// handler. It is an explicit service injected into the API rather than
// ambient package state, so tests and admin actions can clear it.
package cache

import (
	"sync"
	"time"
)

// Cache stores rendered page bodies for a fixed time window. Concurrent
// readers inside the window observe the same snapshot. Clear drops
// everything and forces regeneration on the next request.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Clear()
}

type entry struct {
	value   []byte
	expires time.Time
}

// MemCache is the in-process Cache implementation.
type MemCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
}

func New(ttl time.Duration) *MemCache {
	return &MemCache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

func (c *MemCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}

	return e.value, true
}

func (c *MemCache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		value:   value,
		expires: time.Now().Add(c.ttl),
	}
}

func (c *MemCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}
