package client

import (
	"sync"
	"time"
)

type entry[V any] struct {
	v   V
	exp time.Time
}

// ttlCache holds values until they expire or are invalidated
type ttlCache[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]entry[V]
	ttl  time.Duration
	gen  uint64 // bumped by clear
	now  func() time.Time
}

func newTTLCache[K comparable, V any](ttl time.Duration) *ttlCache[K, V] {
	return &ttlCache[K, V]{data: make(map[K]entry[V]), ttl: ttl, now: time.Now}
}

func (c *ttlCache[K, V]) get(k K) (V, bool) {
	c.mu.RLock()
	e, ok := c.data[k]
	c.mu.RUnlock()
	if !ok || c.now().After(e.exp) {
		var zero V
		return zero, false
	}
	return e.v, true
}

// generation identifies the current cache contents; it changes on every clear
func (c *ttlCache[K, V]) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// setIfCurrent stores v only if no clear happened since gen was read
func (c *ttlCache[K, V]) setIfCurrent(k K, v V, gen uint64) {
	c.mu.Lock()
	if c.gen == gen {
		c.data[k] = entry[V]{v: v, exp: c.now().Add(c.ttl)}
	}
	c.mu.Unlock()
}

func (c *ttlCache[K, V]) clear() {
	c.mu.Lock()
	c.data = make(map[K]entry[V])
	c.gen++
	c.mu.Unlock()
}
