// Package cache provides a process-local TTL cache with an entry bound.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[V any] struct {
	key    string
	value  V
	expiry time.Time
}

// TTLCache holds values until their TTL passes. When MaxEntries is reached,
// expired entries are dropped first and then the oldest insertions.
type TTLCache[V any] struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // front = oldest insertion
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// Option customizes a TTLCache
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock injects the time source
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a cache; maxEntries <= 0 means unbounded
func New[V any](ttl time.Duration, maxEntries int, opts ...Option) *TTLCache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTLCache[V]{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        o.now,
	}
}

// Get returns the live value for key. Expired entries are removed on read.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}

	e := el.Value.(*entry[V])
	if !c.now().Before(e.expiry) {
		c.removeElement(el)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the cache TTL
func (c *TTLCache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

func (c *TTLCache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry := c.now().Add(ttl)
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.expiry = expiry
		c.order.MoveToBack(el)
		return
	}

	if c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.purgeExpiredLocked()
		for len(c.items) >= c.maxEntries {
			c.removeElement(c.order.Front())
		}
	}

	c.items[key] = c.order.PushBack(&entry[V]{key: key, value: value, expiry: expiry})
}

func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// PurgeExpired drops every expired entry and reports how many went
func (c *TTLCache[V]) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeExpiredLocked()
}

// Len counts stored entries, including expired ones not yet purged
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *TTLCache[V]) purgeExpiredLocked() int {
	now := c.now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if !now.Before(el.Value.(*entry[V]).expiry) {
			c.removeElement(el)
			removed++
		}
		el = next
	}
	return removed
}

func (c *TTLCache[V]) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}
