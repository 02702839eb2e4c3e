// Pluviograph - Weather Radar Animation for Home Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pluviograph

// Package cache provides the in-memory byte cache used to keep recently
// fetched map and radar tiles out of the network path during a render.
package cache

import (
	"sync"
	"time"
)

// entry is one cached payload in the LRU list.
type entry struct {
	key       string
	value     []byte
	prev      *entry
	next      *entry
	expiresAt time.Time
}

// LRU is a thread-safe least-recently-used byte cache with TTL support and
// a byte budget. It provides O(1) Get, Add, Remove, and eviction.
//
// Eviction runs on two limits: entry count (capacity) and total payload
// bytes (maxBytes). Tiles are small but numerous, and one render touches a
// few dozen of them several times, so both limits matter: capacity bounds
// bookkeeping, maxBytes bounds memory.
//
// The doubly-linked list with sentinel head/tail follows the usual pattern:
// head.next is the most recently used, tail.prev the least.
type LRU struct {
	mu sync.RWMutex

	capacity int
	maxBytes int64
	ttl      time.Duration

	items map[string]*entry
	head  *entry
	tail  *entry

	bytes int64

	// stats
	hits   int64
	misses int64
}

// NewLRU creates an LRU byte cache. Non-positive arguments select defaults:
// 4096 entries, 64 MiB, 15 minutes.
func NewLRU(capacity int, maxBytes int64, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 4096
	}
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	c := &LRU{
		capacity: capacity,
		maxBytes: maxBytes,
		ttl:      ttl,
		items:    make(map[string]*entry, capacity),
		head:     &entry{},
		tail:     &entry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get retrieves a payload from the cache. Returns the bytes and true if
// found and not expired. Found entries move to the front.
//
// The returned slice is the cached backing array; callers must not mutate it.
func (c *LRU) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.items[key]
	if !exists {
		c.misses++
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.removeEntry(e)
		c.misses++
		return nil, false
	}

	c.moveToFront(e)
	c.hits++
	return e.value, true
}

// Contains reports whether a key exists and is unexpired, without updating
// access order.
func (c *LRU) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, exists := c.items[key]; exists {
		return !time.Now().After(e.expiresAt)
	}
	return false
}

// Add inserts or replaces a payload. Least recently used entries are
// evicted until both the entry count and byte budget fit.
func (c *LRU) Add(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	if e, exists := c.items[key]; exists {
		c.bytes += int64(len(value)) - int64(len(e.value))
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		c.evictOverBudget()
		return
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt}
	c.addToFront(e)
	c.items[key] = e
	c.bytes += int64(len(value))

	c.evictOverBudget()
}

// Remove deletes an entry. Returns true if it was present.
func (c *LRU) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.items[key]; exists {
		c.removeEntry(e)
		return true
	}
	return false
}

// Len returns the current number of entries.
func (c *LRU) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Bytes returns the total payload bytes currently cached.
func (c *LRU) Bytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bytes
}

// Clear removes all entries.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*entry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
	c.bytes = 0
}

// CleanupExpired removes all expired entries and returns the count removed.
func (c *LRU) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0

	// Walk from tail (oldest) to head (newest).
	for e := c.tail.prev; e != c.head; {
		prev := e.prev
		if now.After(e.expiresAt) {
			c.removeEntry(e)
			removed++
		}
		e = prev
	}
	return removed
}

// Stats returns hit/miss counters and the current size.
func (c *LRU) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.items)
}

// Internal methods (must be called with lock held)

func (c *LRU) addToFront(e *entry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRU) moveToFront(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.addToFront(e)
}

func (c *LRU) removeEntry(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
	c.bytes -= int64(len(e.value))
}

func (c *LRU) evictOverBudget() {
	for len(c.items) > c.capacity || c.bytes > c.maxBytes {
		oldest := c.tail.prev
		if oldest == c.head {
			return
		}
		c.removeEntry(oldest)
	}
}
