// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package cache provides a bounded LRU cache for objects that must be
// destroyed when they leave it, such as GPU pipelines and bind groups.
package cache

import (
	"cmp"
	"slices"
	"sync"
)

// Cache maps keys to values with a soft size limit. When an insertion
// pushes it over the limit, the least recently used quarter is evicted.
// Every value that leaves the cache, by eviction, deletion or Clear, is
// passed to the eviction hook exactly once.
//
// Cache is safe for concurrent use and must not be copied.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
	limit   int
	tick    int64
	onEvict func(K, V)

	evictions uint64
}

type entry[V any] struct {
	value V
	atime int64
}

// New returns a cache holding about limit entries; 0 means unbounded.
// onEvict may be nil.
func New[K comparable, V any](limit int, onEvict func(K, V)) *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]*entry[V]),
		limit:   limit,
		onEvict: onEvict,
	}
}

// Get returns the value for key and marks it recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.tick++
	e.atime = c.tick
	return e.value, true
}

// Set stores value under key. A previous value for key is evicted.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.evict(key, old.value)
	}
	c.tick++
	c.entries[key] = &entry[V]{value: value, atime: c.tick}
	if c.limit > 0 && len(c.entries) > c.limit {
		c.evictOldest()
	}
}

// Delete evicts key and reports whether it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
		c.evict(key, e.value)
	}
	return ok
}

// DeleteFunc evicts every entry whose key satisfies match and returns how
// many were removed.
func (c *Cache[K, V]) DeleteFunc(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if match(k) {
			delete(c.entries, k)
			c.evict(k, e.value)
			n++
		}
	}
	return n
}

// Clear evicts everything.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		delete(c.entries, k)
		c.evict(k, e.value)
	}
	c.tick = 0
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Evictions returns how many values were evicted to stay under the limit.
func (c *Cache[K, V]) Evictions() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictions
}

func (c *Cache[K, V]) evict(k K, v V) {
	if c.onEvict != nil {
		c.onEvict(k, v)
	}
}

// evictOldest shrinks the cache to three quarters of the limit, oldest
// first. Caller must hold c.mu.
func (c *Cache[K, V]) evictOldest() {
	target := max(c.limit*3/4, 1)
	n := len(c.entries) - target
	if n <= 0 {
		return
	}

	type aged struct {
		key   K
		atime int64
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{k, e.atime})
	}
	slices.SortFunc(all, func(a, b aged) int { return cmp.Compare(a.atime, b.atime) })
	for _, a := range all[:n] {
		e := c.entries[a.key]
		delete(c.entries, a.key)
		c.evict(a.key, e.value)
		c.evictions++
	}
}
