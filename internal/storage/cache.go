// cache.go - In-memory TTL cache for analysis results

package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value    V
	storedAt time.Time
}

// ResultCache stores analysis results keyed by screenshot, language and note.
// A zero TTL disables the cache.
type ResultCache[V any] struct {
	ttl     time.Duration
	entries map[string]cacheEntry[V]
	mu      sync.RWMutex
	now     func() time.Time
}

// NewResultCache creates a cache whose entries expire after ttl
func NewResultCache[V any](ttl time.Duration) *ResultCache[V] {
	return &ResultCache[V]{
		ttl:     ttl,
		entries: make(map[string]cacheEntry[V]),
		now:     time.Now,
	}
}

// Enabled reports whether the cache keeps anything
func (c *ResultCache[V]) Enabled() bool {
	return c != nil && c.ttl > 0
}

// Get returns a live entry. Expired entries are evicted.
func (c *ResultCache[V]) Get(key string) (V, bool) {
	var zero V
	if !c.Enabled() {
		return zero, false
	}

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return zero, false
	}
	if c.now().Sub(entry.storedAt) < c.ttl {
		return entry.value, true
	}

	// Expired - evict under write lock
	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	entry, exists = c.entries[key]
	if exists && c.now().Sub(entry.storedAt) < c.ttl {
		return entry.value, true
	}
	delete(c.entries, key)
	return zero, false
}

// Set stores value under key
func (c *ResultCache[V]) Set(key string, value V) {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry[V]{value: value, storedAt: c.now()}
}

// Len counts stored entries, expired ones included
func (c *ResultCache[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops every expired entry
func (c *ResultCache[V]) Purge() {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.entries {
		if now.Sub(entry.storedAt) >= c.ttl {
			delete(c.entries, key)
		}
	}
}

// CacheKey builds the lookup key for one analysis request
func CacheKey(imageFingerprint, lang, note string) string {
	noteSum := sha256.Sum256([]byte(strings.TrimSpace(note)))
	return imageFingerprint + ":" + lang + ":" + hex.EncodeToString(noteSum[:8])
}
