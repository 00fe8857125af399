package network

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CacheEntry is a cached HTTP response together with its freshness
// metadata.
type CacheEntry struct {
	Response  *Response
	ETag      string
	LastMod   string
	MaxAge    time.Duration
	HasMaxAge bool // max-age was set explicitly, including max-age=0
	Expires   time.Time
	CachedAt  time.Time
}

// IsExpired reports whether the entry is past its freshness lifetime.
// Entries with no explicit lifetime expire after five minutes.
func (e *CacheEntry) IsExpired() bool {
	if e.HasMaxAge {
		return time.Since(e.CachedAt) > e.MaxAge
	}
	if !e.Expires.IsZero() {
		return time.Now().After(e.Expires)
	}
	return time.Since(e.CachedAt) > 5*time.Minute
}

// CanRevalidate reports whether the entry carries a validator.
func (e *CacheEntry) CanRevalidate() bool {
	return e.ETag != "" || e.LastMod != ""
}

// Cache is an in-memory HTTP response cache keyed by normalized URL.
type Cache struct {
	entries map[string]*CacheEntry
	maxSize int
	mu      sync.RWMutex
}

// NewCache creates a cache holding at most maxSize entries.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Cache{
		entries: make(map[string]*CacheEntry),
		maxSize: maxSize,
	}
}

// Get returns the cached entry for the key, expired or not.
func (c *Cache) Get(key string) (*CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Set stores a response under the key, honoring its Cache-Control and
// Expires headers. A no-store response is not cached.
func (c *Cache) Set(key string, resp *Response) {
	cacheControl := resp.Headers.Get("Cache-Control")
	if hasDirective(cacheControl, "no-store") {
		return
	}

	entry := &CacheEntry{
		Response: resp,
		CachedAt: time.Now(),
		ETag:     resp.Headers.Get("ETag"),
		LastMod:  resp.Headers.Get("Last-Modified"),
	}
	for _, d := range strings.Split(cacheControl, ",") {
		d = strings.TrimSpace(d)
		if v, ok := strings.CutPrefix(d, "max-age="); ok {
			if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
				entry.MaxAge = time.Duration(seconds) * time.Second
				entry.HasMaxAge = true
			}
		}
	}
	if !entry.HasMaxAge {
		if expires := resp.Headers.Get("Expires"); expires != "" {
			if t, err := http.ParseTime(expires); err == nil {
				entry.Expires = t
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = entry
}

// Delete removes the entry for the key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*CacheEntry)
}

// Size returns the number of entries in the cache.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup removes all expired entries.
func (c *Cache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if entry.IsExpired() {
			delete(c.entries, key)
		}
	}
}

// evictOldest removes the oldest entry. Must be called with c.mu held.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.CachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.CachedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func hasDirective(cacheControl, directive string) bool {
	for _, d := range strings.Split(cacheControl, ",") {
		if strings.TrimSpace(d) == directive {
			return true
		}
	}
	return false
}
