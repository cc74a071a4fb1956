package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"
)

// ResponseCache memoizes successful fetch payloads to reduce redundant
// upstream load. Expiry is lazy: a stale entry is treated as a miss on
// read and dropped then. Only successful payloads ever enter the cache.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

type entry struct {
	payload   []json.RawMessage
	createdAt time.Time
}

// New constructs a ResponseCache with the given TTL. A non-positive TTL
// falls back to one hour.
func New(ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResponseCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached payload for key if it is still fresh.
func (c *ResponseCache) Get(key string) ([]json.RawMessage, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.createdAt) >= c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have
		// refreshed the entry.
		if current, ok := c.entries[key]; ok && c.now().Sub(current.createdAt) >= c.ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.payload, true
}

// Put unconditionally overwrites the entry for key.
func (c *ResponseCache) Put(key string, payload []json.RawMessage) {
	c.mu.Lock()
	c.entries[key] = entry{payload: payload, createdAt: c.now()}
	c.mu.Unlock()
}

// Clear removes all entries.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len reports the number of entries, stale ones included.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Key derives a deterministic cache key from a source, endpoint and its
// parameters. Parameter order does not matter: {a:1,b:2} and {b:2,a:1}
// hash identically.
func Key(source, endpoint string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(source)
	b.WriteByte('|')
	b.WriteString(endpoint)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return source + ":" + hex.EncodeToString(sum[:])
}
