package authserver

import (
	"sync"
	"time"
)

// DefaultTokenCacheSize bounds how many login tokens are remembered.
const DefaultTokenCacheSize = 300

type cacheEntry struct {
	email   string
	expires time.Time
}

// TokenCache remembers which email a login token resolved to for a TTL.
type TokenCache struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewTokenCache returns a cache keeping entries for ttl, at most maxEntries of them.
func NewTokenCache(ttl time.Duration, maxEntries int) *TokenCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = DefaultTokenCacheSize
	}
	return &TokenCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		items:      make(map[string]cacheEntry),
	}
}

// Get returns the cached email for token when present and not expired.
func (c *TokenCache) Get(token string) (string, bool) {
	if c == nil {
		return "", false
	}
	now := c.now()

	c.mu.RLock()
	entry, ok := c.items[token]
	c.mu.RUnlock()
	if !ok || !now.Before(entry.expires) {
		return "", false
	}
	return entry.email, true
}

// Put stores the email for token. When the cache is full expired entries are
// dropped first, then the entry closest to expiry.
func (c *TokenCache) Put(token, email string) {
	if c == nil {
		return
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[token]; !ok && len(c.items) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.items[token] = cacheEntry{email: email, expires: now.Add(c.ttl)}
}

// Len reports how many entries are stored, expired or not.
func (c *TokenCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *TokenCache) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, entry := range c.items {
		if !now.Before(entry.expires) {
			delete(c.items, key)
			continue
		}
		if oldestKey == "" || entry.expires.Before(oldest) {
			oldestKey, oldest = key, entry.expires
		}
	}
	if len(c.items) >= c.maxEntries && oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
