package pricing

import (
	"sync"

	"goquant/internal/instrument"
	"goquant/internal/risk"
)

// Cache holds computed risk results keyed by instrument identity token
// and risk key. It never stores error results or results computed against
// a live market; live values are point-in-time and not safely reusable.
//
// Entries are evicted when the owning instrument is closed; there is no
// other eviction policy.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]map[string]risk.Result // token -> key fingerprint -> result
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]map[string]risk.Result)}
}

// Get returns the cached result for (token, key), if present.
func (c *Cache) Get(token string, key risk.Key) (risk.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	byKey, ok := c.entries[token]
	if !ok {
		return nil, false
	}
	r, ok := byKey[key.Fingerprint()]
	return r, ok
}

// Put stores a result for (token, key). Error results and live-market
// results are silently dropped.
func (c *Cache) Put(token string, key risk.Key, r risk.Result) {
	if r == nil || r.IsError() || key.IsLiveMarket() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	byKey, ok := c.entries[token]
	if !ok {
		byKey = make(map[string]risk.Result)
		c.entries[token] = byKey
	}
	byKey[key.Fingerprint()] = r
}

// Evict removes every entry owned by the instrument token.
func (c *Cache) Evict(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, token)
}

// Len returns the number of cached results across all instruments.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, byKey := range c.entries {
		n += len(byKey)
	}
	return n
}

var (
	processCacheOnce sync.Once
	processCache     *Cache
)

// DefaultCache returns the process-wide cache. Closing an instrument
// evicts its entries from this cache.
func DefaultCache() *Cache {
	processCacheOnce.Do(func() {
		processCache = NewCache()
		instrument.RegisterCloseHook(func(token string) {
			processCache.Evict(token)
		})
	})
	return processCache
}
