package application

import (
	"fmt"
	"sync"
	"time"

	"github.com/macrohuang/invest-log/internal/domain"
)

type cacheEntry struct {
	price     float64
	source    string
	fetchedAt time.Time
}

// quoteCache holds recent successful quotes. Expiry is lazy: stale entries
// are skipped on read and replaced by the next successful fetch. Only
// positive results are ever stored.
type quoteCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newQuoteCache(ttl time.Duration) *quoteCache {
	return &quoteCache{ttl: ttl, entries: map[string]cacheEntry{}}
}

func quoteKey(symbol, currency string, class domain.InstrumentClass) string {
	return fmt.Sprintf("%s|%s|%s", symbol, currency, class)
}

func (c *quoteCache) get(key string, now time.Time) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return cacheEntry{}, false
	}
	if now.Sub(e.fetchedAt) > c.ttl {
		return cacheEntry{}, false
	}
	return e, true
}

func (c *quoteCache) put(key string, e cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
}
