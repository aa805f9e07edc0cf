// Package replay provides a bounded, TTL-expiring cache of seen receipt IDs
// used to reject replayed PEAC receipts.
package replay

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCapacity bounds memory use independent of TTL: under sustained
// traffic a pure TTL cache can still grow unbounded if receipts arrive
// faster than they expire.
const DefaultCapacity = 100_000

// DefaultTTL is the default window a receipt ID is remembered for.
const DefaultTTL = time.Hour

// Cache tracks receipt IDs (rid claims) that have already been verified
// once. A second verification of the same rid within the TTL window is
// rejected as a replay.
type Cache struct {
	mu   sync.Mutex
	seen *lru.LRU[string, struct{}]
}

// New creates a replay cache with the given capacity and TTL. A capacity or
// TTL of zero falls back to the package defaults.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{seen: lru.NewLRU[string, struct{}](capacity, nil, ttl)}
}

// CheckAndMark records id as seen and reports whether it had already been
// seen (a replay). The check and mark happen atomically with respect to
// other callers.
func (c *Cache) CheckAndMark(id string) (replay bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen.Get(id); ok {
		return true
	}
	c.seen.Add(id, struct{}{})
	return false
}

// Len returns the number of IDs currently tracked.
func (c *Cache) Len() int {
	return c.seen.Len()
}
