// smartscrape/services/pipeline/cache.go
package pipeline

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"smartscrape/smartscrape/utils/types"
)

// Cache holds finished results keyed by normalized query. Entries age out
// after the TTL and the oldest are evicted once the size cap is reached,
// so memory stays bounded no matter how many distinct queries arrive.
type Cache struct {
	lru     *expirable.LRU[string, *types.ExtractedResult]
	enabled bool
}

// NewCache builds a bounded TTL cache. A disabled cache misses on every
// Get and drops every Add, which keeps call sites unconditional.
func NewCache(size int, ttl time.Duration, enabled bool) *Cache {
	if size <= 0 {
		size = 128
	}
	return &Cache{
		lru:     expirable.NewLRU[string, *types.ExtractedResult](size, nil, ttl),
		enabled: enabled,
	}
}

func (c *Cache) Get(key string) (*types.ExtractedResult, bool) {
	if !c.enabled {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *Cache) Add(key string, res *types.ExtractedResult) {
	if !c.enabled {
		return
	}
	c.lru.Add(key, res)
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Len reports how many live entries the cache holds.
func (c *Cache) Len() int {
	if !c.enabled {
		return 0
	}
	return c.lru.Len()
}
