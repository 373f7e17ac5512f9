package classify

import (
	"sync"

	"github.com/elliotchance/orderedmap/v3"
)

// DefaultCacheSize bounds the classifier memoization cache.
const DefaultCacheSize = 512

// Cache is a bounded LRU of classification verdicts keyed by normalized
// message text. Keys carry a classifier prefix so cancellation and
// info-query verdicts for the same text never collide.
type Cache struct {
	mu       sync.Mutex
	entries  *orderedmap.OrderedMap[string, bool]
	capacity int
}

// NewCache creates a verdict cache holding at most capacity entries.
// A capacity of zero or less falls back to DefaultCacheSize.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cache{
		entries:  orderedmap.NewOrderedMap[string, bool](),
		capacity: capacity,
	}
}

// Get returns the cached verdict for key and whether it was present.
// A hit refreshes the entry's recency.
func (c *Cache) Get(key string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	verdict, ok := c.entries.Get(key)
	if !ok {
		return false, false
	}
	c.entries.Delete(key)
	c.entries.Set(key, verdict)
	return verdict, true
}

// Put stores a verdict, evicting the least recently used entry when full.
func (c *Cache) Put(key string, verdict bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries.Get(key); ok {
		c.entries.Delete(key)
	} else if c.entries.Len() >= c.capacity {
		if oldest := c.entries.Front(); oldest != nil {
			c.entries.Delete(oldest.Key)
		}
	}
	c.entries.Set(key, verdict)
}

// Len returns the number of cached verdicts.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
