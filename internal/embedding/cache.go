package embedding

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultCacheCapacity = 1000
	DefaultSweepInterval = 5 * time.Minute
	// DefaultEvictFraction is the share of oldest entries removed per
	// sweep, so cleanup is amortized instead of per-insert.
	DefaultEvictFraction = 0.2
)

// Cache memoizes text-to-vector lookups. Entries are evicted oldest-first
// by a periodic sweep once occupancy exceeds the capacity; they never
// expire by age. Nothing is persisted, the cache starts empty.
type Cache struct {
	mu       sync.Mutex
	capacity int
	fraction float64
	entries  map[string][]float32
	order    []string
}

func NewCache(capacity int, evictFraction float64) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if evictFraction <= 0 || evictFraction > 1 {
		evictFraction = DefaultEvictFraction
	}
	return &Cache{
		capacity: capacity,
		fraction: evictFraction,
		entries:  make(map[string][]float32),
	}
}

func (c *Cache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[text]
	return v, ok
}

// Put stores the vector without triggering eviction; the periodic sweep
// handles size pressure. Re-inserting an existing key keeps its original
// position in the eviction order.
func (c *Cache) Put(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[text]; !ok {
		c.order = append(c.order, text)
	}
	c.entries[text] = vector
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep evicts oldest-inserted entries when occupancy exceeds the
// capacity, and returns how many were evicted. It removes at least the
// configured fraction and always enough to bring occupancy back to the
// capacity, so a single sweep restores the bound however far it was
// overshot between sweeps.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) <= c.capacity {
		return 0
	}
	n := int(float64(len(c.entries)) * c.fraction)
	if over := len(c.entries) - c.capacity; n < over {
		n = over
	}
	if n < 1 {
		n = 1
	}
	for _, text := range c.order[:n] {
		delete(c.entries, text)
	}
	c.order = append([]string(nil), c.order[n:]...)
	return n
}

// Run sweeps on a fixed interval until the context ends. It owns its own
// timer and takes the cache lock only for the duration of each sweep.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Sweep(); removed > 0 {
				log.Info().Int("evicted", removed).Int("size", c.Len()).Msg("embedding cache sweep")
			}
		}
	}
}
