package inventory

import (
	"strings"
	"sync"
)

// CacheStats provides statistics about device cache usage.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int64
	HitRate float64
}

type deviceEntry struct {
	MACAddress string
	Found      bool // an ieee802device entry exists for the host
}

// deviceCache holds the device lookups of one build, keyed by host name.
// A host listed in several groups is looked up once.
type deviceCache struct {
	mu      sync.Mutex
	entries map[string]deviceEntry
	stats   CacheStats
}

func newDeviceCache() *deviceCache {
	return &deviceCache{entries: make(map[string]deviceEntry)}
}

func (c *deviceCache) Get(host string) (deviceEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[strings.ToLower(host)]
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return entry, ok
}

func (c *deviceCache) Put(host string, entry deviceEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := strings.ToLower(host)
	if _, ok := c.entries[key]; !ok {
		c.stats.Entries++
	}
	c.entries[key] = entry
}

// Stats returns current cache statistics.
func (c *deviceCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}
	return stats
}
