// Package cache provides balance caching functionality.
//
// Entries are keyed by network, derivation path template and index, so a
// rescan of the same window can be answered without touching the node.
package cache

import (
	"strconv"
	"sync"
	"time"
)

// DefaultStaleness is the default duration after which cache entries are considered stale.
const DefaultStaleness = 5 * time.Minute

// BalanceCache stores cached balance information.
type BalanceCache struct {
	mu      sync.RWMutex     `json:"-"`
	Entries map[string]Entry `json:"entries"`

	now func() time.Time
}

// Entry is the cached balance of one derived address.
type Entry struct {
	Network   string    `json:"network"`
	Path      string    `json:"path"`
	Index     int       `json:"index"`
	Address   string    `json:"address"`
	Balance   string    `json:"balance"` // base units
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBalanceCache creates a new empty balance cache.
func NewBalanceCache() *BalanceCache {
	return &BalanceCache{
		Entries: make(map[string]Entry),
	}
}

func (c *BalanceCache) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// Key generates a cache key for the address at index on a path template.
func Key(network, path string, index int) string {
	return network + ":" + path + ":" + strconv.Itoa(index)
}

// Get retrieves a cached balance entry.
// Returns the entry, whether it exists, and its age.
func (c *BalanceCache) Get(network, path string, index int) (Entry, bool, time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.Entries[Key(network, path, index)]
	if !exists {
		return Entry{}, false, 0
	}
	return entry, true, c.clock().Sub(entry.UpdatedAt)
}

// Fresh returns the entry when it exists and is no older than staleness.
func (c *BalanceCache) Fresh(network, path string, index int, staleness time.Duration) (Entry, bool) {
	entry, exists, age := c.Get(network, path, index)
	if !exists || age > staleness {
		return Entry{}, false
	}
	return entry, true
}

// Set stores a balance entry in the cache, stamped with the current time.
func (c *BalanceCache) Set(entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.UpdatedAt = c.clock()
	c.Entries[Key(entry.Network, entry.Path, entry.Index)] = entry
}

// Clear removes all cache entries.
func (c *BalanceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Entries = make(map[string]Entry)
}

// Size returns the number of cache entries.
func (c *BalanceCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.Entries)
}

// Prune removes entries older than the specified duration.
func (c *BalanceCache) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	cutoff := c.clock().Add(-maxAge)
	for key, entry := range c.Entries {
		if entry.UpdatedAt.Before(cutoff) {
			delete(c.Entries, key)
			removed++
		}
	}
	return removed
}
