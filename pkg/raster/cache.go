package raster

import (
	"container/list"
	"sync"
)

// gridCache is a bounded LRU over decoded grids. Grids are immutable, so the
// cache is read-only after insert.
type gridCache struct {
	maxSize int
	entries map[Scenario]*cacheEntry
	lru     *list.List
	mu      sync.Mutex

	hits   uint64
	misses uint64
}

type cacheEntry struct {
	key     Scenario
	grid    *Grid
	element *list.Element
}

func newGridCache(maxSize int) *gridCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &gridCache{
		maxSize: maxSize,
		entries: make(map[Scenario]*cacheEntry),
		lru:     list.New(),
	}
}

func (c *gridCache) Get(key Scenario) *Grid {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil
	}
	c.lru.MoveToFront(entry.element)
	c.hits++
	return entry.grid
}

func (c *gridCache) Put(key Scenario, grid *Grid) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.grid = grid
		c.lru.MoveToFront(entry.element)
		return
	}

	entry := &cacheEntry{key: key, grid: grid}
	entry.element = c.lru.PushFront(entry)
	c.entries[key] = entry

	if c.lru.Len() > c.maxSize {
		oldest := c.lru.Back()
		if oldest != nil {
			evicted := oldest.Value.(*cacheEntry)
			c.lru.Remove(oldest)
			delete(c.entries, evicted.key)
		}
	}
}

func (c *gridCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *gridCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
