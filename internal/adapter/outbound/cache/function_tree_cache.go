// Package cache keeps recently scanned function trees in memory.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"luascan/internal/application/common/slogger"
	"luascan/internal/domain/entity"
	"luascan/internal/port/outbound"
)

// FunctionTreeCache provides thread-safe caching of function trees by source
// hash with LRU eviction. Cached trees are shared and must not be modified.
type FunctionTreeCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front is most recently used
	maxSize int
	stats   CacheStatistics
}

// cacheEntry represents a cached tree with metadata.
type cacheEntry struct {
	key         string
	tree        *entity.FunctionTree
	createdAt   time.Time
	accessCount int64
}

// CacheStatistics tracks cache performance metrics.
type CacheStatistics struct {
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	Evictions  int64   `json:"evictions"`
	TotalItems int64   `json:"total_items"`
	HitRate    float64 `json:"hit_rate"`
}

var _ outbound.FunctionTreeCache = (*FunctionTreeCache)(nil)

// NewFunctionTreeCache creates a cache holding at most maxSize trees.
// maxSize below 1 is treated as 1.
func NewFunctionTreeCache(maxSize int) *FunctionTreeCache {
	return &FunctionTreeCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: max(maxSize, 1),
	}
}

// Get returns the tree cached for hash.
func (c *FunctionTreeCache) Get(ctx context.Context, hash string) (*entity.FunctionTree, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[hash]
	if !ok {
		c.stats.Misses++
		c.updateHitRate()
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	entry.accessCount++
	c.order.MoveToFront(elem)
	c.stats.Hits++
	c.updateHitRate()

	slogger.Debug(ctx, "Cache hit for function tree", slogger.Fields{
		"key":          shortKey(hash),
		"access_count": entry.accessCount,
	})
	return entry.tree, true
}

// Put stores tree under hash, evicting the least recently used tree when full.
func (c *FunctionTreeCache) Put(ctx context.Context, hash string, tree *entity.FunctionTree) {
	if tree == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[hash]; ok {
		elem.Value.(*cacheEntry).tree = tree
		c.order.MoveToFront(elem)
		return
	}

	for c.order.Len() >= c.maxSize {
		c.evictLRU(ctx)
	}

	c.entries[hash] = c.order.PushFront(&cacheEntry{key: hash, tree: tree, createdAt: time.Now()})
}

// Len returns the number of cached trees.
func (c *FunctionTreeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// GetStatistics returns a copy of the current statistics.
func (c *FunctionTreeCache) GetStatistics() CacheStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.TotalItems = int64(c.order.Len())
	return stats
}

// Clear removes all entries from the cache.
func (c *FunctionTreeCache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cleared := c.order.Len()
	c.entries = make(map[string]*list.Element)
	c.order.Init()

	slogger.Info(ctx, "Function tree cache cleared", slogger.Fields{"entries_cleared": cleared})
}

// evictLRU removes the least recently used entry. Callers hold mu.
func (c *FunctionTreeCache) evictLRU(ctx context.Context) {
	elem := c.order.Back()
	if elem == nil {
		return
	}

	entry := c.order.Remove(elem).(*cacheEntry)
	delete(c.entries, entry.key)
	c.stats.Evictions++

	slogger.Debug(ctx, "Evicted cache entry", slogger.Fields{
		"key":          shortKey(entry.key),
		"access_count": entry.accessCount,
		"age_seconds":  time.Since(entry.createdAt).Seconds(),
	})
}

func (c *FunctionTreeCache) updateHitRate() {
	total := c.stats.Hits + c.stats.Misses
	if total > 0 {
		c.stats.HitRate = float64(c.stats.Hits) / float64(total)
	}
}

func shortKey(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:8] + "..."
}
