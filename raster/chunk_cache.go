package raster

import (
	"container/list"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/compositor/paint"
)

// Default cache configuration constants.
const (
	// DefaultCacheSizeMB is the default chunk cache budget in megabytes.
	DefaultCacheSizeMB = 64

	bytesPerMB    = 1024 * 1024
	bytesPerPixel = 4
)

// ChunkCache is an LRU cache of rasterized paint chunks keyed by chunk id.
// Entries hold the chunk's items rendered in the chunk's local space over
// its bounds. It is safe for concurrent use.
type ChunkCache struct {
	mu      sync.RWMutex
	entries map[paint.ChunkID]*cacheEntry
	lru     *list.List // front = most recent
	size    int64
	maxSize int64

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type cacheEntry struct {
	id      paint.ChunkID
	img     *image.RGBA
	size    int64
	frame   uint64
	element *list.Element
}

// CacheStats reports cache usage.
type CacheStats struct {
	Size      int64 // bytes in use
	MaxSize   int64 // budget in bytes
	Entries   int
	Hits      uint64
	Misses    uint64
	HitRate   float64
	Evictions uint64
}

// NewChunkCache returns a cache with a budget of maxSizeMB megabytes. A
// non-positive size selects DefaultCacheSizeMB.
func NewChunkCache(maxSizeMB int) *ChunkCache {
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultCacheSizeMB
	}
	return &ChunkCache{
		entries: make(map[paint.ChunkID]*cacheEntry),
		lru:     list.New(),
		maxSize: int64(maxSizeMB) * bytesPerMB,
	}
}

// Get returns the raster cached for id and moves it to the front of the
// LRU order.
func (c *ChunkCache) Get(id paint.ChunkID) (*image.RGBA, bool) {
	if !id.IsSet() {
		c.misses.Add(1)
		return nil, false
	}
	c.mu.Lock()
	entry, ok := c.entries[id]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	c.lru.MoveToFront(entry.element)
	img := entry.img
	c.mu.Unlock()

	c.hits.Add(1)
	return img, true
}

// Put stores img for id, evicting least recently used entries to stay
// within budget. Chunks without an id and images larger than the whole
// budget are not cached.
func (c *ChunkCache) Put(id paint.ChunkID, img *image.RGBA, frame uint64) {
	if !id.IsSet() || img == nil {
		return
	}
	entrySize := imageSize(img)
	if entrySize <= 0 || entrySize > c.maxSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[id]; ok {
		c.size -= existing.size
		c.lru.Remove(existing.element)
		delete(c.entries, id)
	}
	c.evictUntilSize(c.maxSize - entrySize)

	entry := &cacheEntry{id: id, img: img, size: entrySize, frame: frame}
	entry.element = c.lru.PushFront(entry)
	c.entries[id] = entry
	c.size += entrySize
}

// Frame returns the frame number an entry was stored at.
func (c *ChunkCache) Frame(id paint.ChunkID) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.entries[id]; ok {
		return entry.frame, true
	}
	return 0, false
}

// Invalidate removes the entry for id.
func (c *ChunkCache) Invalidate(id paint.ChunkID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[id]; ok {
		c.lru.Remove(entry.element)
		c.size -= entry.size
		delete(c.entries, id)
		c.evictions.Add(1)
	}
}

// InvalidateAll empties the cache.
func (c *ChunkCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := uint64(len(c.entries))
	c.entries = make(map[paint.ChunkID]*cacheEntry)
	c.lru.Init()
	c.size = 0
	if evicted > 0 {
		c.evictions.Add(evicted)
	}
}

// Trim evicts entries until at most targetSize bytes are in use.
func (c *ChunkCache) Trim(targetSize int64) {
	if targetSize < 0 {
		targetSize = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictUntilSize(targetSize)
}

// evictUntilSize must be called with c.mu held.
func (c *ChunkCache) evictUntilSize(targetSize int64) {
	for c.size > targetSize && c.lru.Len() > 0 {
		elem := c.lru.Back()
		entry := elem.Value.(*cacheEntry)
		c.lru.Remove(elem)
		c.size -= entry.size
		delete(c.entries, entry.id)
		c.evictions.Add(1)
	}
}

// Stats returns cache statistics.
func (c *ChunkCache) Stats() CacheStats {
	c.mu.RLock()
	size, maxSize, entries := c.size, c.maxSize, len(c.entries)
	c.mu.RUnlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return CacheStats{
		Size:      size,
		MaxSize:   maxSize,
		Entries:   entries,
		Hits:      hits,
		Misses:    misses,
		HitRate:   hitRate,
		Evictions: c.evictions.Load(),
	}
}

// EntryCount returns the number of cached chunks.
func (c *ChunkCache) EntryCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ResetStats zeroes the hit, miss and eviction counters.
func (c *ChunkCache) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}

func imageSize(img *image.RGBA) int64 {
	b := img.Bounds()
	return int64(b.Dx()) * int64(b.Dy()) * bytesPerPixel
}
