package raster

import (
	"image"
	"sync"
	"testing"

	"github.com/gogpu/compositor/paint"
)

func chunkID(fragment int) paint.ChunkID {
	return paint.SomeChunkID(paint.ItemID{Client: 1, Type: paint.TypeContent, Fragment: fragment})
}

func TestNewChunkCache(t *testing.T) {
	tests := []struct {
		name        string
		maxSizeMB   int
		wantMaxSize int64
	}{
		{"positive size", 32, 32 * bytesPerMB},
		{"zero defaults", 0, DefaultCacheSizeMB * bytesPerMB},
		{"negative defaults", -1, DefaultCacheSizeMB * bytesPerMB},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewChunkCache(tt.maxSizeMB).Stats()
			if s.MaxSize != tt.wantMaxSize {
				t.Errorf("MaxSize = %d, want %d", s.MaxSize, tt.wantMaxSize)
			}
			if s.Size != 0 || s.Entries != 0 {
				t.Errorf("new cache not empty: %+v", s)
			}
		})
	}
}

func TestChunkCache_PutGet(t *testing.T) {
	c := NewChunkCache(1)
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))

	if _, ok := c.Get(chunkID(1)); ok {
		t.Fatal("Get on empty cache hit")
	}
	c.Put(chunkID(1), img, 7)
	got, ok := c.Get(chunkID(1))
	if !ok || got != img {
		t.Fatalf("Get = %p, %v; want %p, true", got, ok, img)
	}
	if f, ok := c.Frame(chunkID(1)); !ok || f != 7 {
		t.Errorf("Frame = %d, %v; want 7, true", f, ok)
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1", s.Hits, s.Misses)
	}
	if s.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", s.HitRate)
	}
	if s.Size != 100*100*bytesPerPixel {
		t.Errorf("Size = %d, want %d", s.Size, 100*100*bytesPerPixel)
	}
}

func TestChunkCache_NoID(t *testing.T) {
	c := NewChunkCache(1)
	c.Put(paint.NoChunkID, image.NewRGBA(image.Rect(0, 0, 4, 4)), 0)
	if c.EntryCount() != 0 {
		t.Errorf("EntryCount = %d, want 0", c.EntryCount())
	}
	if _, ok := c.Get(paint.NoChunkID); ok {
		t.Error("Get without id hit")
	}
}

func TestChunkCache_Replace(t *testing.T) {
	c := NewChunkCache(1)
	c.Put(chunkID(1), image.NewRGBA(image.Rect(0, 0, 10, 10)), 1)
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	c.Put(chunkID(1), img, 2)

	if c.EntryCount() != 1 {
		t.Fatalf("EntryCount = %d, want 1", c.EntryCount())
	}
	if got, _ := c.Get(chunkID(1)); got != img {
		t.Error("Get returned the replaced image")
	}
	if s := c.Stats(); s.Size != 20*20*bytesPerPixel {
		t.Errorf("Size = %d, want %d", s.Size, 20*20*bytesPerPixel)
	}
}

func TestChunkCache_LRUEviction(t *testing.T) {
	c := NewChunkCache(1)
	// Each image is 400KB; two fit in 1MB, three do not.
	mk := func() *image.RGBA { return image.NewRGBA(image.Rect(0, 0, 320, 320)) }

	c.Put(chunkID(1), mk(), 0)
	c.Put(chunkID(2), mk(), 0)
	c.Get(chunkID(1))
	c.Put(chunkID(3), mk(), 0)

	if _, ok := c.Get(chunkID(2)); ok {
		t.Error("least recently used entry survived")
	}
	for _, f := range []int{1, 3} {
		if _, ok := c.Get(chunkID(f)); !ok {
			t.Errorf("entry %d evicted", f)
		}
	}
	if s := c.Stats(); s.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", s.Evictions)
	}
}

func TestChunkCache_TooLarge(t *testing.T) {
	c := NewChunkCache(1)
	c.Put(chunkID(1), image.NewRGBA(image.Rect(0, 0, 1024, 1024)), 0)
	if c.EntryCount() != 0 {
		t.Errorf("EntryCount = %d, want 0", c.EntryCount())
	}
}

func TestChunkCache_Invalidate(t *testing.T) {
	c := NewChunkCache(1)
	for i := 0; i < 3; i++ {
		c.Put(chunkID(i), image.NewRGBA(image.Rect(0, 0, 10, 10)), 0)
	}

	c.Invalidate(chunkID(1))
	if _, ok := c.Get(chunkID(1)); ok {
		t.Error("invalidated entry still cached")
	}
	if c.EntryCount() != 2 {
		t.Errorf("EntryCount = %d, want 2", c.EntryCount())
	}

	c.InvalidateAll()
	s := c.Stats()
	if s.Entries != 0 || s.Size != 0 {
		t.Errorf("after InvalidateAll: %+v", s)
	}
	if s.Evictions != 3 {
		t.Errorf("Evictions = %d, want 3", s.Evictions)
	}
}

func TestChunkCache_Trim(t *testing.T) {
	c := NewChunkCache(1)
	for i := 0; i < 4; i++ {
		c.Put(chunkID(i), image.NewRGBA(image.Rect(0, 0, 10, 10)), 0)
	}
	c.Trim(2 * 10 * 10 * bytesPerPixel)
	if c.EntryCount() != 2 {
		t.Fatalf("EntryCount = %d, want 2", c.EntryCount())
	}
	for _, f := range []int{2, 3} {
		if _, ok := c.Get(chunkID(f)); !ok {
			t.Errorf("recent entry %d trimmed", f)
		}
	}

	c.Trim(-1)
	if c.EntryCount() != 0 {
		t.Errorf("EntryCount after Trim(-1) = %d, want 0", c.EntryCount())
	}
}

func TestChunkCache_ResetStats(t *testing.T) {
	c := NewChunkCache(1)
	c.Get(chunkID(1))
	c.ResetStats()
	if s := c.Stats(); s.Misses != 0 || s.HitRate != 0 {
		t.Errorf("after ResetStats: %+v", s)
	}
}

func TestChunkCache_Concurrent(t *testing.T) {
	c := NewChunkCache(1)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := chunkID(g*100 + i%10)
				c.Put(id, image.NewRGBA(image.Rect(0, 0, 8, 8)), uint64(i))
				c.Get(id)
			}
		}(g)
	}
	wg.Wait()

	if n := c.EntryCount(); n != 80 {
		t.Errorf("EntryCount = %d, want 80", n)
	}
}
