package paint

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/gogpu/compositor/internal/check"
)

var testColor = color.RGBA{R: 0x20, G: 0x40, B: 0x80, A: 0xff}

func drawing(client ClientID, typ ItemType) DisplayItem {
	return NewDrawing(client, typ, 0, RectFill{Rect: image.Rect(0, 0, 10, 10), Color: testColor})
}

func foreign(client ClientID) DisplayItem {
	return NewForeignLayer(client, TypeForeignLayerVideo, ForeignLayer{Layer: LayerRef(client), Size: image.Pt(40, 30)})
}

func testProps(t *TransformNode) ChunkProperties {
	return ChunkProperties{State: PropertyTreeState{Transform: t, Clip: RootClip(), Effect: RootEffect()}}
}

func assertCoverage(t *testing.T, chunks []PaintChunk, n int) {
	t.Helper()
	next := 0
	for i, c := range chunks {
		if c.Begin != next {
			t.Fatalf("chunk %d begins at %d, want %d", i, c.Begin, next)
		}
		if c.End <= c.Begin {
			t.Fatalf("chunk %d is empty: %s", i, c)
		}
		next = c.End
	}
	if next != n {
		t.Fatalf("chunks cover [0,%d), want [0,%d)", next, n)
	}
}

func TestChunkerEmpty(t *testing.T) {
	c := NewChunker()
	if got := c.ReleasePaintChunks(); len(got) != 0 {
		t.Errorf("ReleasePaintChunks() on empty chunker = %v", got)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestChunkerSingleChunk(t *testing.T) {
	c := NewChunker()
	props := RootChunkProperties()
	c.UpdateCurrentPaintChunkProperties(NoChunkID, props)

	a, b := drawing(1, TypeBackground), drawing(1, TypeContent)
	if !c.IncrementDisplayItemIndex(&a) {
		t.Error("first item should start a new chunk")
	}
	if c.IncrementDisplayItemIndex(&b) {
		t.Error("second item with the same properties should merge")
	}

	chunks := c.ReleasePaintChunks()
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Begin != 0 || chunks[0].End != 2 || chunks[0].Properties != props {
		t.Errorf("chunk = %+v", chunks[0])
	}
}

func TestChunkerPropertyChange(t *testing.T) {
	c := NewChunker()
	p1 := testProps(RootTransform())
	p2 := testProps(NewTranslation(RootTransform(), 10, 0))

	items := []DisplayItem{drawing(1, TypeBackground), drawing(2, TypeBackground), drawing(3, TypeBackground)}
	c.UpdateCurrentPaintChunkProperties(NoChunkID, p1)
	c.IncrementDisplayItemIndex(&items[0])
	c.UpdateCurrentPaintChunkProperties(NoChunkID, p2)
	if !c.IncrementDisplayItemIndex(&items[1]) {
		t.Error("property change should start a new chunk")
	}
	c.UpdateCurrentPaintChunkProperties(NoChunkID, p1)
	if !c.IncrementDisplayItemIndex(&items[2]) {
		t.Error("changing back should start another chunk")
	}

	chunks := c.ReleasePaintChunks()
	assertCoverage(t, chunks, 3)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if chunks[1].Properties != p2 || chunks[2].Properties != p1 {
		t.Error("chunks do not carry the properties active for their items")
	}
}

func TestChunkerUpdateWithoutChangeDoesNotSplit(t *testing.T) {
	c := NewChunker()
	p := RootChunkProperties()
	a, b := drawing(1, TypeBackground), drawing(1, TypeBorder)
	c.UpdateCurrentPaintChunkProperties(NoChunkID, p)
	c.IncrementDisplayItemIndex(&a)
	c.UpdateCurrentPaintChunkProperties(NoChunkID, p)
	if c.IncrementDisplayItemIndex(&b) {
		t.Error("re-setting equal properties should not split the chunk")
	}
}

// Items A..E share P1 and C is a foreign layer: expect [0,2) [2,3) [3,5).
func TestChunkerForeignLayerScenario(t *testing.T) {
	c := NewChunker()
	p1 := RootChunkProperties()
	c.UpdateCurrentPaintChunkProperties(NoChunkID, p1)

	items := []DisplayItem{
		drawing(1, TypeBackground),
		drawing(2, TypeBackground),
		foreign(3),
		drawing(4, TypeBackground),
		drawing(5, TypeBackground),
	}
	wantNew := []bool{true, false, true, true, false}
	for i := range items {
		if got := c.IncrementDisplayItemIndex(&items[i]); got != wantNew[i] {
			t.Errorf("item %d: new chunk = %v, want %v", i, got, wantNew[i])
		}
	}

	chunks := c.ReleasePaintChunks()
	want := []PaintChunk{
		{Begin: 0, End: 2, Properties: p1},
		{Begin: 2, End: 3, ID: SomeChunkID(items[2].ID), Properties: p1},
		{Begin: 3, End: 5, Properties: p1},
	}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks %v, want %d", len(chunks), chunks, len(want))
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %+v, want %+v", i, chunks[i], want[i])
		}
	}
}

func TestChunkerConsecutiveForeignLayers(t *testing.T) {
	c := NewChunker()
	c.UpdateCurrentPaintChunkProperties(NoChunkID, RootChunkProperties())
	items := []DisplayItem{foreign(1), foreign(2)}
	for i := range items {
		if !c.IncrementDisplayItemIndex(&items[i]) {
			t.Errorf("foreign item %d should start its own chunk", i)
		}
	}
	chunks := c.ReleasePaintChunks()
	if len(chunks) != 2 || chunks[0].Size() != 1 || chunks[1].Size() != 1 {
		t.Errorf("chunks = %v", chunks)
	}
}

func TestChunkerForeignLayerSkippedCacheHasNoID(t *testing.T) {
	c := NewChunker()
	c.UpdateCurrentPaintChunkProperties(NoChunkID, RootChunkProperties())
	item := foreign(7)
	item.SkippedCache = true
	c.IncrementDisplayItemIndex(&item)
	chunks := c.ReleasePaintChunks()
	if chunks[0].ID.IsSet() {
		t.Errorf("foreign layer that skipped cache got id %s", chunks[0].ID)
	}
}

func TestChunkerForeignLayerClearsPendingID(t *testing.T) {
	c := NewChunker()
	idItem := drawing(9, TypeBackground)
	c.UpdateCurrentPaintChunkProperties(SomeChunkID(idItem.ID), RootChunkProperties())
	items := []DisplayItem{drawing(1, TypeBackground), foreign(2), drawing(3, TypeBackground)}
	for i := range items {
		c.IncrementDisplayItemIndex(&items[i])
	}
	chunks := c.ReleasePaintChunks()
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if chunks[0].ID != SomeChunkID(idItem.ID) {
		t.Errorf("first chunk id = %s, want %s", chunks[0].ID, idItem.ID)
	}
	if chunks[2].ID.IsSet() {
		t.Errorf("chunk after foreign layer reused id %s", chunks[2].ID)
	}
}

func TestChunkerSkippedCacheMismatchSplits(t *testing.T) {
	c := NewChunker()
	id := SomeChunkID(ItemID{Client: 42})
	c.UpdateCurrentPaintChunkProperties(id, RootChunkProperties())

	a, b, d := drawing(1, TypeBackground), drawing(2, TypeBackground), drawing(3, TypeBackground)
	b.SkippedCache = true
	c.IncrementDisplayItemIndex(&a)
	if !c.IncrementDisplayItemIndex(&b) {
		t.Error("item skipping cache inside an identified chunk should split")
	}
	if c.IncrementDisplayItemIndex(&d) {
		t.Error("cached item after an id-less chunk should continue it")
	}
	chunks := c.ReleasePaintChunks()
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks %v, want 2", len(chunks), chunks)
	}
	if chunks[0].ID != id || chunks[1].ID.IsSet() {
		t.Errorf("ids = %s %s", chunks[0].ID, chunks[1].ID)
	}
}

func TestChunkerPendingIDUsedOnce(t *testing.T) {
	p1 := testProps(RootTransform())
	p2 := testProps(NewTranslation(RootTransform(), 3, 0))
	id := SomeChunkID(ItemID{Client: 9, Type: TypeBackground})

	tests := []struct {
		name string
		run  func(c *Chunker)
	}{
		{"after property change", func(c *Chunker) {
			a, b := drawing(1, TypeBackground), drawing(2, TypeBackground)
			c.UpdateCurrentPaintChunkProperties(id, p1)
			c.IncrementDisplayItemIndex(&a)
			c.UpdateCurrentPaintChunkProperties(NoChunkID, p2)
			c.IncrementDisplayItemIndex(&b)
		}},
		{"after skipped item", func(c *Chunker) {
			a, b, d := drawing(1, TypeBackground), drawing(2, TypeBackground), drawing(3, TypeBackground)
			b.SkippedCache = true
			c.UpdateCurrentPaintChunkProperties(id, p1)
			c.IncrementDisplayItemIndex(&a)
			c.IncrementDisplayItemIndex(&b)
			c.UpdateCurrentPaintChunkProperties(NoChunkID, p2)
			c.IncrementDisplayItemIndex(&d)
		}},
		{"id set again", func(c *Chunker) {
			a, b, d := drawing(1, TypeBackground), drawing(2, TypeBackground), drawing(3, TypeBackground)
			c.UpdateCurrentPaintChunkProperties(id, p1)
			c.IncrementDisplayItemIndex(&a)
			c.UpdateCurrentPaintChunkProperties(NoChunkID, p2)
			c.IncrementDisplayItemIndex(&b)
			c.UpdateCurrentPaintChunkProperties(id, p1)
			c.IncrementDisplayItemIndex(&d)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChunker()
			tt.run(c)
			chunks := c.ReleasePaintChunks()
			if chunks[0].ID != id {
				t.Errorf("first chunk id = %s, want %s", chunks[0].ID, id)
			}
			for i, ch := range chunks[1:] {
				if ch.ID == id {
					t.Errorf("chunk %d reused id %s: %v", i+1, id, chunks)
				}
			}
		})
	}
}

func TestChunkerDecrementRestoresPendingID(t *testing.T) {
	p := RootChunkProperties()
	id := SomeChunkID(ItemID{Client: 7, Type: TypeBackground})

	t.Run("foreign layer", func(t *testing.T) {
		c := NewChunker()
		a, f, d := drawing(1, TypeBackground), foreign(2), drawing(3, TypeBackground)
		c.UpdateCurrentPaintChunkProperties(id, p)
		c.IncrementDisplayItemIndex(&a)
		c.IncrementDisplayItemIndex(&f)
		c.DecrementDisplayItemIndex()
		if c.IncrementDisplayItemIndex(&d) {
			t.Error("item after an undone foreign layer should merge")
		}
		chunks := c.ReleasePaintChunks()
		if len(chunks) != 1 || chunks[0].ID != id || chunks[0].End != 2 {
			t.Errorf("chunks = %v", chunks)
		}
	})
	t.Run("foreign layer before first use", func(t *testing.T) {
		c := NewChunker()
		f, d := foreign(2), drawing(3, TypeBackground)
		c.UpdateCurrentPaintChunkProperties(id, p)
		c.IncrementDisplayItemIndex(&f)
		c.DecrementDisplayItemIndex()
		c.IncrementDisplayItemIndex(&d)
		if chunks := c.ReleasePaintChunks(); chunks[0].ID != id {
			t.Errorf("pending id lost: %v", chunks)
		}
	})
	t.Run("item that used the id", func(t *testing.T) {
		c := NewChunker()
		a, d := drawing(1, TypeBackground), drawing(3, TypeBackground)
		c.UpdateCurrentPaintChunkProperties(id, p)
		c.IncrementDisplayItemIndex(&a)
		c.DecrementDisplayItemIndex()
		c.IncrementDisplayItemIndex(&d)
		if chunks := c.ReleasePaintChunks(); len(chunks) != 1 || chunks[0].ID != id {
			t.Errorf("chunks = %v", chunks)
		}
	})
}

func TestChunkerNewIDSplits(t *testing.T) {
	c := NewChunker()
	p := RootChunkProperties()
	a, b := drawing(1, TypeBackground), drawing(2, TypeBackground)
	c.UpdateCurrentPaintChunkProperties(SomeChunkID(a.ID), p)
	c.IncrementDisplayItemIndex(&a)
	c.UpdateCurrentPaintChunkProperties(SomeChunkID(b.ID), p)
	if !c.IncrementDisplayItemIndex(&b) {
		t.Error("a new chunk id should start a new chunk")
	}
}

func TestChunkerDecrement(t *testing.T) {
	c := NewChunker()
	p1 := testProps(RootTransform())
	p2 := testProps(NewTranslation(RootTransform(), 0, 5))
	items := []DisplayItem{drawing(1, TypeBackground), drawing(2, TypeBackground), drawing(3, TypeBackground)}

	c.UpdateCurrentPaintChunkProperties(NoChunkID, p1)
	c.IncrementDisplayItemIndex(&items[0])
	c.IncrementDisplayItemIndex(&items[1])
	c.UpdateCurrentPaintChunkProperties(NoChunkID, p2)
	c.IncrementDisplayItemIndex(&items[2])

	c.DecrementDisplayItemIndex()
	if got := c.Chunks(); len(got) != 1 || got[0].End != 2 {
		t.Fatalf("after removing single-item chunk: %v", got)
	}
	c.DecrementDisplayItemIndex()
	if got := c.Chunks(); len(got) != 1 || got[0].End != 1 {
		t.Fatalf("after shrinking chunk: %v", got)
	}
	c.DecrementDisplayItemIndex()
	if c.Size() != 0 || len(c.Chunks()) != 0 {
		t.Fatalf("chunker not empty: %v", c.Chunks())
	}

	// The chunker still works after being emptied by decrements.
	c.IncrementDisplayItemIndex(&items[0])
	assertCoverage(t, c.ReleasePaintChunks(), 1)
}

func TestChunkerDecrementEmpty(t *testing.T) {
	c := NewChunker()
	if check.Enabled {
		defer func() {
			if recover() == nil {
				t.Error("expected panic in debug build")
			}
		}()
	}
	c.DecrementDisplayItemIndex()
	if c.Size() != 0 {
		t.Errorf("Size() = %d after decrement on empty chunker", c.Size())
	}
}

func TestChunkerReleaseResets(t *testing.T) {
	c := NewChunker()
	id := SomeChunkID(ItemID{Client: 1})
	c.UpdateCurrentPaintChunkProperties(id, RootChunkProperties())
	a := drawing(1, TypeBackground)
	c.IncrementDisplayItemIndex(&a)

	first := c.ReleasePaintChunks()
	if len(first) != 1 {
		t.Fatalf("got %d chunks", len(first))
	}
	if c.Size() != 0 || len(c.Chunks()) != 0 {
		t.Error("chunker not reset after release")
	}
	if c.CurrentPaintChunkProperties() != (ChunkProperties{}) {
		t.Error("properties not reset after release")
	}

	// New chunks must not alias the released slice.
	c.UpdateCurrentPaintChunkProperties(NoChunkID, RootChunkProperties())
	b := drawing(2, TypeBackground)
	c.IncrementDisplayItemIndex(&b)
	if first[0].ID != id {
		t.Error("released chunks were modified by the next pass")
	}
}

func TestChunkerClear(t *testing.T) {
	c := NewChunker()
	c.UpdateCurrentPaintChunkProperties(NoChunkID, RootChunkProperties())
	a := drawing(1, TypeBackground)
	c.IncrementDisplayItemIndex(&a)
	c.Clear()
	if c.Size() != 0 {
		t.Errorf("Size() after Clear = %d", c.Size())
	}
}

type step struct {
	item  DisplayItem
	props ChunkProperties
	id    ChunkID
}

func randomSteps(r *rand.Rand, n int) []step {
	props := []ChunkProperties{
		testProps(RootTransform()),
		testProps(NewTranslation(RootTransform(), 1, 1)),
		testProps(NewTranslation(RootTransform(), 2, 2)),
	}
	steps := make([]step, n)
	for i := range steps {
		var it DisplayItem
		if r.Intn(5) == 0 {
			it = foreign(ClientID(i))
		} else {
			it = drawing(ClientID(i), TypeContent)
		}
		it.SkippedCache = r.Intn(7) == 0
		steps[i] = step{item: it, props: props[r.Intn(len(props))]}
		if r.Intn(4) == 0 {
			steps[i].id = SomeChunkID(ItemID{Client: ClientID(r.Intn(3)), Type: TypeBackground})
		}
	}
	return steps
}

func runSteps(c *Chunker, steps []step) []PaintChunk {
	for i := range steps {
		c.UpdateCurrentPaintChunkProperties(steps[i].id, steps[i].props)
		c.IncrementDisplayItemIndex(&steps[i].item)
	}
	return c.ReleasePaintChunks()
}

func TestChunkerInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		steps := randomSteps(r, 1+r.Intn(60))
		c := NewChunker()
		chunks := runSteps(c, steps)

		// Coverage.
		assertCoverage(t, chunks, len(steps))

		// Isolation: foreign items are alone in their chunk.
		for _, ch := range chunks {
			for i := ch.Begin; i < ch.End; i++ {
				if steps[i].item.IsForeignLayer() && ch.Size() != 1 {
					t.Fatalf("trial %d: foreign item %d shares chunk %s", trial, i, ch)
				}
			}
		}

		// Merge: consecutive non-isolated items with equal properties and
		// equal cache participation share a chunk unless a new id is set.
		chunkOf := make([]int, len(steps))
		for ci, ch := range chunks {
			for i := ch.Begin; i < ch.End; i++ {
				chunkOf[i] = ci
			}
		}
		for i := 1; i < len(steps); i++ {
			a, b := steps[i-1], steps[i]
			if a.item.IsForeignLayer() || b.item.IsForeignLayer() || b.id.IsSet() {
				continue
			}
			if a.props == b.props && a.item.SkippedCache == b.item.SkippedCache && chunkOf[i-1] != chunkOf[i] {
				t.Fatalf("trial %d: items %d and %d should share a chunk", trial, i-1, i)
			}
		}

		// Uniqueness: no two chunks carry the same id, unless the same id
		// was explicitly set again for a later chunk.
		seen := make(map[ChunkID]int)
		for ci, ch := range chunks {
			if !ch.ID.IsSet() {
				continue
			}
			if prev, ok := seen[ch.ID]; ok && !idSetWithin(steps, chunks[prev].Begin+1, ch.Begin+1, ch.ID) {
				t.Fatalf("trial %d: chunks %d and %d share id %s", trial, prev, ci, ch.ID)
			}
			seen[ch.ID] = ci
		}

		// Idempotence after Clear.
		c.Clear()
		again := runSteps(c, steps)
		if len(again) != len(chunks) {
			t.Fatalf("trial %d: re-chunking produced %d chunks, want %d", trial, len(again), len(chunks))
		}
		for i := range chunks {
			if again[i] != chunks[i] {
				t.Fatalf("trial %d: chunk %d = %s, want %s", trial, i, again[i], chunks[i])
			}
		}
	}
}

// idSetWithin reports whether a step in [from, to) sets pending id id.
func idSetWithin(steps []step, from, to int, id ChunkID) bool {
	for i := from; i < to; i++ {
		if steps[i].id == id {
			return true
		}
	}
	return false
}
