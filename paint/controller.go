package paint

import (
	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/internal/check"
)

// Controller records one pass of display items for a paint client and
// chunks them as they arrive.
//
// The Controller is not safe for concurrent use.
type Controller struct {
	items   []DisplayItem
	chunker *Chunker
	seen    map[ItemID]struct{}
}

// NewController returns an empty controller.
func NewController() *Controller {
	return &Controller{
		items:   make([]DisplayItem, 0, 64),
		chunker: NewChunker(),
		seen:    make(map[ItemID]struct{}),
	}
}

// UpdateCurrentPaintChunkProperties sets the properties and optional chunk
// id for subsequently appended items.
func (c *Controller) UpdateCurrentPaintChunkProperties(id ChunkID, props ChunkProperties) {
	c.chunker.UpdateCurrentPaintChunkProperties(id, props)
}

// Append records item. It reports whether the item started a new chunk.
func (c *Controller) Append(item DisplayItem) bool {
	if _, dup := c.seen[item.ID]; dup {
		check.That(false, "duplicate display item id %s", item.ID)
	}
	if item.IsForeignLayer() {
		check.That(item.ID.Type.IsForeignLayer(), "foreign layer op with drawing type %s", item.ID.Type)
	}
	c.seen[item.ID] = struct{}{}
	c.items = append(c.items, item)
	return c.chunker.IncrementDisplayItemIndex(&c.items[len(c.items)-1])
}

// RemoveLastItem drops the most recently appended item, for example a
// drawing that turned out to paint nothing.
func (c *Controller) RemoveLastItem() {
	if !check.That(len(c.items) > 0, "RemoveLastItem on empty controller") {
		return
	}
	delete(c.seen, c.items[len(c.items)-1].ID)
	c.items = c.items[:len(c.items)-1]
	c.chunker.DecrementDisplayItemIndex()
}

// NumItems returns the number of items recorded in the current pass.
func (c *Controller) NumItems() int { return len(c.items) }

// Commit ends the pass and returns its artifact. The controller is reset
// and may record a new pass; the artifact is no longer referenced by it.
func (c *Controller) Commit() *Artifact {
	a := &Artifact{
		Items:  c.items,
		Chunks: c.chunker.ReleasePaintChunks(),
	}
	a.ComputeChunkBounds()
	c.items = make([]DisplayItem, 0, cap(c.items))
	clear(c.seen)

	compositor.Logger().Debug("paint: commit", "items", len(a.Items), "chunks", len(a.Chunks))
	return a
}

// Abort discards the current pass.
func (c *Controller) Abort() {
	c.items = c.items[:0]
	c.chunker.Clear()
	clear(c.seen)
}
