package paint

import "github.com/gogpu/compositor/internal/check"

// itemBehavior records whether a chunk must stay isolated from its
// neighbors.
type itemBehavior uint8

const (
	defaultBehavior itemBehavior = iota
	requiresSeparateChunk
)

// Chunker partitions display items, fed one at a time in order, into paint
// chunks. It never sees the items again after IncrementDisplayItemIndex
// returns, so all decisions are made from the item and the chunker's own
// state.
//
// The Chunker is not safe for concurrent use.
type Chunker struct {
	chunks    []PaintChunk
	behaviors []itemBehavior
	// pendingIDs holds the pending id as it was before each item, so
	// DecrementDisplayItemIndex can put it back.
	pendingIDs []ChunkID

	currentID     ChunkID
	currentProps  ChunkProperties
	propertiesSet bool
}

// NewChunker returns an empty chunker.
func NewChunker() *Chunker {
	return &Chunker{
		chunks:     make([]PaintChunk, 0, 16),
		behaviors:  make([]itemBehavior, 0, 16),
		pendingIDs: make([]ChunkID, 0, 16),
	}
}

// UpdateCurrentPaintChunkProperties sets the properties, and optionally the
// chunk id, used for subsequent items. It has no immediate effect on the
// chunk list.
func (c *Chunker) UpdateCurrentPaintChunkProperties(id ChunkID, props ChunkProperties) {
	check.That(props.State.IsComplete(), "nil property tree handle in %+v", props.State)
	c.currentID = id
	c.currentProps = props
	c.propertiesSet = true
}

// CurrentPaintChunkProperties returns the properties that the next item
// will be recorded with.
func (c *Chunker) CurrentPaintChunkProperties() ChunkProperties {
	return c.currentProps
}

// IncrementDisplayItemIndex consumes item and reports whether it started a
// new chunk.
//
// A foreign-layer item always starts its own chunk, identified by the
// item's id unless the item skipped the cache. A pending id set by
// UpdateCurrentPaintChunkProperties names the next chunk that starts and is
// used up by it, so no two chunks of a pass share an id. Any other item
// continues the last chunk when the properties are unchanged, neither side
// needs to be isolated, no different pending id is waiting and the item does
// not skip the cache inside an identified chunk.
func (c *Chunker) IncrementDisplayItemIndex(item *DisplayItem) bool {
	check.That(c.propertiesSet, "display item %s recorded before UpdateCurrentPaintChunkProperties", item.ID)
	c.pendingIDs = append(c.pendingIDs, c.currentID)

	behavior := defaultBehavior
	var id ChunkID
	switch {
	case item.IsForeignLayer():
		behavior = requiresSeparateChunk
		if !item.SkippedCache {
			id = SomeChunkID(item.ID)
		}
		// Items after the foreign layer must not reuse the id of the chunk
		// before it.
		c.currentID = NoChunkID
	case !item.SkippedCache:
		id = c.currentID
	}

	if len(c.chunks) == 0 {
		c.start(0, id, behavior)
		return true
	}

	last := &c.chunks[len(c.chunks)-1]
	if behavior != requiresSeparateChunk &&
		c.behaviors[len(c.behaviors)-1] != requiresSeparateChunk &&
		c.currentProps == last.Properties &&
		continuesChunk(item, id, last.ID) {
		if id.IsSet() {
			c.currentID = NoChunkID
		}
		last.End++
		return false
	}

	c.start(last.End, id, behavior)
	return true
}

// continuesChunk reports whether an item with candidate id may join a chunk
// identified by lastID.
func continuesChunk(item *DisplayItem, id, lastID ChunkID) bool {
	switch {
	case id.IsSet():
		return id == lastID
	case item.SkippedCache:
		return !lastID.IsSet()
	default:
		return true
	}
}

func (c *Chunker) start(begin int, id ChunkID, behavior itemBehavior) {
	if id.IsSet() {
		c.currentID = NoChunkID
	}
	c.chunks = append(c.chunks, PaintChunk{Begin: begin, End: begin + 1, ID: id, Properties: c.currentProps})
	c.behaviors = append(c.behaviors, behavior)
}

// DecrementDisplayItemIndex undoes the most recent IncrementDisplayItemIndex,
// shrinking or removing the last chunk and restoring the pending id. Calling
// it on an empty chunker is a contract violation and does nothing in release
// builds.
func (c *Chunker) DecrementDisplayItemIndex() {
	if !check.That(len(c.chunks) > 0, "DecrementDisplayItemIndex on empty chunker") {
		return
	}
	n := len(c.pendingIDs) - 1
	c.currentID = c.pendingIDs[n]
	c.pendingIDs = c.pendingIDs[:n]

	last := &c.chunks[len(c.chunks)-1]
	if last.Size() > 1 {
		last.End--
		return
	}
	c.chunks = c.chunks[:len(c.chunks)-1]
	c.behaviors = c.behaviors[:len(c.behaviors)-1]
}

// Chunks returns the chunks built so far. The slice is owned by the chunker
// and must not be modified.
func (c *Chunker) Chunks() []PaintChunk { return c.chunks }

// Size returns the number of items consumed so far.
func (c *Chunker) Size() int {
	if len(c.chunks) == 0 {
		return 0
	}
	return c.chunks[len(c.chunks)-1].End
}

// ReleasePaintChunks hands back the accumulated chunks and resets the
// chunker for a new pass.
func (c *Chunker) ReleasePaintChunks() []PaintChunk {
	chunks := c.chunks
	c.chunks = make([]PaintChunk, 0, cap(chunks))
	c.reset()
	return chunks
}

// Clear discards the accumulated chunks without returning them.
func (c *Chunker) Clear() {
	c.chunks = c.chunks[:0]
	c.reset()
}

func (c *Chunker) reset() {
	c.behaviors = c.behaviors[:0]
	c.pendingIDs = c.pendingIDs[:0]
	c.currentID = NoChunkID
	c.currentProps = ChunkProperties{}
	c.propertiesSet = false
}
