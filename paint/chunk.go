package paint

import (
	"fmt"
	"image"
)

// ChunkID is the optional cache identity of a paint chunk. The zero value
// is NoChunkID. Chunks without an id never match a chunk of a previous
// pass.
type ChunkID struct {
	id    ItemID
	valid bool
}

// NoChunkID is the absent chunk id.
var NoChunkID = ChunkID{}

// SomeChunkID returns a present chunk id.
func SomeChunkID(id ItemID) ChunkID {
	return ChunkID{id: id, valid: true}
}

// Get returns the id and whether it is present.
func (c ChunkID) Get() (ItemID, bool) {
	return c.id, c.valid
}

// IsSet reports whether the id is present.
func (c ChunkID) IsSet() bool { return c.valid }

// String returns the id or "none".
func (c ChunkID) String() string {
	if !c.valid {
		return "none"
	}
	return c.id.String()
}

// PaintChunk is a contiguous run of display items [Begin, End) sharing one
// set of properties and one optional id.
type PaintChunk struct {
	Begin, End int
	ID         ChunkID
	Properties ChunkProperties

	// Bounds is the union of the visual rects of the chunk's items, in the
	// space of Properties.State.Transform. Filled by Artifact.ComputeChunkBounds.
	Bounds image.Rectangle

	// KnownToBeOpaque reports that an opaque item covers Bounds.
	KnownToBeOpaque bool
}

// Size returns the number of items in the chunk.
func (c PaintChunk) Size() int { return c.End - c.Begin }

// Matches reports whether c can be served from the cached result of old:
// both have the same present id and the same properties.
func (c PaintChunk) Matches(old PaintChunk) bool {
	return c.ID.IsSet() && c.ID == old.ID && c.Properties == old.Properties
}

// String returns a compact representation for logs and test failures.
func (c PaintChunk) String() string {
	return fmt.Sprintf("[%d,%d) id=%s", c.Begin, c.End, c.ID)
}
