package paint

import (
	"errors"
	"fmt"
	"image"
)

// Artifact errors.
var (
	// ErrChunkGap is returned when consecutive chunks are not contiguous.
	ErrChunkGap = errors.New("paint: chunks are not contiguous")

	// ErrEmptyChunk is returned when a chunk spans no items.
	ErrEmptyChunk = errors.New("paint: empty chunk")

	// ErrChunkCoverage is returned when chunks do not cover every item.
	ErrChunkCoverage = errors.New("paint: chunks do not cover all items")
)

// Artifact is the result of one recording pass: the display items and the
// chunks partitioning them. It is immutable once committed.
type Artifact struct {
	Items  []DisplayItem
	Chunks []PaintChunk
}

// ItemsInChunk returns the items of chunk i.
func (a *Artifact) ItemsInChunk(i int) []DisplayItem {
	c := a.Chunks[i]
	return a.Items[c.Begin:c.End]
}

// IsEmpty reports whether the artifact has no items.
func (a *Artifact) IsEmpty() bool { return a == nil || len(a.Items) == 0 }

// Validate checks the coverage invariant: chunk ranges are non-empty,
// contiguous, and their union is exactly [0, len(Items)). A single
// degenerate [0, 0) chunk over an empty item list is accepted.
func (a *Artifact) Validate() error {
	if len(a.Items) == 0 {
		if len(a.Chunks) == 0 || (len(a.Chunks) == 1 && a.Chunks[0].Begin == 0 && a.Chunks[0].End == 0) {
			return nil
		}
		return fmt.Errorf("%w: %d chunks over no items", ErrChunkCoverage, len(a.Chunks))
	}
	next := 0
	for i, c := range a.Chunks {
		if c.Begin != next {
			return fmt.Errorf("%w: chunk %d begins at %d, want %d", ErrChunkGap, i, c.Begin, next)
		}
		if c.End <= c.Begin {
			return fmt.Errorf("%w: chunk %d is %s", ErrEmptyChunk, i, c)
		}
		next = c.End
	}
	if next != len(a.Items) {
		return fmt.Errorf("%w: covered [0,%d) of %d items", ErrChunkCoverage, next, len(a.Items))
	}
	return nil
}

// ComputeChunkBounds fills Bounds and KnownToBeOpaque of every chunk from
// its items.
func (a *Artifact) ComputeChunkBounds() {
	for i := range a.Chunks {
		c := &a.Chunks[i]
		items := a.Items[c.Begin:c.End]
		var bounds image.Rectangle
		for _, it := range items {
			bounds = bounds.Union(it.VisualRect)
		}
		c.Bounds = bounds
		c.KnownToBeOpaque = false
		if bounds.Empty() {
			continue
		}
		for _, it := range items {
			if it.KnownToBeOpaque && bounds.In(it.VisualRect) {
				c.KnownToBeOpaque = true
				break
			}
		}
	}
}

// Bounds returns the union of all chunk bounds. Chunks under different
// transforms are combined without mapping.
func (a *Artifact) Bounds() image.Rectangle {
	var r image.Rectangle
	for _, c := range a.Chunks {
		r = r.Union(c.Bounds)
	}
	return r
}

// ChunkMatch describes how a chunk of a new artifact relates to the
// previous pass.
type ChunkMatch struct {
	// Old is the index of the matching chunk in the previous artifact, or
	// -1 when there is none.
	Old int

	// Valid reports that the cached result of the old chunk can be reused:
	// ids and properties match and every item is unchanged.
	Valid bool
}

// MatchChunks matches every chunk of a against prev by chunk id. Chunks
// without an id are always cache-cold.
func (a *Artifact) MatchChunks(prev *Artifact) []ChunkMatch {
	out := make([]ChunkMatch, len(a.Chunks))
	index := make(map[ChunkID]int)
	if prev != nil {
		for i, c := range prev.Chunks {
			if c.ID.IsSet() {
				index[c.ID] = i
			}
		}
	}
	for i, c := range a.Chunks {
		out[i] = ChunkMatch{Old: -1}
		if !c.ID.IsSet() {
			continue
		}
		j, ok := index[c.ID]
		if !ok {
			continue
		}
		out[i].Old = j
		old := prev.Chunks[j]
		if !c.Matches(old) || c.Size() != old.Size() {
			continue
		}
		valid := true
		for k := 0; k < c.Size(); k++ {
			it := &a.Items[c.Begin+k]
			if it.SkippedCache || !it.Equal(&prev.Items[old.Begin+k]) {
				valid = false
				break
			}
		}
		out[i].Valid = valid
	}
	return out
}
