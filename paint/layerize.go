package paint

import (
	"github.com/gogpu/compositor"
	"seehuhn.de/go/geom/rect"
)

// PendingLayer is a group of chunks that will be composited as one layer.
// Bounds are expressed in the space of State.Transform.
type PendingLayer struct {
	Bounds          rect.Rect
	KnownToBeOpaque bool
	BackfaceHidden  bool
	State           PropertyTreeState
	Chunks          []int
	IsForeign       bool
}

// NewPendingLayer starts a layer from chunk index i of a.
func NewPendingLayer(a *Artifact, i int) PendingLayer {
	c := a.Chunks[i]
	return PendingLayer{
		Bounds:          toRect(c.Bounds),
		KnownToBeOpaque: c.KnownToBeOpaque,
		BackfaceHidden:  c.Properties.BackfaceHidden,
		State:           c.Properties.State,
		Chunks:          []int{i},
		IsForeign:       chunkIsForeign(a, c),
	}
}

// Add merges chunk index i of a into the layer. With a nil mapper the
// chunk's bounds are taken to be in the layer's space already.
func (l *PendingLayer) Add(a *Artifact, i int, mapper *GeometryMapper) {
	c := a.Chunks[i]
	mapped := toRect(c.Bounds)
	if mapper != nil {
		mapped = mapper.MapRect(mapped, c.Properties.State.Transform, l.State.Transform)
	}
	old := l.Bounds
	l.Bounds = unionRect(l.Bounds, mapped)
	l.KnownToBeOpaque = (l.KnownToBeOpaque && l.Bounds == old) ||
		(c.KnownToBeOpaque && containsRect(mapped, l.Bounds))
	l.Chunks = append(l.Chunks, i)
}

// CanMergeInto reports whether chunk index i of a may be drawn into layer.
// Foreign layers never merge. The chunk's transform must be the layer's
// transform or a descendant reached without crossing a transform that is
// composited directly, and its effect must descend from the layer's.
func CanMergeInto(a *Artifact, i int, layer *PendingLayer) bool {
	c := a.Chunks[i]
	if layer.IsForeign || chunkIsForeign(a, c) {
		return false
	}
	if c.Properties.BackfaceHidden != layer.BackfaceHidden {
		return false
	}
	if !layer.State.Effect.IsAncestorOf(c.Properties.State.Effect) {
		return false
	}
	for t := c.Properties.State.Transform; ; t = t.Parent {
		if t == nil {
			return false
		}
		if t == layer.State.Transform {
			return true
		}
		if t.DirectCompositing {
			return false
		}
	}
}

// MightOverlap reports whether chunk c may overlap layer in root space.
func MightOverlap(c PaintChunk, layer *PendingLayer, mapper *GeometryMapper) bool {
	chunkRect := mapper.VisualRectInRoot(c)
	layerRect := mapper.MapRect(layer.Bounds, layer.State.Transform, rootTransform)
	return overlaps(chunkRect, layerRect)
}

// Layerize groups the chunks of a into pending layers in paint order. Each
// chunk merges into the most recent layer it can merge into, unless a
// later layer might overlap it, in which case it starts a new layer.
func Layerize(a *Artifact) []PendingLayer {
	mapper := NewGeometryMapper()
	layers := make([]PendingLayer, 0, len(a.Chunks))
	for i := range a.Chunks {
		placed := false
		for j := len(layers) - 1; j >= 0; j-- {
			if CanMergeInto(a, i, &layers[j]) {
				layers[j].Add(a, i, mapper)
				placed = true
				break
			}
			if MightOverlap(a.Chunks[i], &layers[j], mapper) {
				break
			}
		}
		if !placed {
			layers = append(layers, NewPendingLayer(a, i))
		}
	}
	compositor.Logger().Debug("paint: layerize", "chunks", len(a.Chunks), "layers", len(layers))
	return layers
}

func chunkIsForeign(a *Artifact, c PaintChunk) bool {
	return c.Size() == 1 && a.Items[c.Begin].IsForeignLayer()
}

func containsRect(outer, inner rect.Rect) bool {
	return !rectEmpty(outer) &&
		outer.LLx <= inner.LLx && outer.LLy <= inner.LLy &&
		outer.URx >= inner.URx && outer.URy >= inner.URy
}
