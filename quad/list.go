package quad

import "image"

// List is an ordered list of quads. Quads are drawn in append order, so the
// first quad is the bottom-most.
//
// A List is not safe for concurrent use. Once handed to a consumer it must
// not be appended to.
type List struct {
	quads []Quad
}

// NewList returns an empty list with room for n quads.
func NewList(n int) *List {
	return &List{quads: make([]Quad, 0, n)}
}

// Append adds q on top of the quads already in the list. Quads with an
// empty destination are dropped; Append reports whether q was kept.
func (l *List) Append(q Quad) bool {
	if q == nil || q.Bounds().Empty() {
		return false
	}
	l.quads = append(l.quads, q)
	return true
}

// Len returns the number of quads.
func (l *List) Len() int { return len(l.quads) }

// Quads returns the quads in draw order. The slice must not be modified.
func (l *List) Quads() []Quad { return l.quads }

// Reset empties the list, keeping its storage.
func (l *List) Reset() {
	clear(l.quads)
	l.quads = l.quads[:0]
}

// Bounds returns the union of all destination rectangles.
func (l *List) Bounds() image.Rectangle {
	var r image.Rectangle
	for _, q := range l.quads {
		r = r.Union(q.Bounds())
	}
	return r
}

// Resources returns the distinct texture resources referenced by the list
// in first-use order.
func (l *List) Resources() []ResourceID {
	seen := make(map[ResourceID]struct{})
	var out []ResourceID
	add := func(id ResourceID) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, q := range l.quads {
		switch q := q.(type) {
		case TextureQuad:
			add(q.Resource)
		case YUVVideoQuad:
			add(q.Y)
			add(q.U)
			add(q.V)
			add(q.A)
		}
	}
	return out
}
