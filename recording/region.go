package recording

import (
	"fmt"
	"image"
	"strings"
)

// maxRegionRects is the threshold after which a Region collapses to its
// bounding box. Past this point tracking individual rects costs more than
// re-recording the slack.
const maxRegionRects = 16

// Region is a set of layer-space rectangles describing stale content.
// The zero value is an empty region.
//
// Rectangles may overlap. A rectangle already covered by a single member is
// not added, and members covered by a new rectangle are dropped.
type Region struct {
	rects []image.Rectangle
}

// RegionOf returns a region made of rs. Empty rectangles are ignored.
func RegionOf(rs ...image.Rectangle) Region {
	var r Region
	for _, rect := range rs {
		r.Union(rect)
	}
	return r
}

// Union adds rect to the region.
func (r *Region) Union(rect image.Rectangle) {
	if rect.Empty() {
		return
	}
	for _, have := range r.rects {
		if rect.In(have) {
			return
		}
	}
	kept := r.rects[:0]
	for _, have := range r.rects {
		if !have.In(rect) {
			kept = append(kept, have)
		}
	}
	r.rects = append(kept, rect)

	if len(r.rects) > maxRegionRects {
		b := r.Bounds()
		r.rects = append(r.rects[:0], b)
	}
}

// UnionRegion adds every rectangle of o to the region.
func (r *Region) UnionRegion(o Region) {
	for _, rect := range o.rects {
		r.Union(rect)
	}
}

// IntersectRect clips the region to clip.
func (r *Region) IntersectRect(clip image.Rectangle) {
	kept := r.rects[:0]
	for _, rect := range r.rects {
		if c := rect.Intersect(clip); !c.Empty() {
			kept = append(kept, c)
		}
	}
	r.rects = kept
}

// Clear empties the region.
func (r *Region) Clear() { r.rects = r.rects[:0] }

// IsEmpty reports whether the region covers no area.
func (r Region) IsEmpty() bool { return len(r.rects) == 0 }

// Bounds returns the smallest rectangle containing the region.
func (r Region) Bounds() image.Rectangle {
	var b image.Rectangle
	for _, rect := range r.rects {
		b = b.Union(rect)
	}
	return b
}

// Intersects reports whether rect shares any area with the region.
func (r Region) Intersects(rect image.Rectangle) bool {
	for _, have := range r.rects {
		if have.Overlaps(rect) {
			return true
		}
	}
	return false
}

// Contains reports whether rect lies inside a single member rectangle.
func (r Region) Contains(rect image.Rectangle) bool {
	if rect.Empty() {
		return true
	}
	for _, have := range r.rects {
		if rect.In(have) {
			return true
		}
	}
	return false
}

// Rects returns the member rectangles. The slice must not be modified.
func (r Region) Rects() []image.Rectangle { return r.rects }

// Clone returns an independent copy of the region.
func (r Region) Clone() Region {
	return Region{rects: append([]image.Rectangle(nil), r.rects...)}
}

// String returns the member rectangles for logs.
func (r Region) String() string {
	if r.IsEmpty() {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, rect := range r.rects {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprint(&b, rect)
	}
	b.WriteByte('}')
	return b.String()
}

// subtract returns up to four rectangles covering a minus b.
func subtract(a, b image.Rectangle) []image.Rectangle {
	inter := a.Intersect(b)
	if inter.Empty() {
		if a.Empty() {
			return nil
		}
		return []image.Rectangle{a}
	}
	out := make([]image.Rectangle, 0, 4)
	add := func(r image.Rectangle) {
		if !r.Empty() {
			out = append(out, r)
		}
	}
	add(image.Rect(a.Min.X, a.Min.Y, a.Max.X, inter.Min.Y))
	add(image.Rect(a.Min.X, inter.Max.Y, a.Max.X, a.Max.Y))
	add(image.Rect(a.Min.X, inter.Min.Y, inter.Min.X, inter.Max.Y))
	add(image.Rect(inter.Max.X, inter.Min.Y, a.Max.X, inter.Max.Y))
	return out
}
