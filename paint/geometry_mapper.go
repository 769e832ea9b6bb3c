package paint

import (
	"image"
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
)

// GeometryMapper maps rectangles between the spaces of transform nodes.
// Accumulated matrices are cached per node; a mapper must not outlive
// changes to the trees it has seen.
//
// A GeometryMapper is not safe for concurrent use.
type GeometryMapper struct {
	toRoot map[*TransformNode]matrix.Matrix
}

// NewGeometryMapper returns an empty mapper.
func NewGeometryMapper() *GeometryMapper {
	return &GeometryMapper{toRoot: make(map[*TransformNode]matrix.Matrix)}
}

// concat returns the matrix applying m first and then n. Matrices use the
// [a b c d e f] layout: x' = a*x + c*y + e, y' = b*x + d*y + f.
func concat(m, n matrix.Matrix) matrix.Matrix {
	return matrix.Matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

// invert returns the inverse of m, or false if m is singular.
func invert(m matrix.Matrix) (matrix.Matrix, bool) {
	det := m[0]*m[3] - m[1]*m[2]
	if det == 0 || math.IsNaN(det) {
		return matrix.Matrix{}, false
	}
	inv := 1 / det
	a, b, c, d := m[3]*inv, -m[1]*inv, -m[2]*inv, m[0]*inv
	return matrix.Matrix{a, b, c, d, -(m[4]*a + m[5]*c), -(m[4]*b + m[5]*d)}, true
}

// LocalToRoot returns the matrix mapping node's space to root space.
func (g *GeometryMapper) LocalToRoot(node *TransformNode) matrix.Matrix {
	if node == nil {
		return matrix.Identity
	}
	if m, ok := g.toRoot[node]; ok {
		return m
	}
	m := concat(node.Matrix, g.LocalToRoot(node.Parent))
	g.toRoot[node] = m
	return m
}

// SourceToDestination returns the matrix mapping from's space to to's
// space. The second result is false when to's matrix is singular.
func (g *GeometryMapper) SourceToDestination(from, to *TransformNode) (matrix.Matrix, bool) {
	if from == to {
		return matrix.Identity, true
	}
	inv, ok := invert(g.LocalToRoot(to))
	if !ok {
		return matrix.Matrix{}, false
	}
	return concat(g.LocalToRoot(from), inv), true
}

// MapRect maps r from from's space into to's space and returns the
// axis-aligned bounds of the result.
func (g *GeometryMapper) MapRect(r rect.Rect, from, to *TransformNode) rect.Rect {
	m, ok := g.SourceToDestination(from, to)
	if !ok {
		return rect.Rect{}
	}
	return transformRect(r, m)
}

// VisualRectInRoot maps the chunk's bounds to root space and applies the
// chunk's clip chain.
func (g *GeometryMapper) VisualRectInRoot(c PaintChunk) rect.Rect {
	r := transformRect(toRect(c.Bounds), g.LocalToRoot(c.Properties.State.Transform))
	for clip := c.Properties.State.Clip; clip != nil; clip = clip.Parent {
		if clip == rootClip {
			break
		}
		r = intersectRect(r, transformRect(toRect(clip.Rect), g.LocalToRoot(clip.LocalTransform)))
	}
	return r
}

func transformRect(r rect.Rect, m matrix.Matrix) rect.Rect {
	xs := [4]float64{r.LLx, r.URx, r.LLx, r.URx}
	ys := [4]float64{r.LLy, r.LLy, r.URy, r.URy}
	out := rect.Rect{LLx: math.Inf(1), LLy: math.Inf(1), URx: math.Inf(-1), URy: math.Inf(-1)}
	for i := range xs {
		x := m[0]*xs[i] + m[2]*ys[i] + m[4]
		y := m[1]*xs[i] + m[3]*ys[i] + m[5]
		out.LLx = math.Min(out.LLx, x)
		out.LLy = math.Min(out.LLy, y)
		out.URx = math.Max(out.URx, x)
		out.URy = math.Max(out.URy, y)
	}
	return out
}

func toRect(r image.Rectangle) rect.Rect {
	return rect.Rect{LLx: float64(r.Min.X), LLy: float64(r.Min.Y), URx: float64(r.Max.X), URy: float64(r.Max.Y)}
}

// toImageRect returns the smallest integer rectangle containing r.
func toImageRect(r rect.Rect) image.Rectangle {
	if rectEmpty(r) {
		return image.Rectangle{}
	}
	return image.Rect(int(math.Floor(r.LLx)), int(math.Floor(r.LLy)), int(math.Ceil(r.URx)), int(math.Ceil(r.URy)))
}

func rectEmpty(r rect.Rect) bool {
	return !(r.URx > r.LLx && r.URy > r.LLy)
}

func intersectRect(a, b rect.Rect) rect.Rect {
	r := rect.Rect{
		LLx: math.Max(a.LLx, b.LLx),
		LLy: math.Max(a.LLy, b.LLy),
		URx: math.Min(a.URx, b.URx),
		URy: math.Min(a.URy, b.URy),
	}
	if rectEmpty(r) {
		return rect.Rect{}
	}
	return r
}

func unionRect(a, b rect.Rect) rect.Rect {
	if rectEmpty(a) {
		return b
	}
	if rectEmpty(b) {
		return a
	}
	return rect.Rect{
		LLx: math.Min(a.LLx, b.LLx),
		LLy: math.Min(a.LLy, b.LLy),
		URx: math.Max(a.URx, b.URx),
		URy: math.Max(a.URy, b.URy),
	}
}

// overlaps reports whether a and b share interior area. Touching edges do
// not overlap.
func overlaps(a, b rect.Rect) bool {
	return !rectEmpty(intersectRect(a, b))
}
