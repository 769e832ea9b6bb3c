package layers

import (
	"fmt"
	"image"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/internal/check"
	"github.com/gogpu/compositor/quad"
)

// PatchKind identifies one of the nine regions of a nine-patch.
type PatchKind uint8

const (
	PatchTopLeft PatchKind = iota
	PatchTop
	PatchTopRight
	PatchLeft
	PatchCenter
	PatchRight
	PatchBottomLeft
	PatchBottom
	PatchBottomRight
)

var patchKindNames = [...]string{
	PatchTopLeft:     "TopLeft",
	PatchTop:         "Top",
	PatchTopRight:    "TopRight",
	PatchLeft:        "Left",
	PatchCenter:      "Center",
	PatchRight:       "Right",
	PatchBottomLeft:  "BottomLeft",
	PatchBottom:      "Bottom",
	PatchBottomRight: "BottomRight",
}

// String returns the region name.
func (k PatchKind) String() string {
	if int(k) < len(patchKindNames) {
		return patchKindNames[k]
	}
	return fmt.Sprintf("PatchKind(%d)", uint8(k))
}

// IsCorner reports whether the region keeps its image size.
func (k PatchKind) IsCorner() bool {
	return k == PatchTopLeft || k == PatchTopRight || k == PatchBottomLeft || k == PatchBottomRight
}

// Patch maps a region of the image to a region of the layer.
type Patch struct {
	Kind PatchKind
	Dst  image.Rectangle // layer space
	Src  image.Rectangle // image space
	UV   quad.UVRect
}

// NinePatchLayer draws a bordered image stretched over the layer. Corners
// keep the size of the border, edges stretch along one axis and the center
// along both.
//
// The zero value is not usable; create layers with NewNinePatchLayer.
type NinePatchLayer struct {
	bounds   image.Point
	resource quad.ResourceID

	imageBounds image.Point
	aperture    image.Rectangle
	border      compositor.Insets
	occlusion   image.Rectangle
	fillCenter  bool
	nearest     bool
}

// NewNinePatchLayer returns a layer of the given size with no image.
func NewNinePatchLayer(bounds image.Point) *NinePatchLayer {
	return &NinePatchLayer{bounds: bounds, fillCenter: true}
}

// SetBounds sets the layer size.
func (l *NinePatchLayer) SetBounds(size image.Point) { l.bounds = size }

// Bounds returns the layer size.
func (l *NinePatchLayer) Bounds() image.Point { return l.bounds }

// SetResource sets the texture holding the image.
func (l *NinePatchLayer) SetResource(id quad.ResourceID) { l.resource = id }

// SetLayout configures the nine-patch geometry.
//
// imageBounds is the size of the image and aperture the image-space region
// that is stretched over the center. border gives the layer-space size of
// each border. Regions that lie entirely inside occlusion are not drawn.
// Negative sizes are caller bugs; they are clamped to zero.
func (l *NinePatchLayer) SetLayout(imageBounds image.Point, aperture image.Rectangle, border compositor.Insets, occlusion image.Rectangle, fillCenter, nearestNeighbor bool) {
	check.That(imageBounds.X >= 0 && imageBounds.Y >= 0, "negative nine-patch image bounds %v", imageBounds)
	check.That(aperture.Min.X >= 0 && aperture.Min.Y >= 0 && aperture.In(image.Rectangle{Max: imageBounds}),
		"nine-patch aperture %v outside image %v", aperture, imageBounds)
	check.That(!border.IsNegative(), "negative nine-patch border %+v", border)

	l.imageBounds = image.Pt(max(imageBounds.X, 0), max(imageBounds.Y, 0))
	l.aperture = aperture.Intersect(image.Rectangle{Max: l.imageBounds})
	l.border = compositor.Insets{
		Left:   max(border.Left, 0),
		Top:    max(border.Top, 0),
		Right:  max(border.Right, 0),
		Bottom: max(border.Bottom, 0),
	}
	l.occlusion = occlusion
	l.fillCenter = fillCenter
	l.nearest = nearestNeighbor
}

// clampedBorder limits each border to half the layer extent on its axis so
// opposite borders never cross.
func (l *NinePatchLayer) clampedBorder() compositor.Insets {
	hw, hh := halfOf(l.bounds.X), halfOf(l.bounds.Y)
	return compositor.Insets{
		Left:   clamp(l.border.Left, 0, hw),
		Top:    clamp(l.border.Top, 0, hh),
		Right:  clamp(l.border.Right, 0, hw),
		Bottom: clamp(l.border.Bottom, 0, hh),
	}
}

// Patches returns the regions to draw, in row-major order. Regions with no
// area, regions inside the occlusion and, unless fillCenter is set, the
// center are omitted.
func (l *NinePatchLayer) Patches() []Patch {
	if l.bounds.X <= 0 || l.bounds.Y <= 0 {
		return nil
	}
	b := l.clampedBorder()
	dstX := [4]int{0, b.Left, l.bounds.X - b.Right, l.bounds.X}
	dstY := [4]int{0, b.Top, l.bounds.Y - b.Bottom, l.bounds.Y}
	srcX := [4]int{0, l.aperture.Min.X, l.aperture.Max.X, l.imageBounds.X}
	srcY := [4]int{0, l.aperture.Min.Y, l.aperture.Max.Y, l.imageBounds.Y}

	patches := make([]Patch, 0, 9)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			kind := PatchKind(row*3 + col)
			dst := image.Rectangle{Min: image.Pt(dstX[col], dstY[row]), Max: image.Pt(dstX[col+1], dstY[row+1])}
			if dst.Dx() <= 0 || dst.Dy() <= 0 {
				continue
			}
			if kind == PatchCenter && !l.fillCenter {
				continue
			}
			if !l.occlusion.Empty() && dst.In(l.occlusion) {
				continue
			}
			src := image.Rectangle{Min: image.Pt(srcX[col], srcY[row]), Max: image.Pt(srcX[col+1], srcY[row+1])}
			patches = append(patches, Patch{
				Kind: kind,
				Dst:  dst,
				Src:  src,
				UV:   quad.UVFor(src, l.imageBounds),
			})
		}
	}
	return patches
}

// AppendQuads appends one TextureQuad per patch to list and returns the
// number appended.
func (l *NinePatchLayer) AppendQuads(list *quad.List) int {
	if l.resource == 0 {
		return 0
	}
	n := 0
	for _, p := range l.Patches() {
		if list.Append(quad.TextureQuad{
			Rect:            p.Dst,
			Resource:        l.resource,
			Src:             p.Src,
			UV:              p.UV,
			NearestNeighbor: l.nearest,
		}) {
			n++
		}
	}
	compositor.Logger().Debug("layers: nine-patch quads", "bounds", l.bounds, "quads", n)
	return n
}
