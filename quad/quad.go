// Package quad defines the draw quads produced by layers and consumed by the
// raster and GPU compositors.
//
// A quad maps a destination rectangle in target space to a material: a
// solid color, a region of a texture resource, or the planes of a YUV video
// frame. Quads are a closed set; consumers switch on the concrete type.
package quad

import (
	"fmt"
	"image"
	"image/color"
)

// ResourceID names a texture resource owned by the embedder. Zero means no
// resource.
type ResourceID uint64

// UVRect is a rectangle in normalized texture coordinates.
type UVRect struct {
	U0, V0, U1, V1 float32
}

// UVFor returns the normalized coordinates of src inside a texture of the
// given size. An empty size yields the zero rectangle.
func UVFor(src image.Rectangle, size image.Point) UVRect {
	if size.X <= 0 || size.Y <= 0 {
		return UVRect{}
	}
	w, h := float32(size.X), float32(size.Y)
	return UVRect{
		U0: float32(src.Min.X) / w,
		V0: float32(src.Min.Y) / h,
		U1: float32(src.Max.X) / w,
		V1: float32(src.Max.Y) / h,
	}
}

// Quad is one draw quad. It is implemented by SolidColorQuad, TextureQuad
// and YUVVideoQuad.
type Quad interface {
	// Bounds returns the destination rectangle.
	Bounds() image.Rectangle
	isQuad()
}

// SolidColorQuad fills Rect with Color. Color is not premultiplied.
type SolidColorQuad struct {
	Rect  image.Rectangle
	Color color.RGBA
}

// TextureQuad draws the Src region of a texture resource scaled into Rect.
type TextureQuad struct {
	Rect     image.Rectangle
	Resource ResourceID

	// Src is the sampled region in resource pixels and UV the same region
	// normalized to the resource size.
	Src image.Rectangle
	UV  UVRect

	NearestNeighbor bool
	Opaque          bool
}

// ChromaSubsampling describes the size of the U and V planes relative to
// the Y plane.
type ChromaSubsampling uint8

const (
	Subsampling420 ChromaSubsampling = iota // half width, half height
	Subsampling422                          // half width
	Subsampling444                          // full size
)

// Divisor returns the horizontal and vertical plane size divisors.
func (s ChromaSubsampling) Divisor() image.Point {
	switch s {
	case Subsampling420:
		return image.Pt(2, 2)
	case Subsampling422:
		return image.Pt(2, 1)
	default:
		return image.Pt(1, 1)
	}
}

// String returns the conventional J:a:b name.
func (s ChromaSubsampling) String() string {
	switch s {
	case Subsampling420:
		return "4:2:0"
	case Subsampling422:
		return "4:2:2"
	case Subsampling444:
		return "4:4:4"
	}
	return fmt.Sprintf("ChromaSubsampling(%d)", uint8(s))
}

// YUVVideoQuad draws a planar video frame into Rect.
type YUVVideoQuad struct {
	Rect image.Rectangle

	Y, U, V ResourceID
	A       ResourceID // zero when the frame has no alpha plane

	// YTexCoords and UVTexCoords select the visible part of the Y plane
	// and of the chroma planes.
	YTexCoords  UVRect
	UVTexCoords UVRect

	YSize  image.Point
	UVSize image.Point

	Subsampling ChromaSubsampling
}

func (q SolidColorQuad) Bounds() image.Rectangle { return q.Rect }
func (q TextureQuad) Bounds() image.Rectangle    { return q.Rect }
func (q YUVVideoQuad) Bounds() image.Rectangle   { return q.Rect }

func (SolidColorQuad) isQuad() {}
func (TextureQuad) isQuad()    {}
func (YUVVideoQuad) isQuad()   {}

// Name returns a short name of the quad's concrete type for logs.
func Name(q Quad) string {
	switch q.(type) {
	case SolidColorQuad:
		return "SolidColor"
	case TextureQuad:
		return "Texture"
	case YUVVideoQuad:
		return "YUVVideo"
	}
	return "Unknown"
}
