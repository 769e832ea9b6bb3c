package layers

import (
	"image"

	"github.com/gogpu/compositor/internal/check"
	"github.com/gogpu/compositor/paint"
	"github.com/gogpu/compositor/quad"
)

// VideoFrame is a planar YUV frame held in texture resources.
type VideoFrame struct {
	Y, U, V quad.ResourceID
	A       quad.ResourceID // zero when there is no alpha plane

	// CodedSize is the size of the Y plane. VisibleRect is the part of it
	// holding picture data.
	CodedSize   image.Point
	VisibleRect image.Rectangle

	Subsampling quad.ChromaSubsampling
}

// VideoLayer draws the current frame of a video stream scaled to the layer.
// In a display list it appears as a foreign-layer item.
type VideoLayer struct {
	ref    paint.LayerRef
	bounds image.Point
	frame  *VideoFrame
}

// NewVideoLayer returns a layer of the given size identified by ref.
func NewVideoLayer(ref paint.LayerRef, bounds image.Point) *VideoLayer {
	return &VideoLayer{ref: ref, bounds: bounds}
}

// SetBounds sets the layer size.
func (l *VideoLayer) SetBounds(size image.Point) { l.bounds = size }

// SetFrame sets the frame to draw. A nil frame draws nothing.
func (l *VideoLayer) SetFrame(f *VideoFrame) { l.frame = f }

// DisplayItem returns the foreign-layer item standing for this layer at
// origin in the painting client's space.
func (l *VideoLayer) DisplayItem(client paint.ClientID, origin image.Point) paint.DisplayItem {
	return paint.NewForeignLayer(client, paint.TypeForeignLayerVideo, paint.ForeignLayer{
		Layer:  l.ref,
		Origin: origin,
		Size:   l.bounds,
	})
}

// Quad returns the quad for the current frame. The second result is false
// when there is nothing to draw.
func (l *VideoLayer) Quad() (quad.YUVVideoQuad, bool) {
	f := l.frame
	if f == nil || l.bounds.X <= 0 || l.bounds.Y <= 0 {
		return quad.YUVVideoQuad{}, false
	}
	coded := image.Rectangle{Max: f.CodedSize}
	if !check.That(f.VisibleRect.In(coded), "visible rect %v outside coded size %v", f.VisibleRect, f.CodedSize) {
		return quad.YUVVideoQuad{}, false
	}
	if f.VisibleRect.Empty() {
		return quad.YUVVideoQuad{}, false
	}

	div := f.Subsampling.Divisor()
	uvSize := image.Pt(ceilDiv(f.CodedSize.X, div.X), ceilDiv(f.CodedSize.Y, div.Y))
	uvVisible := image.Rect(
		f.VisibleRect.Min.X/div.X,
		f.VisibleRect.Min.Y/div.Y,
		ceilDiv(f.VisibleRect.Max.X, div.X),
		ceilDiv(f.VisibleRect.Max.Y, div.Y),
	)
	return quad.YUVVideoQuad{
		Rect:        image.Rectangle{Max: l.bounds},
		Y:           f.Y,
		U:           f.U,
		V:           f.V,
		A:           f.A,
		YTexCoords:  quad.UVFor(f.VisibleRect, f.CodedSize),
		UVTexCoords: quad.UVFor(uvVisible, uvSize),
		YSize:       f.CodedSize,
		UVSize:      uvSize,
		Subsampling: f.Subsampling,
	}, true
}

// AppendQuads appends the frame quad to list and returns the number of
// quads appended.
func (l *VideoLayer) AppendQuads(list *quad.List) int {
	q, ok := l.Quad()
	if !ok || !list.Append(q) {
		return 0
	}
	return 1
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
