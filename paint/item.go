// Package paint holds the display-list data model and the paint chunker.
//
// A recording pass produces a flat sequence of DisplayItems. The Chunker
// partitions that sequence into PaintChunks: contiguous runs of items that
// share one PropertyTreeState and one optional cache identity. Chunks refer
// to items by half-open index ranges into the item slice, so the item slice
// acts as an arena and chunks never own items.
//
// # Example
//
//	ctl := paint.NewController()
//	ctl.UpdateCurrentPaintChunkProperties(paint.SomeChunkID(id), props)
//	ctl.Append(paint.NewDrawing(client, paint.TypeBackground, rect, paint.RectFill{...}))
//	artifact := ctl.Commit()
//
// Chunker, Controller and Artifact are not safe for concurrent use. A
// committed Artifact is immutable and may be handed to another goroutine.
package paint

import (
	"fmt"
	"image"
	"image/color"
)

// ClientID identifies the object that painted a display item. It is stable
// across recording passes for the same object.
type ClientID uint64

// ItemType identifies the kind of a display item within its client. Drawing
// types and foreign-layer types occupy separate ranges.
type ItemType uint8

const (
	// Drawing types.
	TypeBackground ItemType = iota
	TypeBorder
	TypeContent
	TypeImage
	TypeOutline
	TypeDebugOverlay

	// Foreign-layer types. Items of these types stand for externally
	// composited surfaces and always get a chunk of their own.
	TypeForeignLayerVideo
	TypeForeignLayerCanvas
	TypeForeignLayerPlugin

	typeCount
)

const (
	drawingFirst      = TypeBackground
	drawingLast       = TypeDebugOverlay
	foreignLayerFirst = TypeForeignLayerVideo
	foreignLayerLast  = TypeForeignLayerPlugin
)

var itemTypeNames = [...]string{
	TypeBackground:         "Background",
	TypeBorder:             "Border",
	TypeContent:            "Content",
	TypeImage:              "Image",
	TypeOutline:            "Outline",
	TypeDebugOverlay:       "DebugOverlay",
	TypeForeignLayerVideo:  "ForeignLayerVideo",
	TypeForeignLayerCanvas: "ForeignLayerCanvas",
	TypeForeignLayerPlugin: "ForeignLayerPlugin",
}

// String returns the name of the type.
func (t ItemType) String() string {
	if t < typeCount {
		return itemTypeNames[t]
	}
	return "Unknown"
}

// IsDrawing reports whether t is a drawing type.
func (t ItemType) IsDrawing() bool { return t >= drawingFirst && t <= drawingLast }

// IsForeignLayer reports whether t is a foreign-layer type.
func (t ItemType) IsForeignLayer() bool { return t >= foreignLayerFirst && t <= foreignLayerLast }

// ItemID is the stable identity of a display item: the client that painted
// it, the item type, and a fragment index for clients split across
// fragments (columns, lines). It is unique within one pass for a client.
type ItemID struct {
	Client   ClientID
	Type     ItemType
	Fragment int
}

// String returns a compact representation for logs and test failures.
func (id ItemID) String() string {
	return fmt.Sprintf("%d:%s:%d", id.Client, id.Type, id.Fragment)
}

// Op is the recorded operation carried by a display item. It is a closed
// set: RectFill, ImageDraw and ForeignLayer.
type Op interface {
	isOp()
}

// RectFill fills Rect with a solid color.
type RectFill struct {
	Rect  image.Rectangle
	Color color.RGBA
}

// ImageDraw draws the Src sub-rectangle of Image scaled into Dst.
type ImageDraw struct {
	Image           image.Image
	Src             image.Rectangle
	Dst             image.Rectangle
	NearestNeighbor bool
}

// LayerRef names an externally composited surface (video frame, canvas).
type LayerRef uint64

// ForeignLayer marks a surface composited outside the display list.
type ForeignLayer struct {
	Layer  LayerRef
	Origin image.Point
	Size   image.Point
}

func (RectFill) isOp()     {}
func (ImageDraw) isOp()    {}
func (ForeignLayer) isOp() {}

// DisplayItem is one recorded drawing operation.
type DisplayItem struct {
	ID ItemID
	Op Op

	// VisualRect bounds everything the item paints, in the space of the
	// transform active when it was recorded.
	VisualRect image.Rectangle

	// KnownToBeOpaque reports that the item paints every pixel of
	// VisualRect with an opaque color.
	KnownToBeOpaque bool

	// SkippedCache excludes the item from cache matching; chunks it would
	// start get no id.
	SkippedCache bool
}

// NewDrawing returns a drawing item. The visual rect is derived from op.
func NewDrawing(client ClientID, typ ItemType, fragment int, op Op) DisplayItem {
	item := DisplayItem{
		ID: ItemID{Client: client, Type: typ, Fragment: fragment},
		Op: op,
	}
	switch op := op.(type) {
	case RectFill:
		item.VisualRect = op.Rect
		item.KnownToBeOpaque = op.Color.A == 0xff
	case ImageDraw:
		item.VisualRect = op.Dst
		item.KnownToBeOpaque = imageIsOpaque(op.Image)
	}
	return item
}

// NewForeignLayer returns a foreign-layer item for layer.
func NewForeignLayer(client ClientID, typ ItemType, layer ForeignLayer) DisplayItem {
	return DisplayItem{
		ID:         ItemID{Client: client, Type: typ},
		Op:         layer,
		VisualRect: image.Rectangle{Min: layer.Origin, Max: layer.Origin.Add(layer.Size)},
	}
}

// IsForeignLayer reports whether the item stands for an externally
// composited surface.
func (it *DisplayItem) IsForeignLayer() bool {
	_, ok := it.Op.(ForeignLayer)
	return ok
}

// Equal reports whether two items record the same operation. Images are
// compared by identity.
func (it *DisplayItem) Equal(other *DisplayItem) bool {
	return it.ID == other.ID &&
		it.VisualRect == other.VisualRect &&
		it.KnownToBeOpaque == other.KnownToBeOpaque &&
		it.Op == other.Op
}

type opaquer interface {
	Opaque() bool
}

func imageIsOpaque(img image.Image) bool {
	if o, ok := img.(opaquer); ok {
		return o.Opaque()
	}
	return false
}
