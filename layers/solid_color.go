package layers

import (
	"image"
	"image/color"

	"github.com/gogpu/compositor/paint"
	"github.com/gogpu/compositor/recording"
)

// SolidColorClient is a paint client that fills its bounds with one color.
// It records a single background item in a chunk identified by that item.
type SolidColorClient struct {
	id     paint.ClientID
	bounds image.Rectangle
	color  color.RGBA
	props  paint.ChunkProperties
}

// NewSolidColorClient returns a client painting c over bounds with root
// properties.
func NewSolidColorClient(id paint.ClientID, bounds image.Rectangle, c color.RGBA) *SolidColorClient {
	return &SolidColorClient{id: id, bounds: bounds, color: c, props: paint.RootChunkProperties()}
}

// SetColor changes the painted color.
func (c *SolidColorClient) SetColor(col color.RGBA) { c.color = col }

// SetBounds changes the painted area.
func (c *SolidColorClient) SetBounds(r image.Rectangle) { c.bounds = r }

// SetProperties sets the chunk properties the item is recorded with.
func (c *SolidColorClient) SetProperties(p paint.ChunkProperties) { c.props = p }

// PaintContentsToDisplayList implements recording.PaintClient.
func (c *SolidColorClient) PaintContentsToDisplayList(ctl recording.PaintingControl) *paint.Artifact {
	pc := paint.NewController()
	if ctl == recording.DisplayListPaintingDisabled || c.bounds.Empty() {
		return pc.Commit()
	}
	item := paint.NewDrawing(c.id, paint.TypeBackground, 0, paint.RectFill{Rect: c.bounds, Color: c.color})
	pc.UpdateCurrentPaintChunkProperties(paint.SomeChunkID(item.ID), c.props)
	pc.Append(item)
	return pc.Commit()
}

// PaintableRegion implements recording.PaintClient.
func (c *SolidColorClient) PaintableRegion() image.Rectangle { return c.bounds }
