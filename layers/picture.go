package layers

import (
	"image"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/internal/tilegrid"
	"github.com/gogpu/compositor/quad"
	"github.com/gogpu/compositor/recording"
)

// TileResourceFunc names the texture holding the raster of the tile at
// (col, row), whose layer-space rectangle is r.
type TileResourceFunc func(col, row int, r image.Rectangle) quad.ResourceID

// SequentialTiles is a TileResourceFunc that numbers tiles row by row
// starting at base.
func SequentialTiles(base quad.ResourceID, cols int) TileResourceFunc {
	return func(col, row int, _ image.Rectangle) quad.ResourceID {
		return base + quad.ResourceID(row*cols+col)
	}
}

// PictureLayer draws the recording of a recording.Source, either as one
// solid color quad or as one texture quad per raster tile.
type PictureLayer struct {
	source  *recording.Source
	tiles   TileResourceFunc
	nearest bool
}

// NewPictureLayer returns a layer drawing src with tile textures named by
// tiles. A nil tiles numbers tiles from 1.
func NewPictureLayer(src *recording.Source, tiles TileResourceFunc) *PictureLayer {
	return &PictureLayer{source: src, tiles: tiles}
}

// SetNearestNeighbor selects nearest-neighbor sampling for tile quads.
func (l *PictureLayer) SetNearestNeighbor(v bool) { l.nearest = v }

// Source returns the recording source drawn by the layer.
func (l *PictureLayer) Source() *recording.Source { return l.source }

// Tiles returns the tile grid over the visible part of the recording, or
// nil when nothing is visible.
func (l *PictureLayer) Tiles() *tilegrid.Grid {
	vp := l.visibleRect()
	return tilegrid.New(vp, l.source.GridCellSize())
}

func (l *PictureLayer) visibleRect() image.Rectangle {
	layer := image.Rectangle{Max: l.source.LayerBounds()}
	return l.source.RecordedViewport().Intersect(layer)
}

// AppendQuads appends the layer's quads to list and returns the number
// appended.
func (l *PictureLayer) AppendQuads(list *quad.List) int {
	if l.source.Artifact() == nil {
		return 0
	}
	vp := l.visibleRect()
	if vp.Empty() {
		return 0
	}
	if l.source.IsSolidColor() {
		c := l.source.SolidColor()
		if c.A == 0 {
			return 0
		}
		list.Append(quad.SolidColorQuad{Rect: vp, Color: c})
		return 1
	}

	grid := l.Tiles()
	tiles := l.tiles
	if tiles == nil {
		tiles = SequentialTiles(1, grid.Cols())
	}
	cell := grid.CellSize()
	n := 0
	for row := 0; row < grid.Rows(); row++ {
		for col := 0; col < grid.Cols(); col++ {
			r := grid.CellRect(col, row)
			src := image.Rectangle{Max: r.Size()}
			if list.Append(quad.TextureQuad{
				Rect:            r,
				Resource:        tiles(col, row, r),
				Src:             src,
				UV:              quad.UVFor(src, cell),
				NearestNeighbor: l.nearest,
			}) {
				n++
			}
		}
	}
	compositor.Logger().Debug("layers: picture quads", "viewport", vp, "tiles", n)
	return n
}
