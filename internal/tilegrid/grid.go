// Package tilegrid tracks which raster tiles of a recorded layer are stale.
//
// A Grid covers a layer-space rectangle with fixed-size cells (the recording
// source's grid cell size) and keeps one bit per cell. Bits are packed into
// uint64 words and updated atomically, so the raster consumer may read the
// grid while the producer is idle between passes.
package tilegrid

import (
	"image"
	"math/bits"
	"sync/atomic"
)

// Grid is a dirty bitmap over the cells of a layer-space rectangle.
// Cell (0, 0) is the cell whose top-left corner is Bounds().Min.
type Grid struct {
	words  []atomic.Uint64
	bounds image.Rectangle
	cell   image.Point
	cols   int
	rows   int
}

// New creates a clean grid over bounds with the given cell size.
// Returns nil if bounds is empty or the cell size is not positive.
func New(bounds image.Rectangle, cell image.Point) *Grid {
	if bounds.Empty() || cell.X <= 0 || cell.Y <= 0 {
		return nil
	}
	cols := (bounds.Dx() + cell.X - 1) / cell.X
	rows := (bounds.Dy() + cell.Y - 1) / cell.Y
	return &Grid{
		words:  make([]atomic.Uint64, (cols*rows+63)/64),
		bounds: bounds,
		cell:   cell,
		cols:   cols,
		rows:   rows,
	}
}

// Bounds returns the layer-space rectangle covered by the grid.
func (g *Grid) Bounds() image.Rectangle { return g.bounds }

// CellSize returns the size of one cell.
func (g *Grid) CellSize() image.Point { return g.cell }

// Cols returns the number of cell columns.
func (g *Grid) Cols() int { return g.cols }

// Rows returns the number of cell rows.
func (g *Grid) Rows() int { return g.rows }

// CellRect returns the layer-space rectangle of cell (col, row), clipped to
// the grid bounds. Out-of-range cells return an empty rectangle.
func (g *Grid) CellRect(col, row int) image.Rectangle {
	if col < 0 || col >= g.cols || row < 0 || row >= g.rows {
		return image.Rectangle{}
	}
	origin := g.bounds.Min.Add(image.Pt(col*g.cell.X, row*g.cell.Y))
	return image.Rectangle{Min: origin, Max: origin.Add(g.cell)}.Intersect(g.bounds)
}

// Mark marks a single cell dirty. Out-of-range cells are ignored.
func (g *Grid) Mark(col, row int) {
	if col < 0 || col >= g.cols || row < 0 || row >= g.rows {
		return
	}
	idx := row*g.cols + col
	g.words[idx/64].Or(1 << (idx & 63))
}

// MarkRect marks every cell intersecting r dirty.
func (g *Grid) MarkRect(r image.Rectangle) {
	r = r.Intersect(g.bounds)
	if r.Empty() {
		return
	}
	r = r.Sub(g.bounds.Min)
	c0, r0 := r.Min.X/g.cell.X, r.Min.Y/g.cell.Y
	c1, r1 := (r.Max.X-1)/g.cell.X, (r.Max.Y-1)/g.cell.Y
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			g.Mark(col, row)
		}
	}
}

// MarkAll marks every cell dirty.
func (g *Grid) MarkAll() {
	total := g.cols * g.rows
	full := total / 64
	for i := 0; i < full; i++ {
		g.words[i].Store(^uint64(0))
	}
	if rem := total % 64; rem > 0 {
		g.words[full].Store((uint64(1) << rem) - 1)
	}
}

// Clear marks every cell clean.
func (g *Grid) Clear() {
	for i := range g.words {
		g.words[i].Store(0)
	}
}

// IsDirty reports whether cell (col, row) is dirty.
func (g *Grid) IsDirty(col, row int) bool {
	if col < 0 || col >= g.cols || row < 0 || row >= g.rows {
		return false
	}
	idx := row*g.cols + col
	return g.words[idx/64].Load()&(1<<(idx&63)) != 0
}

// Count returns the number of dirty cells.
func (g *Grid) Count() int {
	n := 0
	for i := range g.words {
		n += bits.OnesCount64(g.words[i].Load())
	}
	return n
}

// IsEmpty reports whether no cell is dirty.
func (g *Grid) IsEmpty() bool {
	for i := range g.words {
		if g.words[i].Load() != 0 {
			return false
		}
	}
	return true
}

// ForEachDirty calls fn with the column, row and layer-space rectangle of
// every dirty cell in row-major order. Flags are left untouched.
func (g *Grid) ForEachDirty(fn func(col, row int, r image.Rectangle)) {
	g.visit(false, fn)
}

// TakeDirty returns the rectangles of all dirty cells in row-major order and
// clears them. Each word is swapped atomically.
func (g *Grid) TakeDirty() []image.Rectangle {
	var out []image.Rectangle
	g.visit(true, func(_, _ int, r image.Rectangle) {
		out = append(out, r)
	})
	return out
}

func (g *Grid) visit(clear bool, fn func(col, row int, r image.Rectangle)) {
	total := g.cols * g.rows
	for wi := range g.words {
		var word uint64
		if clear {
			word = g.words[wi].Swap(0)
		} else {
			word = g.words[wi].Load()
		}
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			idx := wi*64 + bit
			if idx >= total {
				break
			}
			col, row := idx%g.cols, idx/g.cols
			fn(col, row, g.CellRect(col, row))
			word &^= 1 << bit
		}
	}
}
