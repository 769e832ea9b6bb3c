// Package raster is the software consumer of the pipeline. It rasterizes
// committed paint artifacts and quad lists into *image.RGBA targets.
//
// Colors recorded in display items and quads are not premultiplied; the
// targets are premultiplied RGBA as usual for image.RGBA.
package raster

import (
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"seehuhn.de/go/geom/matrix"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/paint"
	"github.com/gogpu/compositor/quad"
)

// Stats counts the work done by a Compositor since the last ResetStats.
type Stats struct {
	ChunksDrawn   int // chunks rendered from their items
	ChunksCached  int // chunks taken from the chunk cache
	ChunksSkipped int // foreign-layer and empty chunks
	QuadsDrawn    int
	QuadsSkipped  int // quads whose resources are missing or unusable
}

// Option configures a Compositor during creation.
type Option func(*options)

type options struct {
	cacheSizeMB int
	smooth      draw.Interpolator
	cache       *ChunkCache
}

func defaultOptions() options {
	return options{
		cacheSizeMB: DefaultCacheSizeMB,
		smooth:      draw.ApproxBiLinear,
	}
}

// WithCacheSizeMB sets the chunk cache budget.
func WithCacheSizeMB(mb int) Option {
	return func(o *options) {
		o.cacheSizeMB = mb
	}
}

// WithChunkCache shares an existing chunk cache.
func WithChunkCache(c *ChunkCache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithInterpolator sets the interpolator used for smooth sampling. Quads
// and images that request nearest-neighbor sampling always use
// draw.NearestNeighbor.
func WithInterpolator(i draw.Interpolator) Option {
	return func(o *options) {
		if i != nil {
			o.smooth = i
		}
	}
}

// Compositor draws artifacts and quads on the CPU.
//
// A Compositor is not safe for concurrent use, except that SetResource and
// RemoveResource may be called from any goroutine.
type Compositor struct {
	cache  *ChunkCache
	smooth draw.Interpolator
	mapper *paint.GeometryMapper

	resMu     sync.RWMutex
	resources map[quad.ResourceID]image.Image

	last  *paint.Artifact
	frame uint64
	stats Stats
}

// NewCompositor returns a compositor with an empty resource table.
func NewCompositor(opts ...Option) *Compositor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	cache := o.cache
	if cache == nil {
		cache = NewChunkCache(o.cacheSizeMB)
	}
	return &Compositor{
		cache:     cache,
		smooth:    o.smooth,
		mapper:    paint.NewGeometryMapper(),
		resources: make(map[quad.ResourceID]image.Image),
	}
}

// SetResource registers img as the texture named id.
func (c *Compositor) SetResource(id quad.ResourceID, img image.Image) {
	c.resMu.Lock()
	c.resources[id] = img
	c.resMu.Unlock()
}

// RemoveResource forgets the texture named id.
func (c *Compositor) RemoveResource(id quad.ResourceID) {
	c.resMu.Lock()
	delete(c.resources, id)
	c.resMu.Unlock()
}

// Resource returns the texture named id.
func (c *Compositor) Resource(id quad.ResourceID) (image.Image, bool) {
	c.resMu.RLock()
	img, ok := c.resources[id]
	c.resMu.RUnlock()
	return img, ok
}

// SetFrameNumber records the frame being drawn; cache entries are tagged
// with it.
func (c *Compositor) SetFrameNumber(n uint64) { c.frame = n }

// Cache returns the chunk cache.
func (c *Compositor) Cache() *ChunkCache { return c.cache }

// Stats returns the work counters.
func (c *Compositor) Stats() Stats { return c.stats }

// ResetStats zeroes the work counters.
func (c *Compositor) ResetStats() { c.stats = Stats{} }

// RasterizeArtifact draws every chunk of a into dst. dst's bounds are in
// root space. Chunks whose items are unchanged since the previous artifact
// drawn by c are taken from the chunk cache. Foreign-layer chunks are left
// to their own quads.
func (c *Compositor) RasterizeArtifact(dst *image.RGBA, a *paint.Artifact) {
	if a == nil {
		return
	}
	if a != c.last {
		// Transform nodes may have been rebuilt for the new artifact.
		c.mapper = paint.NewGeometryMapper()
	}
	matches := a.MatchChunks(c.last)
	c.last = a

	for i, ch := range a.Chunks {
		if ch.Size() == 0 || ch.Bounds.Empty() || isForeign(a, ch) {
			c.stats.ChunksSkipped++
			continue
		}
		var img *image.RGBA
		if matches[i].Valid {
			img, _ = c.cache.Get(ch.ID)
		}
		if img != nil {
			c.stats.ChunksCached++
		} else {
			img = c.renderChunk(a, i)
			c.cache.Put(ch.ID, img, c.frame)
			c.stats.ChunksDrawn++
		}
		c.composite(dst, img, ch.Properties.State)
	}
	compositor.Logger().Debug("raster: artifact",
		"chunks", len(a.Chunks),
		"drawn", c.stats.ChunksDrawn,
		"cached", c.stats.ChunksCached,
	)
}

// RasterizeTile renders a into a new image covering tile.
func (c *Compositor) RasterizeTile(a *paint.Artifact, tile image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(tile)
	c.RasterizeArtifact(dst, a)
	return dst
}

func isForeign(a *paint.Artifact, ch paint.PaintChunk) bool {
	return ch.Size() == 1 && a.Items[ch.Begin].IsForeignLayer()
}

// renderChunk draws the items of chunk i in the chunk's local space.
func (c *Compositor) renderChunk(a *paint.Artifact, i int) *image.RGBA {
	img := image.NewRGBA(a.Chunks[i].Bounds)
	for _, it := range a.ItemsInChunk(i) {
		switch op := it.Op.(type) {
		case paint.RectFill:
			fillRect(img, op.Rect, op.Color)
		case paint.ImageDraw:
			if op.Image == nil {
				continue
			}
			c.interpolator(op.NearestNeighbor).Scale(img, op.Dst, op.Image, op.Src, draw.Over, nil)
		case paint.ForeignLayer:
		}
	}
	return img
}

// composite draws a chunk raster into dst through the chunk's transform,
// clip and effect.
func (c *Compositor) composite(dst *image.RGBA, img *image.RGBA, state paint.PropertyTreeState) {
	clip := c.clipRect(state.Clip).Intersect(dst.Bounds())
	if clip.Empty() {
		return
	}
	target, ok := dst.SubImage(clip).(*image.RGBA)
	if !ok {
		return
	}
	var mask image.Image
	if alpha := opacity(state.Effect); alpha < 1 {
		if alpha <= 0 {
			return
		}
		mask = image.NewUniform(color.Alpha{A: uint8(math.Round(float64(alpha) * 255))})
	}

	m := c.mapper.LocalToRoot(state.Transform)
	if dx, dy, ok := integerTranslation(m); ok {
		r := img.Bounds().Add(image.Pt(dx, dy))
		draw.DrawMask(target, r, img, img.Bounds().Min, mask, image.Point{}, draw.Over)
		return
	}
	var opts *draw.Options
	if mask != nil {
		opts = &draw.Options{SrcMask: mask}
	}
	s2d := f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]}
	c.smooth.Transform(target, s2d, img, img.Bounds(), draw.Over, opts)
}

// clipRect returns the root-space bounds of a clip chain.
func (c *Compositor) clipRect(clip *paint.ClipNode) image.Rectangle {
	r := image.Rect(math.MinInt32, math.MinInt32, math.MaxInt32, math.MaxInt32)
	for n := clip; n != nil && n != paint.RootClip(); n = n.Parent {
		m := c.mapper.LocalToRoot(n.LocalTransform)
		r = r.Intersect(transformBounds(n.Rect, m))
	}
	return r
}

// DrawQuads draws quads into dst in order and returns the number drawn.
func (c *Compositor) DrawQuads(dst *image.RGBA, quads []quad.Quad) int {
	n := 0
	for _, q := range quads {
		if c.drawQuad(dst, q) {
			n++
			c.stats.QuadsDrawn++
		} else {
			c.stats.QuadsSkipped++
		}
	}
	return n
}

func (c *Compositor) drawQuad(dst *image.RGBA, q quad.Quad) bool {
	switch q := q.(type) {
	case quad.SolidColorQuad:
		fillRect(dst, q.Rect, q.Color)
		return true
	case quad.TextureQuad:
		img, ok := c.Resource(q.Resource)
		if !ok {
			return false
		}
		src := q.Src.Add(img.Bounds().Min)
		op := draw.Over
		if q.Opaque {
			op = draw.Src
		}
		c.interpolator(q.NearestNeighbor).Scale(dst, q.Rect, img, src, op, nil)
		return true
	case quad.YUVVideoQuad:
		return c.drawVideo(dst, q)
	}
	return false
}

func (c *Compositor) drawVideo(dst *image.RGBA, q quad.YUVVideoQuad) bool {
	frame, ok := c.videoImage(q)
	if !ok {
		return false
	}
	tc := q.YTexCoords
	sr := image.Rect(
		int(math.Round(float64(tc.U0)*float64(q.YSize.X))),
		int(math.Round(float64(tc.V0)*float64(q.YSize.Y))),
		int(math.Round(float64(tc.U1)*float64(q.YSize.X))),
		int(math.Round(float64(tc.V1)*float64(q.YSize.Y))),
	)
	var opts *draw.Options
	if q.A != 0 {
		a, ok := c.plane(q.A, q.YSize)
		if !ok {
			return false
		}
		opts = &draw.Options{SrcMask: &image.Alpha{Pix: a.Pix, Stride: a.Stride, Rect: a.Rect}}
	}
	c.smooth.Scale(dst, q.Rect, frame, sr, draw.Over, opts)
	return true
}

// videoImage assembles the Y, U and V plane resources of q into one
// image.YCbCr. Planes must be *image.Gray of the sizes recorded in q.
func (c *Compositor) videoImage(q quad.YUVVideoQuad) (*image.YCbCr, bool) {
	y, ok := c.plane(q.Y, q.YSize)
	if !ok {
		return nil, false
	}
	u, ok := c.plane(q.U, q.UVSize)
	if !ok {
		return nil, false
	}
	v, ok := c.plane(q.V, q.UVSize)
	if !ok || u.Stride != v.Stride {
		return nil, false
	}
	var ratio image.YCbCrSubsampleRatio
	switch q.Subsampling {
	case quad.Subsampling420:
		ratio = image.YCbCrSubsampleRatio420
	case quad.Subsampling422:
		ratio = image.YCbCrSubsampleRatio422
	default:
		ratio = image.YCbCrSubsampleRatio444
	}
	return &image.YCbCr{
		Y:              y.Pix,
		Cb:             u.Pix,
		Cr:             v.Pix,
		YStride:        y.Stride,
		CStride:        u.Stride,
		SubsampleRatio: ratio,
		Rect:           image.Rectangle{Max: q.YSize},
	}, true
}

func (c *Compositor) plane(id quad.ResourceID, size image.Point) (*image.Gray, bool) {
	img, ok := c.Resource(id)
	if !ok {
		return nil, false
	}
	g, ok := img.(*image.Gray)
	if !ok || g.Rect.Min != (image.Point{}) || g.Rect.Size() != size {
		return nil, false
	}
	return g, true
}

func (c *Compositor) interpolator(nearest bool) draw.Interpolator {
	if nearest {
		return draw.NearestNeighbor
	}
	return c.smooth
}

// fillRect composites a non-premultiplied color over r.
func fillRect(dst draw.Image, r image.Rectangle, col color.RGBA) {
	if col.A == 0 {
		return
	}
	op := draw.Over
	if col.A == 0xff {
		op = draw.Src
	}
	draw.Draw(dst, r, image.NewUniform(color.NRGBA(col)), image.Point{}, op)
}

// opacity returns the accumulated opacity of an effect chain.
func opacity(e *paint.EffectNode) float32 {
	alpha := float32(1)
	for ; e != nil; e = e.Parent {
		alpha *= e.Opacity
	}
	return alpha
}

func integerTranslation(m matrix.Matrix) (int, int, bool) {
	if m[0] != 1 || m[1] != 0 || m[2] != 0 || m[3] != 1 {
		return 0, 0, false
	}
	if m[4] != math.Trunc(m[4]) || m[5] != math.Trunc(m[5]) {
		return 0, 0, false
	}
	return int(m[4]), int(m[5]), true
}

func transformBounds(r image.Rectangle, m matrix.Matrix) image.Rectangle {
	xs := [4]float64{float64(r.Min.X), float64(r.Max.X), float64(r.Min.X), float64(r.Max.X)}
	ys := [4]float64{float64(r.Min.Y), float64(r.Min.Y), float64(r.Max.Y), float64(r.Max.Y)}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := range xs {
		x := m[0]*xs[i] + m[2]*ys[i] + m[4]
		y := m[1]*xs[i] + m[3]*ys[i] + m[5]
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}
