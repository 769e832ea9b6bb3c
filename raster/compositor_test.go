package raster

import (
	"image"
	"image/color"
	"testing"

	"seehuhn.de/go/geom/matrix"

	"github.com/gogpu/compositor/paint"
	"github.com/gogpu/compositor/quad"
)

var (
	red  = color.RGBA{R: 0xff, A: 0xff}
	blue = color.RGBA{B: 0xff, A: 0xff}
)

// fillArtifact returns an artifact of one chunk holding one rect fill.
func fillArtifact(r image.Rectangle, c color.RGBA, props paint.ChunkProperties) *paint.Artifact {
	it := paint.NewDrawing(1, paint.TypeContent, 0, paint.RectFill{Rect: r, Color: c})
	a := &paint.Artifact{
		Items: []paint.DisplayItem{it},
		Chunks: []paint.PaintChunk{{
			Begin:      0,
			End:        1,
			ID:         paint.SomeChunkID(it.ID),
			Properties: props,
		}},
	}
	a.ComputeChunkBounds()
	return a
}

func withState(t *paint.TransformNode, c *paint.ClipNode, e *paint.EffectNode) paint.ChunkProperties {
	s := paint.RootPropertyTreeState()
	if t != nil {
		s.Transform = t
	}
	if c != nil {
		s.Clip = c
	}
	if e != nil {
		s.Effect = e
	}
	return paint.ChunkProperties{State: s}
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -1 && d <= 1
}

func TestRasterizeArtifact(t *testing.T) {
	root := paint.RootChunkProperties()
	tests := []struct {
		name    string
		a       *paint.Artifact
		inside  image.Point
		outside image.Point
		want    color.RGBA
	}{
		{
			name:    "root",
			a:       fillArtifact(image.Rect(0, 0, 10, 10), blue, root),
			inside:  image.Pt(5, 5),
			outside: image.Pt(15, 15),
			want:    blue,
		},
		{
			name:    "translated",
			a:       fillArtifact(image.Rect(0, 0, 10, 10), blue, withState(paint.NewTranslation(paint.RootTransform(), 5, 5), nil, nil)),
			inside:  image.Pt(12, 12),
			outside: image.Pt(2, 2),
			want:    blue,
		},
		{
			name: "scaled",
			a: fillArtifact(image.Rect(0, 0, 5, 5), red, withState(&paint.TransformNode{
				Parent: paint.RootTransform(),
				Matrix: matrix.Matrix{2, 0, 0, 2, 0, 0},
			}, nil, nil)),
			inside:  image.Pt(4, 4),
			outside: image.Pt(15, 15),
			want:    red,
		},
		{
			name:    "clipped",
			a:       fillArtifact(image.Rect(0, 0, 10, 10), red, withState(nil, paint.NewClip(paint.RootClip(), paint.RootTransform(), image.Rect(0, 0, 5, 5)), nil)),
			inside:  image.Pt(2, 2),
			outside: image.Pt(7, 7),
			want:    red,
		},
		{
			name:    "half opacity",
			a:       fillArtifact(image.Rect(0, 0, 10, 10), red, withState(nil, nil, paint.NewOpacity(paint.RootEffect(), 0.5))),
			inside:  image.Pt(5, 5),
			outside: image.Pt(15, 15),
			want:    color.RGBA{R: 0x80, A: 0x80},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCompositor()
			dst := image.NewRGBA(image.Rect(0, 0, 20, 20))
			c.RasterizeArtifact(dst, tt.a)

			got := dst.RGBAAt(tt.inside.X, tt.inside.Y)
			if !near(got.R, tt.want.R) || !near(got.G, tt.want.G) || !near(got.B, tt.want.B) || !near(got.A, tt.want.A) {
				t.Errorf("pixel %v = %v, want %v", tt.inside, got, tt.want)
			}
			if got := dst.RGBAAt(tt.outside.X, tt.outside.Y); got != (color.RGBA{}) {
				t.Errorf("pixel %v = %v, want transparent", tt.outside, got)
			}
			if s := c.Stats(); s.ChunksDrawn != 1 {
				t.Errorf("ChunksDrawn = %d, want 1", s.ChunksDrawn)
			}
		})
	}
}

func TestRasterizeArtifact_Cache(t *testing.T) {
	c := NewCompositor()
	a := fillArtifact(image.Rect(0, 0, 10, 10), blue, paint.RootChunkProperties())

	c.RasterizeArtifact(image.NewRGBA(image.Rect(0, 0, 10, 10)), a)
	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	c.RasterizeArtifact(dst, a)

	if s := c.Stats(); s.ChunksDrawn != 1 || s.ChunksCached != 1 {
		t.Errorf("drawn/cached = %d/%d, want 1/1", s.ChunksDrawn, s.ChunksCached)
	}
	if got := dst.RGBAAt(3, 3); got != blue {
		t.Errorf("cached pixel = %v, want %v", got, blue)
	}

	// Same chunk id, different item: the cache must not be used.
	changed := fillArtifact(image.Rect(0, 0, 10, 10), red, paint.RootChunkProperties())
	dst = image.NewRGBA(image.Rect(0, 0, 10, 10))
	c.RasterizeArtifact(dst, changed)
	if got := dst.RGBAAt(3, 3); got != red {
		t.Errorf("pixel after change = %v, want %v", got, red)
	}
	if s := c.Stats(); s.ChunksDrawn != 2 {
		t.Errorf("ChunksDrawn = %d, want 2", s.ChunksDrawn)
	}
}

// A pending chunk id must name only one chunk, otherwise a later chunk is
// drawn from an earlier chunk's cached raster.
func TestRasterizeArtifact_SkippedItemKeepsIDsUnique(t *testing.T) {
	ctl := paint.NewController()
	a := paint.NewDrawing(9, paint.TypeBackground, 0, paint.RectFill{Rect: image.Rect(0, 0, 10, 10), Color: red})
	b := paint.NewDrawing(10, paint.TypeBackground, 0, paint.RectFill{Rect: image.Rect(10, 0, 20, 10), Color: red})
	b.SkippedCache = true
	d := paint.NewDrawing(11, paint.TypeBackground, 0, paint.RectFill{Rect: image.Rect(20, 0, 30, 10), Color: blue})
	ctl.UpdateCurrentPaintChunkProperties(paint.SomeChunkID(a.ID), paint.RootChunkProperties())
	ctl.Append(a)
	ctl.Append(b)
	ctl.Append(d)
	art := ctl.Commit()

	seen := make(map[paint.ChunkID]bool)
	for _, ch := range art.Chunks {
		if ch.ID.IsSet() && seen[ch.ID] {
			t.Fatalf("chunk id %s used twice: %v", ch.ID, art.Chunks)
		}
		seen[ch.ID] = true
	}

	c := NewCompositor()
	for frame := 0; frame < 2; frame++ {
		dst := image.NewRGBA(image.Rect(0, 0, 30, 10))
		c.RasterizeArtifact(dst, art)
		if got := dst.RGBAAt(25, 5); got != blue {
			t.Errorf("frame %d: pixel = %v, want %v", frame, got, blue)
		}
		if got := dst.RGBAAt(5, 5); got != red {
			t.Errorf("frame %d: pixel = %v, want %v", frame, got, red)
		}
	}
}

func TestRasterizeArtifact_SkipsForeign(t *testing.T) {
	it := paint.NewForeignLayer(1, paint.TypeForeignLayerVideo, paint.ForeignLayer{Layer: 9, Size: image.Pt(10, 10)})
	a := &paint.Artifact{
		Items:  []paint.DisplayItem{it},
		Chunks: []paint.PaintChunk{{Begin: 0, End: 1, ID: paint.SomeChunkID(it.ID), Properties: paint.RootChunkProperties()}},
	}
	a.ComputeChunkBounds()

	c := NewCompositor()
	c.RasterizeArtifact(image.NewRGBA(image.Rect(0, 0, 10, 10)), a)
	if s := c.Stats(); s.ChunksSkipped != 1 || s.ChunksDrawn != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestRasterizeTile(t *testing.T) {
	c := NewCompositor()
	a := fillArtifact(image.Rect(0, 0, 100, 100), blue, paint.RootChunkProperties())
	tile := c.RasterizeTile(a, image.Rect(50, 50, 60, 60))
	if tile.Bounds() != image.Rect(50, 50, 60, 60) {
		t.Fatalf("Bounds = %v", tile.Bounds())
	}
	if got := tile.RGBAAt(55, 55); got != blue {
		t.Errorf("pixel = %v, want %v", got, blue)
	}
}

func TestDrawQuads_Solid(t *testing.T) {
	c := NewCompositor()
	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	n := c.DrawQuads(dst, []quad.Quad{
		quad.SolidColorQuad{Rect: image.Rect(0, 0, 5, 5), Color: red},
	})
	if n != 1 {
		t.Fatalf("drawn = %d, want 1", n)
	}
	if got := dst.RGBAAt(2, 2); got != red {
		t.Errorf("inside = %v, want %v", got, red)
	}
	if got := dst.RGBAAt(7, 7); got != (color.RGBA{}) {
		t.Errorf("outside = %v, want transparent", got)
	}
}

func TestDrawQuads_Texture(t *testing.T) {
	tex := image.NewRGBA(image.Rect(0, 0, 2, 2))
	tex.SetRGBA(0, 0, red)
	tex.SetRGBA(1, 0, blue)
	tex.SetRGBA(0, 1, blue)
	tex.SetRGBA(1, 1, red)

	c := NewCompositor()
	c.SetResource(1, tex)
	dst := image.NewRGBA(image.Rect(0, 0, 4, 4))
	n := c.DrawQuads(dst, []quad.Quad{quad.TextureQuad{
		Rect:            image.Rect(0, 0, 4, 4),
		Resource:        1,
		Src:             image.Rect(0, 0, 2, 2),
		NearestNeighbor: true,
		Opaque:          true,
	}})
	if n != 1 {
		t.Fatalf("drawn = %d, want 1", n)
	}
	tests := []struct {
		p    image.Point
		want color.RGBA
	}{
		{image.Pt(0, 0), red},
		{image.Pt(3, 0), blue},
		{image.Pt(0, 3), blue},
		{image.Pt(3, 3), red},
	}
	for _, tt := range tests {
		if got := dst.RGBAAt(tt.p.X, tt.p.Y); got != tt.want {
			t.Errorf("pixel %v = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestDrawQuads_MissingResource(t *testing.T) {
	c := NewCompositor()
	dst := image.NewRGBA(image.Rect(0, 0, 4, 4))
	n := c.DrawQuads(dst, []quad.Quad{quad.TextureQuad{Rect: image.Rect(0, 0, 4, 4), Resource: 3, Src: image.Rect(0, 0, 1, 1)}})
	if n != 0 {
		t.Errorf("drawn = %d, want 0", n)
	}
	if s := c.Stats(); s.QuadsSkipped != 1 {
		t.Errorf("QuadsSkipped = %d, want 1", s.QuadsSkipped)
	}

	c.SetResource(3, image.NewRGBA(image.Rect(0, 0, 1, 1)))
	c.RemoveResource(3)
	if _, ok := c.Resource(3); ok {
		t.Error("resource survived RemoveResource")
	}
}

func gray(size image.Point, v uint8) *image.Gray {
	g := image.NewGray(image.Rectangle{Max: size})
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func TestDrawQuads_Video(t *testing.T) {
	tests := []struct {
		name   string
		sub    quad.ChromaSubsampling
		uvSize image.Point
	}{
		{"444", quad.Subsampling444, image.Pt(4, 4)},
		{"422", quad.Subsampling422, image.Pt(2, 4)},
		{"420", quad.Subsampling420, image.Pt(2, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCompositor()
			c.SetResource(1, gray(image.Pt(4, 4), 0xff))
			c.SetResource(2, gray(tt.uvSize, 0x80))
			c.SetResource(3, gray(tt.uvSize, 0x80))

			dst := image.NewRGBA(image.Rect(0, 0, 4, 4))
			n := c.DrawQuads(dst, []quad.Quad{quad.YUVVideoQuad{
				Rect:        image.Rect(0, 0, 4, 4),
				Y:           1,
				U:           2,
				V:           3,
				YTexCoords:  quad.UVRect{U1: 1, V1: 1},
				UVTexCoords: quad.UVRect{U1: 1, V1: 1},
				YSize:       image.Pt(4, 4),
				UVSize:      tt.uvSize,
				Subsampling: tt.sub,
			}})
			if n != 1 {
				t.Fatalf("drawn = %d, want 1", n)
			}
			want := color.RGBA{0xff, 0xff, 0xff, 0xff}
			if got := dst.RGBAAt(2, 2); got != want {
				t.Errorf("pixel = %v, want %v", got, want)
			}
		})
	}
}

func TestDrawQuads_VideoBadPlanes(t *testing.T) {
	c := NewCompositor()
	c.SetResource(1, gray(image.Pt(4, 4), 0xff))
	c.SetResource(2, gray(image.Pt(3, 3), 0x80))
	c.SetResource(3, image.NewRGBA(image.Rect(0, 0, 2, 2)))

	n := c.DrawQuads(image.NewRGBA(image.Rect(0, 0, 4, 4)), []quad.Quad{quad.YUVVideoQuad{
		Rect: image.Rect(0, 0, 4, 4), Y: 1, U: 2, V: 3,
		YTexCoords: quad.UVRect{U1: 1, V1: 1},
		YSize:      image.Pt(4, 4), UVSize: image.Pt(2, 2),
	}})
	if n != 0 {
		t.Errorf("drawn = %d, want 0", n)
	}
}
