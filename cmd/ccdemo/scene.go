package main

import (
	"context"
	"image"
	"image/color"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/config"
	"github.com/gogpu/compositor/layers"
	"github.com/gogpu/compositor/paint"
	"github.com/gogpu/compositor/pipeline"
	"github.com/gogpu/compositor/quad"
	"github.com/gogpu/compositor/recording"
)

// Resource ids of the demo textures. Picture tiles are numbered from
// tileBase.
const (
	ninePatchResource quad.ResourceID = 1
	videoY            quad.ResourceID = 2
	videoU            quad.ResourceID = 3
	videoV            quad.ResourceID = 4
	tileBase          quad.ResourceID = 1000
)

const (
	backgroundClient paint.ClientID = 1
	contentClient    paint.ClientID = 2
	videoLayerRef    paint.LayerRef = 1
)

// content paints a moving box, a translucent panel and a video placeholder.
type content struct {
	size  image.Point
	color color.RGBA
	frame uint64

	video      *layers.VideoLayer
	videoAt    image.Point
	panel      paint.ChunkProperties
	videoProps paint.ChunkProperties
}

func newContent(cfg config.Config, video *layers.VideoLayer) *content {
	size := cfg.Size()
	videoAt := image.Pt(size.X-cfg.Video.Width-24, size.Y-cfg.Video.Height-24)

	panel := paint.RootChunkProperties()
	panel.State.Effect = paint.NewOpacity(paint.RootEffect(), 0.6)
	panel.State.Clip = paint.NewClip(paint.RootClip(), paint.RootTransform(), image.Rectangle{Max: size}.Inset(16))

	videoProps := paint.RootChunkProperties()
	videoProps.State.Transform = paint.NewTranslation(paint.RootTransform(), float64(videoAt.X), float64(videoAt.Y))

	return &content{
		size:       size,
		color:      cfg.Foreground.Value(),
		video:      video,
		videoAt:    videoAt,
		panel:      panel,
		videoProps: videoProps,
	}
}

func (c *content) boxRect() image.Rectangle {
	span := max(c.size.X-96, 1)
	x := 32 + int(c.frame*24)%span
	return image.Rect(x, 48, x+64, 112)
}

// PaintContentsToDisplayList implements recording.PaintClient.
func (c *content) PaintContentsToDisplayList(ctl recording.PaintingControl) *paint.Artifact {
	pc := paint.NewController()
	if ctl == recording.DisplayListPaintingDisabled {
		return pc.Commit()
	}

	box := paint.NewDrawing(contentClient, paint.TypeContent, 0, paint.RectFill{Rect: c.boxRect(), Color: c.color})
	pc.UpdateCurrentPaintChunkProperties(paint.SomeChunkID(box.ID), paint.RootChunkProperties())
	pc.Append(box)

	panel := paint.NewDrawing(contentClient, paint.TypeBorder, 0, paint.RectFill{
		Rect:  image.Rect(24, c.size.Y/2, c.size.X/2, c.size.Y-24),
		Color: color.RGBA{R: 0xf5, G: 0xa6, B: 0x23, A: 0xff},
	})
	pc.UpdateCurrentPaintChunkProperties(paint.SomeChunkID(panel.ID), c.panel)
	pc.Append(panel)

	pc.UpdateCurrentPaintChunkProperties(paint.NoChunkID, c.videoProps)
	pc.Append(c.video.DisplayItem(contentClient, image.Point{}))

	return pc.Commit()
}

// PaintableRegion implements recording.PaintClient.
func (c *content) PaintableRegion() image.Rectangle { return image.Rectangle{Max: c.size} }

// scene owns the producer side of the demo: the recording sources and the
// layers that turn them into quads.
type scene struct {
	cfg      config.Config
	viewport image.Rectangle

	background *layers.SolidColorClient
	bgSource   *recording.Source
	bgPicture  *layers.PictureLayer

	content *content
	source  *recording.Source
	picture *layers.PictureLayer

	ninePatch *layers.NinePatchLayer
	video     *layers.VideoLayer
}

func newScene(cfg config.Config) *scene {
	size := cfg.Size()
	viewport := image.Rectangle{Max: size}

	opts := []recording.SourceOption{recording.WithGridCellSize(cfg.Recording.TileSize())}
	if cfg.Recording.Policy == "full" {
		opts = append(opts, recording.WithInvalidationPolicy(recording.FullInvalidationPolicy))
	}

	bgSource := recording.NewSource(opts...)
	source := recording.NewSource(opts...)

	video := layers.NewVideoLayer(videoLayerRef, image.Pt(cfg.Video.Width, cfg.Video.Height))
	video.SetFrame(&layers.VideoFrame{
		Y:           videoY,
		U:           videoU,
		V:           videoV,
		CodedSize:   image.Pt(cfg.Video.Width, cfg.Video.Height),
		VisibleRect: image.Rect(0, 0, cfg.Video.Width, cfg.Video.Height),
		Subsampling: subsampling(cfg.Video.Subsampling),
	})

	np := layers.NewNinePatchLayer(size)
	np.SetResource(ninePatchResource)
	b := cfg.NinePatch.Border
	np.SetLayout(
		image.Pt(cfg.NinePatch.ImageWidth, cfg.NinePatch.ImageHeight),
		cfg.NinePatch.ApertureRect(),
		compositor.Insets{Left: b[0], Top: b[1], Right: b[2], Bottom: b[3]},
		image.Rectangle{},
		cfg.NinePatch.FillCenter,
		cfg.Raster.Interpolation == "nearest",
	)

	tw := cfg.Recording.TileWidth
	picture := layers.NewPictureLayer(source, layers.SequentialTiles(tileBase, (size.X+tw-1)/tw))
	picture.SetNearestNeighbor(cfg.Raster.Interpolation == "nearest")

	return &scene{
		cfg:        cfg,
		viewport:   viewport,
		background: layers.NewSolidColorClient(backgroundClient, viewport, cfg.Background.Value()),
		bgSource:   bgSource,
		bgPicture:  layers.NewPictureLayer(bgSource, nil),
		content:    newContent(cfg, video),
		source:     source,
		picture:    picture,
		ninePatch:  np,
		video:      video,
	}
}

func subsampling(s string) quad.ChromaSubsampling {
	switch s {
	case "422":
		return quad.Subsampling422
	case "444":
		return quad.Subsampling444
	default:
		return quad.Subsampling420
	}
}

// produce records frame n and emits its quads, bottom-most first.
func (s *scene) produce(_ context.Context, n uint64) (*pipeline.Frame, error) {
	size := s.cfg.Size()
	old := s.content.boxRect()
	s.content.frame = n
	if box := s.content.boxRect(); box != old {
		s.source.SetNeedsDisplayRect(old.Union(box))
	}

	s.bgSource.UpdateAndExpandInvalidation(s.background, nil, size, s.viewport, recording.PaintingNormally)
	s.source.UpdateAndExpandInvalidation(s.content, nil, size, s.viewport, recording.PaintingNormally)

	artifact := s.source.Artifact()
	pending := paint.Layerize(artifact)

	list := quad.NewList(32)
	s.bgPicture.AppendQuads(list)
	s.picture.AppendQuads(list)
	if q, ok := s.video.Quad(); ok {
		q.Rect = q.Rect.Add(s.content.videoAt)
		list.Append(q)
	}
	s.ninePatch.AppendQuads(list)

	damage := s.source.DirtyTiles()
	s.source.ClearDirtyTiles()
	s.bgSource.ClearDirtyTiles()

	compositor.Logger().Debug("ccdemo: frame",
		"n", n,
		"chunks", len(artifact.Chunks),
		"layers", len(pending),
		"quads", list.Len(),
		"damage", len(damage),
	)
	return &pipeline.Frame{
		Size:     size,
		Artifact: artifact,
		Quads:    list,
		Damage:   damage,
	}, nil
}
