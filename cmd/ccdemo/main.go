// Command ccdemo records a small animated scene, composites it on the CPU
// and writes the last frame as a PNG.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/image/draw"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/config"
	"github.com/gogpu/compositor/pipeline"
	"github.com/gogpu/compositor/quad"
	"github.com/gogpu/compositor/raster"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML configuration file")
		output     = flag.String("output", "", "output PNG (overrides the configuration)")
		frames     = flag.Int("frames", 0, "number of frames (overrides the configuration)")
		verbose    = flag.Bool("v", false, "log per-frame diagnostics")
	)
	flag.Parse()

	if *verbose {
		compositor.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	if *output != "" {
		cfg.Output = *output
	}
	if *frames > 0 {
		cfg.Frames = *frames
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	last, stats, err := run(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to render: %v", err)
	}
	if err := savePNG(cfg.Output, last); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Rendered %d frames to %s (%dx%d)\n", stats.Consumed, cfg.Output, cfg.Width, cfg.Height)
}

// run produces cfg.Frames frames and composites them, returning the last.
func run(ctx context.Context, cfg config.Config) (*image.RGBA, pipeline.Stats, error) {
	sc := newScene(cfg)

	var opts []raster.Option
	opts = append(opts, raster.WithCacheSizeMB(cfg.Raster.CacheSizeMB))
	if cfg.Raster.Interpolation == "nearest" {
		opts = append(opts, raster.WithInterpolator(draw.NearestNeighbor))
	}
	comp := raster.NewCompositor(opts...)
	registerTextures(comp, cfg)

	var last *image.RGBA
	consume := func(_ context.Context, f *pipeline.Frame) error {
		comp.SetFrameNumber(f.Number)
		refreshTiles(comp, f)
		dst := image.NewRGBA(image.Rectangle{Max: f.Size})
		comp.DrawQuads(dst, f.Quads.Quads())
		last = dst
		return nil
	}

	stats, err := pipeline.Run(ctx, sc.produce, consume, pipeline.WithMaxFrames(uint64(cfg.Frames)))
	if err != nil {
		return nil, stats, err
	}
	if last == nil {
		return nil, stats, fmt.Errorf("ccdemo: no frame rendered")
	}
	rs := comp.Stats()
	compositor.Logger().Info("ccdemo: done",
		"frames", stats.Consumed,
		"chunks_drawn", rs.ChunksDrawn,
		"chunks_cached", rs.ChunksCached,
		"quads", rs.QuadsDrawn,
		"quads_skipped", rs.QuadsSkipped,
	)
	return last, stats, nil
}

// refreshTiles rasterizes the picture tiles that are missing or damaged.
func refreshTiles(comp *raster.Compositor, f *pipeline.Frame) {
	for _, q := range f.Quads.Quads() {
		tq, ok := q.(quad.TextureQuad)
		if !ok || tq.Resource < tileBase {
			continue
		}
		if _, have := comp.Resource(tq.Resource); have && !damaged(f.Damage, tq.Rect) {
			continue
		}
		comp.SetResource(tq.Resource, comp.RasterizeTile(f.Artifact, tq.Rect))
	}
}

func damaged(damage []image.Rectangle, r image.Rectangle) bool {
	for _, d := range damage {
		if d.Overlaps(r) {
			return true
		}
	}
	return false
}

// registerTextures creates the nine-patch image and the video planes.
func registerTextures(comp *raster.Compositor, cfg config.Config) {
	np := cfg.NinePatch
	frame := image.NewRGBA(image.Rect(0, 0, np.ImageWidth, np.ImageHeight))
	edge := color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	draw.Draw(frame, frame.Bounds(), image.NewUniform(edge), image.Point{}, draw.Src)
	draw.Draw(frame, np.ApertureRect(), image.Transparent, image.Point{}, draw.Src)
	comp.SetResource(ninePatchResource, frame)

	ySize := image.Pt(cfg.Video.Width, cfg.Video.Height)
	div := subsampling(cfg.Video.Subsampling).Divisor()
	uvSize := image.Pt((ySize.X+div.X-1)/div.X, (ySize.Y+div.Y-1)/div.Y)

	y := image.NewGray(image.Rectangle{Max: ySize})
	for row := 0; row < ySize.Y; row++ {
		for col := 0; col < ySize.X; col++ {
			y.Pix[row*y.Stride+col] = uint8(64 + 128*col/max(ySize.X, 1))
		}
	}
	comp.SetResource(videoY, y)
	comp.SetResource(videoU, filledGray(uvSize, 0x60))
	comp.SetResource(videoV, filledGray(uvSize, 0xa0))
}

func filledGray(size image.Point, v uint8) *image.Gray {
	g := image.NewGray(image.Rectangle{Max: size})
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ccdemo: create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("ccdemo: encode %s: %w", path, err)
	}
	return f.Close()
}
