// Package pipeline hands committed frames from a producer goroutine to a
// consumer goroutine.
//
// A Frame changes owner when it is sent: the producer must not touch the
// artifact or the quad list of a frame after returning it, and the consumer
// only reads them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/paint"
	"github.com/gogpu/compositor/quad"
)

// ErrStop is returned by a Producer to end the run without error.
var ErrStop = errors.New("pipeline: stop")

// Frame is one committed pass ready for drawing.
type Frame struct {
	Number   uint64
	Size     image.Point // target size in pixels
	Artifact *paint.Artifact
	Quads    *quad.List

	// Damage lists the layer-space areas whose raster changed since the
	// previous frame.
	Damage []image.Rectangle
}

// Producer builds frame number n. It returns ErrStop when there are no
// more frames.
type Producer func(ctx context.Context, n uint64) (*Frame, error)

// Consumer draws a frame. It must not modify the frame.
type Consumer func(ctx context.Context, f *Frame) error

// Stats reports the outcome of a run.
type Stats struct {
	Produced uint64
	Consumed uint64
}

// Option configures Run.
type Option func(*options)

type options struct {
	depth     int
	maxFrames uint64
}

// WithDepth sets how many produced frames may wait for the consumer. The
// default is one, so the producer works on frame n+1 while frame n draws.
func WithDepth(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.depth = n
		}
	}
}

// WithMaxFrames stops the run after n frames. Zero means no limit.
func WithMaxFrames(n uint64) Option {
	return func(o *options) {
		o.maxFrames = n
	}
}

// Run drives produce and consume on two goroutines until the producer
// returns ErrStop, the frame limit is reached, either side fails, or ctx is
// canceled. Frames are consumed in production order. The first error is
// returned; cancellation of ctx is reported as ctx.Err().
func Run(ctx context.Context, produce Producer, consume Consumer, opts ...Option) (Stats, error) {
	o := options{depth: 1}
	for _, opt := range opts {
		opt(&o)
	}

	var stats Stats
	frames := make(chan *Frame, o.depth)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(frames)
		for n := uint64(0); o.maxFrames == 0 || n < o.maxFrames; n++ {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := produce(gctx, n)
			if errors.Is(err, ErrStop) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("produce frame %d: %w", n, err)
			}
			if f == nil {
				continue
			}
			f.Number = n
			select {
			case frames <- f:
				stats.Produced++
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		for f := range frames {
			if err := consume(gctx, f); err != nil {
				return fmt.Errorf("consume frame %d: %w", f.Number, err)
			}
			stats.Consumed++
		}
		return nil
	})

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	compositor.Logger().Debug("pipeline: run finished",
		"produced", stats.Produced,
		"consumed", stats.Consumed,
		"err", err,
	)
	return stats, err
}
