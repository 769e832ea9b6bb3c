package recording

import (
	"image"
	"image/color"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/internal/check"
	"github.com/gogpu/compositor/internal/tilegrid"
	"github.com/gogpu/compositor/paint"
)

// DefaultGridCellSize is the raster tile size used when none is configured.
var DefaultGridCellSize = image.Pt(256, 256)

// maxSolidColorOps bounds the number of items examined by the solid-color
// analysis.
const maxSolidColorOps = 10

// PaintingControl tells a paint client how to record.
type PaintingControl uint8

const (
	// PaintingNormally records and caches as usual.
	PaintingNormally PaintingControl = iota

	// DisplayListConstructionDisabled skips recording entirely; the
	// previous display list stays in place.
	DisplayListConstructionDisabled

	// DisplayListCachingDisabled records every item as if it skipped the
	// cache, so nothing is reused from the previous pass.
	DisplayListCachingDisabled

	// DisplayListPaintingDisabled records an empty display list.
	DisplayListPaintingDisabled
)

var paintingControlNames = [...]string{
	PaintingNormally:                "PaintingNormally",
	DisplayListConstructionDisabled: "DisplayListConstructionDisabled",
	DisplayListCachingDisabled:      "DisplayListCachingDisabled",
	DisplayListPaintingDisabled:     "DisplayListPaintingDisabled",
}

// String returns the name of the setting.
func (c PaintingControl) String() string {
	if int(c) < len(paintingControlNames) {
		return paintingControlNames[c]
	}
	return "Unknown"
}

// PaintClient is the object that knows how to draw a layer's contents.
type PaintClient interface {
	// PaintContentsToDisplayList records the client's contents as a
	// committed artifact.
	PaintContentsToDisplayList(ctl PaintingControl) *paint.Artifact

	// PaintableRegion returns the layer-space area the client can paint.
	PaintableRegion() image.Rectangle
}

// Stats counts recording work done by a Source.
type Stats struct {
	Records       int // passes that asked the client to record
	NoOps         int // calls that found nothing to do
	ReusedItems   int // items kept from the previous pass
	RecordedItems int // items taken from a fresh recording
}

// SourceOption configures a Source during creation.
type SourceOption func(*sourceOptions)

type sourceOptions struct {
	gridCellSize image.Point
	policy       InvalidationPolicy
}

func defaultSourceOptions() sourceOptions {
	return sourceOptions{
		gridCellSize: DefaultGridCellSize,
		policy:       DefaultInvalidationPolicy,
	}
}

// WithGridCellSize sets the raster tile size used for dirty tracking.
func WithGridCellSize(size image.Point) SourceOption {
	return func(o *sourceOptions) {
		o.gridCellSize = size
	}
}

// WithInvalidationPolicy replaces the policy that expands invalidation on
// resize and viewport changes.
func WithInvalidationPolicy(p InvalidationPolicy) SourceOption {
	return func(o *sourceOptions) {
		if p != nil {
			o.policy = p
		}
	}
}

// Source owns the display list of one layer and decides what must be
// re-recorded.
//
// A Source is not safe for concurrent use. Its artifact may be handed to a
// consumer goroutine; the Source never mutates an artifact after it has been
// returned by Artifact.
type Source struct {
	layerBounds      image.Point
	recordedViewport image.Rectangle
	gridCellSize     image.Point
	policy           InvalidationPolicy

	artifact *paint.Artifact
	matches  []paint.ChunkMatch
	pending  Region
	tiles    *tilegrid.Grid

	solid      bool
	solidColor color.RGBA

	stats Stats
}

// NewSource creates an empty recording source.
func NewSource(opts ...SourceOption) *Source {
	o := defaultSourceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	check.That(o.gridCellSize.X > 0 && o.gridCellSize.Y > 0, "non-positive grid cell size %v", o.gridCellSize)
	return &Source{
		gridCellSize: o.gridCellSize,
		policy:       o.policy,
	}
}

// SetRecordedViewport sets the recorded viewport without recording.
func (s *Source) SetRecordedViewport(r image.Rectangle) { s.recordedViewport = r }

// SetLayerBounds sets the layer size without recording.
func (s *Source) SetLayerBounds(size image.Point) { s.layerBounds = size }

// SetGridCellSize changes the raster tile size. Dirty state is reset on the
// next recording.
func (s *Source) SetGridCellSize(size image.Point) {
	if !check.That(size.X > 0 && size.Y > 0, "non-positive grid cell size %v", size) {
		return
	}
	if size != s.gridCellSize {
		s.gridCellSize = size
		s.tiles = nil
	}
}

// SetNeedsDisplayRect records r as stale. It is merged into the invalidation
// of the next UpdateAndExpandInvalidation call.
func (s *Source) SetNeedsDisplayRect(r image.Rectangle) { s.pending.Union(r) }

// UpdateAndExpandInvalidation brings the display list up to date and
// returns the new recorded viewport.
//
// Pending invalidation from SetNeedsDisplayRect and the area selected by the
// invalidation policy for any change of layerSize or viewport are merged
// into invalidation, together with the old and new visual rects of items
// whose geometry changed. An empty invalidation makes the call a no-op.
// Otherwise the client records again and its items replace the old ones
// only where they intersect the invalidation; all other items with a
// matching identity are kept from the previous pass.
func (s *Source) UpdateAndExpandInvalidation(client PaintClient, invalidation *Region, layerSize image.Point, viewport image.Rectangle, ctl PaintingControl) image.Rectangle {
	if !check.That(client != nil, "UpdateAndExpandInvalidation with nil client") {
		return s.recordedViewport
	}
	if invalidation == nil {
		invalidation = &Region{}
	}
	invalidation.UnionRegion(s.pending)
	s.pending.Clear()

	if layerSize != s.layerBounds || viewport != s.recordedViewport {
		invalidation.UnionRegion(s.policy(s.layerBounds, layerSize, s.recordedViewport, viewport))
		if viewport != s.recordedViewport {
			s.tiles = nil
		}
	}
	s.layerBounds = layerSize
	s.recordedViewport = viewport

	if ctl == DisplayListConstructionDisabled {
		// Keep the stale area for the next pass that records.
		s.pending.UnionRegion(*invalidation)
	}
	if invalidation.IsEmpty() || ctl == DisplayListConstructionDisabled {
		s.stats.NoOps++
		return s.recordedViewport
	}

	fresh := client.PaintContentsToDisplayList(ctl)
	if fresh == nil || ctl == DisplayListPaintingDisabled {
		fresh = &paint.Artifact{}
	}
	next := s.merge(fresh, invalidation, ctl == DisplayListCachingDisabled)
	if err := next.Validate(); err != nil {
		check.That(false, "client %T recorded an invalid artifact: %v", client, err)
	}

	s.matches = next.MatchChunks(s.artifact)
	s.artifact = next
	s.markTiles(invalidation)
	s.analyzeSolidColor()
	s.stats.Records++

	compositor.Logger().Debug("recording: update",
		"viewport", viewport,
		"invalidation", invalidation.Bounds(),
		"items", len(next.Items),
		"chunks", len(next.Chunks),
		"solid", s.solid,
	)
	return s.recordedViewport
}

// merge builds the next artifact from the fresh recording, reusing old
// items outside the invalidation and expanding the invalidation for items
// whose geometry changed.
func (s *Source) merge(fresh *paint.Artifact, invalidation *Region, skipCache bool) *paint.Artifact {
	old := make(map[paint.ItemID]*paint.DisplayItem)
	if s.artifact != nil {
		for i := range s.artifact.Items {
			it := &s.artifact.Items[i]
			old[it.ID] = it
		}
	}

	items := make([]paint.DisplayItem, len(fresh.Items))
	copy(items, fresh.Items)
	if skipCache {
		for i := range items {
			items[i].SkippedCache = true
		}
	}

	seen := make(map[paint.ItemID]struct{}, len(items))
	for i := range items {
		it := &items[i]
		seen[it.ID] = struct{}{}
		prev, ok := old[it.ID]
		switch {
		case !ok:
			invalidation.Union(it.VisualRect)
		case prev.VisualRect != it.VisualRect:
			invalidation.Union(prev.VisualRect)
			invalidation.Union(it.VisualRect)
		}
	}
	for id, prev := range old {
		if _, ok := seen[id]; !ok {
			invalidation.Union(prev.VisualRect)
		}
	}

	reused := 0
	for i := range items {
		it := &items[i]
		prev, ok := old[it.ID]
		if !ok || it.SkippedCache || prev.SkippedCache {
			continue
		}
		if invalidation.Intersects(prev.VisualRect) || invalidation.Intersects(it.VisualRect) {
			continue
		}
		*it = *prev
		reused++
	}
	s.stats.ReusedItems += reused
	s.stats.RecordedItems += len(items) - reused

	chunks := make([]paint.PaintChunk, len(fresh.Chunks))
	copy(chunks, fresh.Chunks)
	if len(items) == 0 {
		// An empty recording still yields one chunk so consumers see the
		// layer.
		chunks = []paint.PaintChunk{{Properties: paint.RootChunkProperties()}}
	}
	a := &paint.Artifact{Items: items, Chunks: chunks}
	a.ComputeChunkBounds()
	return a
}

func (s *Source) markTiles(invalidation *Region) {
	if s.tiles == nil {
		s.tiles = tilegrid.New(s.recordedViewport, s.gridCellSize)
		if s.tiles != nil {
			s.tiles.MarkAll()
		}
		return
	}
	for _, r := range invalidation.Rects() {
		s.tiles.MarkRect(r)
	}
}

// analyzeSolidColor decides whether the recording paints one opaque color
// over the whole layer, or nothing at all.
func (s *Source) analyzeSolidColor() {
	s.solid, s.solidColor = false, color.RGBA{}
	layer := image.Rectangle{Max: s.layerBounds}
	if layer.Empty() || len(s.artifact.Items) > maxSolidColorOps {
		return
	}
	var c color.RGBA
	covered := false
	for i, ch := range s.artifact.Chunks {
		if ch.Properties != paint.RootChunkProperties() && ch.Size() > 0 {
			return
		}
		for _, it := range s.artifact.ItemsInChunk(i) {
			fill, ok := it.Op.(paint.RectFill)
			if !ok {
				return
			}
			switch {
			case fill.Color.A == 0 || fill.Rect.Intersect(layer).Empty():
			case fill.Color.A == 0xff && layer.In(fill.Rect):
				covered, c = true, fill.Color
			case covered && fill.Color == c:
			default:
				return
			}
		}
	}
	s.solid, s.solidColor = true, c
}

// Artifact returns the current display list, or nil before the first
// recording.
func (s *Source) Artifact() *paint.Artifact { return s.artifact }

// RecordedViewport returns the recorded viewport.
func (s *Source) RecordedViewport() image.Rectangle { return s.recordedViewport }

// LayerBounds returns the layer size.
func (s *Source) LayerBounds() image.Point { return s.layerBounds }

// GridCellSize returns the raster tile size.
func (s *Source) GridCellSize() image.Point { return s.gridCellSize }

// DirtyTiles returns the rectangles of tiles made stale by recordings since
// the last ClearDirtyTiles.
func (s *Source) DirtyTiles() []image.Rectangle {
	if s.tiles == nil {
		return nil
	}
	var out []image.Rectangle
	s.tiles.ForEachDirty(func(_, _ int, r image.Rectangle) {
		out = append(out, r)
	})
	return out
}

// ClearDirtyTiles marks every tile clean.
func (s *Source) ClearDirtyTiles() {
	if s.tiles != nil {
		s.tiles.Clear()
	}
}

// IsSolidColor reports whether the layer paints a single color. A layer
// with nothing opaque to paint is solid transparent.
func (s *Source) IsSolidColor() bool { return s.solid }

// SolidColor returns the color found by the solid-color analysis.
func (s *Source) SolidColor() color.RGBA { return s.solidColor }

// ChunkMatches returns how the chunks of the current artifact relate to the
// previous recording.
func (s *Source) ChunkMatches() []paint.ChunkMatch { return s.matches }

// Stats returns recording counters.
func (s *Source) Stats() Stats { return s.stats }
