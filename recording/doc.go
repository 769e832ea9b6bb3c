// Package recording owns the display list of a layer and tracks what part
// of it is stale.
//
// A Source asks its PaintClient for a fresh recording only when the
// invalidation, grown by SetNeedsDisplayRect calls and by the
// InvalidationPolicy on resize or viewport changes, is non-empty. Items that
// lie entirely outside the invalidation keep their previous recording, so a
// consumer holding cached results for them can keep using those results.
//
// # Basic Usage
//
//	src := recording.NewSource(recording.WithGridCellSize(image.Pt(128, 128)))
//	var inval recording.Region
//	vp := src.UpdateAndExpandInvalidation(client, &inval, size, viewport, recording.PaintingNormally)
//	artifact := src.Artifact()
//	for _, tile := range src.DirtyTiles() {
//		// re-raster tile
//	}
//	src.ClearDirtyTiles()
package recording
