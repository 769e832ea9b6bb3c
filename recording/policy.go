package recording

import "image"

// InvalidationPolicy decides which layer-space area becomes stale when the
// layer is resized or the recorded viewport moves. The result is merged into
// the caller's invalidation before recording.
type InvalidationPolicy func(oldSize, newSize image.Point, oldViewport, newViewport image.Rectangle) Region

// DefaultInvalidationPolicy invalidates the strips gained or lost by a
// resize together with the areas newly exposed by, or no longer covered by,
// the recorded viewport.
func DefaultInvalidationPolicy(oldSize, newSize image.Point, oldViewport, newViewport image.Rectangle) Region {
	var r Region
	if oldSize != newSize {
		oldRect := image.Rectangle{Max: oldSize}
		newRect := image.Rectangle{Max: newSize}
		for _, s := range subtract(newRect, oldRect) {
			r.Union(s)
		}
		for _, s := range subtract(oldRect, newRect) {
			r.Union(s)
		}
	}
	if oldViewport != newViewport {
		for _, s := range subtract(newViewport, oldViewport) {
			r.Union(s)
		}
		for _, s := range subtract(oldViewport, newViewport) {
			r.Union(s)
		}
	}
	return r
}

// FullInvalidationPolicy invalidates the whole new viewport on any geometry
// change.
func FullInvalidationPolicy(oldSize, newSize image.Point, oldViewport, newViewport image.Rectangle) Region {
	if oldSize == newSize && oldViewport == newViewport {
		return Region{}
	}
	return RegionOf(newViewport)
}
