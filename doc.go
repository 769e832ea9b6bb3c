// Package compositor turns a stream of recorded drawing operations into
// cacheable paint chunks and GPU draw quads.
//
// # Overview
//
// The pipeline runs in two strict phases per frame:
//
//	drawing calls -> display items -> paint chunker -> paint chunks
//	              -> recording source (invalidation, item reuse)
//	              -> quad emitters (nine-patch, picture, video)
//	              -> consumer (software raster or GPU pipeline)
//
// The producer phase (recording and chunking) finishes before the artifact
// and quad list are handed to a consumer. After handoff the producer never
// mutates the handed-off data; see package pipeline.
//
// # Packages
//
//   - paint: display items, property trees, Chunker, Controller, Artifact, layerization
//   - recording: Source (recording source) and the PaintClient contract
//   - quad: draw quad sum type and vertex encoding
//   - layers: NinePatchLayer, PictureLayer, VideoLayer, SolidColorClient
//   - raster: software consumer writing into *image.RGBA
//   - gpu: wgpu HAL render pipeline for quads
//   - pipeline: frame handoff between producer and consumer goroutines
//   - config: TOML configuration for tools
//
// # Contract violations
//
// Misuse such as decrementing an empty chunker is a programmer error. Builds
// with the ccdebug tag panic on it; release builds log a warning through
// [Logger] and continue best-effort.
//
// # Coordinate System
//
// Layer space is integer pixels with the origin at the top-left, X growing
// right and Y growing down. Texture coordinates are normalized to [0, 1].
package compositor

// Version is the current version of the library.
const Version = "0.1.0"
