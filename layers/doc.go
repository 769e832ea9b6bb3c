// Package layers turns layer state into draw quads.
//
// Each layer type appends its quads to a quad.List in layer space:
// NinePatchLayer stretches a bordered image, PictureLayer draws the tiles
// of a recording.Source, VideoLayer draws a planar video frame.
// SolidColorClient is a recording.PaintClient that paints one color.
package layers
