//go:build !nogpu

package gpu

import (
	"image"

	"github.com/gogpu/compositor/quad"
)

// Batch is a run of consecutive vertices drawn with one texture binding.
// Resource zero means the batch holds only solid-color quads.
type Batch struct {
	Resource quad.ResourceID
	Nearest  bool
	First    uint32 // first vertex
	Count    uint32 // vertex count
}

// BuildBatches encodes quads into one vertex buffer and splits it into
// batches that share a texture and filter. Solid-color quads never break a
// batch since the shader ignores the texture for them. Quads that cannot be
// drawn by the quad pipeline (YUV video) are counted in skipped.
func BuildBatches(quads []quad.Quad, target image.Point) (vertices []byte, batches []Batch, skipped int) {
	for _, q := range quads {
		var ok bool
		vertices, ok = quad.AppendVertices(vertices, q, target)
		if !ok {
			skipped++
			continue
		}

		var (
			res     quad.ResourceID
			nearest bool
		)
		if tq, isTex := q.(quad.TextureQuad); isTex {
			res, nearest = tq.Resource, tq.NearestNeighbor
		}

		if n := len(batches); n > 0 {
			last := &batches[n-1]
			switch {
			case res == 0:
				last.Count += quad.VerticesPerQuad
				continue
			case last.Resource == 0:
				last.Resource, last.Nearest = res, nearest
				last.Count += quad.VerticesPerQuad
				continue
			case last.Resource == res && last.Nearest == nearest:
				last.Count += quad.VerticesPerQuad
				continue
			}
		}
		first := uint32(len(vertices)/quad.VertexStride) - quad.VerticesPerQuad //nolint:gosec // vertex count fits uint32
		batches = append(batches, Batch{
			Resource: res,
			Nearest:  nearest,
			First:    first,
			Count:    quad.VerticesPerQuad,
		})
	}
	return vertices, batches, skipped
}
