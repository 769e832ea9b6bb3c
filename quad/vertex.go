package quad

import (
	"encoding/binary"
	"image"
	"math"

	"github.com/gogpu/gputypes"
)

// VertexStride is the size of one encoded vertex in bytes.
// Layout: position (vec2<f32>) + uv (vec2<f32>) + color (vec4<f32>) +
// textured (f32) = 36 bytes.
const VertexStride = 36

// VerticesPerQuad is the number of vertices emitted for one quad (two
// triangles).
const VerticesPerQuad = 6

// VertexLayout returns the vertex buffer layout matching AppendVertices.
//
//	location 0: position (vec2<f32>, clip space)
//	location 1: uv (vec2<f32>)
//	location 2: color (vec4<f32>, premultiplied)
//	location 3: textured (f32, 0 or 1)
func VertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: VertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},  // position
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},  // uv
				{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2}, // color
				{Format: gputypes.VertexFormatFloat32, Offset: 32, ShaderLocation: 3},   // textured
			},
		},
	}
}

// AppendVertices appends the six vertices of q, mapped from target pixel
// space to clip space, to dst. It reports false and leaves dst unchanged for
// quads that cannot be drawn as a single textured or solid rectangle
// (YUV video) or when target is empty.
func AppendVertices(dst []byte, q Quad, target image.Point) ([]byte, bool) {
	if target.X <= 0 || target.Y <= 0 {
		return dst, false
	}
	var (
		uv       UVRect
		col      [4]float32
		textured float32
	)
	switch q := q.(type) {
	case SolidColorQuad:
		a := float32(q.Color.A) / 255
		col = [4]float32{
			float32(q.Color.R) / 255 * a,
			float32(q.Color.G) / 255 * a,
			float32(q.Color.B) / 255 * a,
			a,
		}
	case TextureQuad:
		uv = q.UV
		col = [4]float32{1, 1, 1, 1}
		textured = 1
	default:
		return dst, false
	}

	r := q.Bounds()
	x0, y0 := toClip(r.Min, target)
	x1, y1 := toClip(r.Max, target)

	corners := [VerticesPerQuad][4]float32{
		{x0, y0, uv.U0, uv.V0},
		{x1, y0, uv.U1, uv.V0},
		{x0, y1, uv.U0, uv.V1},
		{x1, y0, uv.U1, uv.V0},
		{x1, y1, uv.U1, uv.V1},
		{x0, y1, uv.U0, uv.V1},
	}
	start := len(dst)
	dst = append(dst, make([]byte, VerticesPerQuad*VertexStride)...)
	buf := dst[start:]
	for i, c := range corners {
		writeVertex(buf[i*VertexStride:], c, col, textured)
	}
	return dst, true
}

// toClip maps a pixel position to clip space with y pointing up.
func toClip(p image.Point, target image.Point) (float32, float32) {
	return float32(p.X)/float32(target.X)*2 - 1, 1 - float32(p.Y)/float32(target.Y)*2
}

func writeVertex(buf []byte, posUV [4]float32, col [4]float32, textured float32) {
	for i, v := range posUV {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	for i, v := range col {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(textured))
}
