//go:build !nogpu

// Package gpu draws quad lists with a wgpu HAL device.
//
// QuadPipeline owns the shader, the pipeline, the samplers and the uploaded
// texture resources. Per-frame vertex buffers and bind groups live in
// FrameResources, built by Prepare and recorded into a render pass owned by
// the caller.
package gpu

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/quad"
)

// Pipeline errors.
var (
	// ErrNilPipeline is returned when operating on a nil pipeline.
	ErrNilPipeline = errors.New("gpu: quad pipeline is nil")

	// ErrNoQuads is returned by Prepare when nothing in the list can be
	// drawn.
	ErrNoQuads = errors.New("gpu: no drawable quads")

	// ErrUnknownResource is returned when a quad names a texture that was
	// never uploaded.
	ErrUnknownResource = errors.New("gpu: unknown texture resource")
)

// fenceTimeout bounds the wait for a submitted frame.
const fenceTimeout = 5 * time.Second

// TargetFormat is the color format of render targets.
const TargetFormat = gputypes.TextureFormatBGRA8Unorm

type texture struct {
	tex  hal.Texture
	view hal.TextureView
	size image.Point
}

// QuadPipeline draws solid-color and texture quads.
type QuadPipeline struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline

	linear  hal.Sampler
	nearest hal.Sampler

	// white is bound for batches without a texture.
	white    *texture
	textures map[quad.ResourceID]*texture
}

// NewQuadPipeline returns a pipeline on device and queue. GPU objects are
// created on first use.
func NewQuadPipeline(device hal.Device, queue hal.Queue) *QuadPipeline {
	return &QuadPipeline{
		device:   device,
		queue:    queue,
		textures: make(map[quad.ResourceID]*texture),
	}
}

// ensurePipeline creates the shader, layouts, samplers and render pipeline.
// Must be called with p.mu held.
func (p *QuadPipeline) ensurePipeline() error {
	if p.pipeline != nil {
		return nil
	}
	if quadShaderSource == "" {
		return fmt.Errorf("quad shader source is empty")
	}

	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "quad_shader",
		Source: hal.ShaderSource{WGSL: quadShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile quad shader: %w", err)
	}
	p.shader = shader

	// Binding 0: texture, binding 1: sampler.
	bindLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "quad_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		p.destroyPipeline()
		return fmt.Errorf("create quad bind layout: %w", err)
	}
	p.bindLayout = bindLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "quad_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		p.destroyPipeline()
		return fmt.Errorf("create quad pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	if p.linear, err = p.createSampler("quad_sampler_linear", gputypes.FilterModeLinear); err != nil {
		p.destroyPipeline()
		return err
	}
	if p.nearest, err = p.createSampler("quad_sampler_nearest", gputypes.FilterModeNearest); err != nil {
		p.destroyPipeline()
		return err
	}

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "quad_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: vertexEntryPoint,
			Buffers:    quad.VertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: fragmentEntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    TargetFormat,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.destroyPipeline()
		return fmt.Errorf("create quad pipeline: %w", err)
	}
	p.pipeline = pipeline

	white := image.NewRGBA(image.Rect(0, 0, 1, 1))
	white.Pix[0], white.Pix[1], white.Pix[2], white.Pix[3] = 0xff, 0xff, 0xff, 0xff
	if p.white, err = p.createTexture("quad_white", white); err != nil {
		p.destroyPipeline()
		return err
	}
	return nil
}

func (p *QuadPipeline) createSampler(label string, filter gputypes.FilterMode) (hal.Sampler, error) {
	s, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        label,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: filter,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return s, nil
}

// createTexture uploads img into a new sampled texture.
func (p *QuadPipeline) createTexture(label string, img *image.RGBA) (*texture, error) {
	size := img.Bounds().Size()
	w, h := uint32(size.X), uint32(size.Y) //nolint:gosec // image sizes fit uint32
	tex, err := p.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %s: %w", label, err)
	}
	view, err := p.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		p.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create texture view %s: %w", label, err)
	}

	p.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		tightPixels(img),
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	return &texture{tex: tex, view: view, size: size}, nil
}

func (p *QuadPipeline) destroyTexture(t *texture) {
	if t == nil {
		return
	}
	p.device.DestroyTextureView(t.view)
	p.device.DestroyTexture(t.tex)
}

// tightPixels returns the pixels of img without row padding.
func tightPixels(img *image.RGBA) []byte {
	b := img.Bounds()
	row := b.Dx() * 4
	if img.Stride == row && img.PixOffset(b.Min.X, b.Min.Y) == 0 {
		return img.Pix[:row*b.Dy()]
	}
	out := make([]byte, 0, row*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		out = append(out, img.Pix[off:off+row]...)
	}
	return out
}

// UploadTexture makes img available to texture quads naming id, replacing
// any previous texture with that id.
func (p *QuadPipeline) UploadTexture(id quad.ResourceID, img *image.RGBA) error {
	if p == nil {
		return ErrNilPipeline
	}
	if id == 0 || img == nil || img.Bounds().Empty() {
		return fmt.Errorf("gpu: invalid texture upload for resource %d", id)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	t, err := p.createTexture(fmt.Sprintf("quad_resource_%d", id), img)
	if err != nil {
		return err
	}
	p.destroyTexture(p.textures[id])
	p.textures[id] = t
	return nil
}

// RemoveTexture releases the texture named id.
func (p *QuadPipeline) RemoveTexture(id quad.ResourceID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.textures[id]; ok {
		p.destroyTexture(t)
		delete(p.textures, id)
	}
}

// HasTexture reports whether a texture was uploaded for id.
func (p *QuadPipeline) HasTexture(id quad.ResourceID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.textures[id]
	return ok
}

// FrameResources holds the per-frame GPU objects for one quad list.
type FrameResources struct {
	vertBuf    hal.Buffer
	bindGroups []hal.BindGroup
	batches    []Batch

	// Skipped counts quads the pipeline cannot draw.
	Skipped int
}

// Batches returns the draw batches of the frame.
func (f *FrameResources) Batches() []Batch { return f.batches }

// Prepare uploads the vertices of quads for a target of the given size and
// creates one bind group per batch.
func (p *QuadPipeline) Prepare(quads []quad.Quad, target image.Point) (*FrameResources, error) {
	if p == nil {
		return nil, ErrNilPipeline
	}
	vertices, batches, skipped := BuildBatches(quads, target)
	if skipped > 0 {
		compositor.Logger().Debug("gpu: quads skipped", "count", skipped)
	}
	if len(batches) == 0 {
		return nil, ErrNoQuads
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensurePipeline(); err != nil {
		return nil, err
	}

	f := &FrameResources{batches: batches, Skipped: skipped}
	buf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "quad_vertices",
		Size:  uint64(len(vertices)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create quad vertex buffer: %w", err)
	}
	p.queue.WriteBuffer(buf, 0, vertices)
	f.vertBuf = buf

	for i, b := range batches {
		tex := p.white
		if b.Resource != 0 {
			t, ok := p.textures[b.Resource]
			if !ok {
				p.releaseLocked(f)
				return nil, fmt.Errorf("%w: %d", ErrUnknownResource, b.Resource)
			}
			tex = t
		}
		sampler := p.linear
		if b.Nearest {
			sampler = p.nearest
		}
		bg, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  fmt.Sprintf("quad_bind_%d", i),
			Layout: p.bindLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: tex.view.NativeHandle()}},
				{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: sampler.NativeHandle()}},
			},
		})
		if err != nil {
			p.releaseLocked(f)
			return nil, fmt.Errorf("create quad bind group: %w", err)
		}
		f.bindGroups = append(f.bindGroups, bg)
	}
	return f, nil
}

// RecordDraws records the draws of f into a render pass whose color target
// has TargetFormat.
func (p *QuadPipeline) RecordDraws(rp hal.RenderPassEncoder, f *FrameResources) {
	if f == nil || len(f.batches) == 0 || p.pipeline == nil {
		return
	}
	rp.SetPipeline(p.pipeline)
	rp.SetVertexBuffer(0, f.vertBuf, 0)
	for i, b := range f.batches {
		rp.SetBindGroup(0, f.bindGroups[i], nil)
		rp.Draw(b.Count, 1, b.First, 0)
	}
}

// Render draws quads into view, clearing it first, and waits for the GPU.
func (p *QuadPipeline) Render(view hal.TextureView, quads []quad.Quad, target image.Point) error {
	f, err := p.Prepare(quads, target)
	if err != nil {
		return err
	}
	defer p.Release(f)

	encoder, err := p.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "quad_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("quad_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "quad_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	p.RecordDraws(rp, f)
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer p.device.FreeCommandBuffer(cmdBuf)

	fence, err := p.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer p.device.DestroyFence(fence)

	if err := p.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := p.device.Wait(fence, 1, fenceTimeout)
	if err != nil || !ok {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", ok, err)
	}
	return nil
}

// Release destroys the per-frame objects of f.
func (p *QuadPipeline) Release(f *FrameResources) {
	if f == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked(f)
}

func (p *QuadPipeline) releaseLocked(f *FrameResources) {
	for _, bg := range f.bindGroups {
		p.device.DestroyBindGroup(bg)
	}
	f.bindGroups = nil
	if f.vertBuf != nil {
		p.device.DestroyBuffer(f.vertBuf)
		f.vertBuf = nil
	}
	f.batches = nil
}

// Destroy releases every GPU object held by the pipeline. It is safe to
// call more than once.
func (p *QuadPipeline) Destroy() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, t := range p.textures {
		p.destroyTexture(t)
		delete(p.textures, id)
	}
	p.destroyPipeline()
}

// destroyPipeline releases pipeline objects in reverse creation order.
func (p *QuadPipeline) destroyPipeline() {
	if p.device == nil {
		return
	}
	if p.white != nil {
		p.destroyTexture(p.white)
		p.white = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.nearest != nil {
		p.device.DestroySampler(p.nearest)
		p.nearest = nil
	}
	if p.linear != nil {
		p.device.DestroySampler(p.linear)
		p.linear = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
