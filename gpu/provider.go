//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/quad"
)

// NewFromDeviceProvider returns a pipeline on the device shared by an
// application (for example gogpu). The provider must also implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
func NewFromDeviceProvider(provider gpucontext.DeviceProvider) (*QuadPipeline, error) {
	p := &QuadPipeline{textures: make(map[quad.ResourceID]*texture)}
	if err := p.SetDeviceProvider(provider); err != nil {
		return nil, err
	}
	return p, nil
}

// SetDeviceProvider switches the pipeline to the device of provider. All
// GPU objects, uploaded textures included, are released and must be
// uploaded again.
func (p *QuadPipeline) SetDeviceProvider(provider any) error {
	device, queue, err := halFromProvider(provider)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for id, t := range p.textures {
		p.destroyTexture(t)
		delete(p.textures, id)
	}
	p.destroyPipeline()
	p.device = device
	p.queue = queue

	compositor.Logger().Info("gpu: switched to shared device")
	return nil
}

func halFromProvider(provider any) (hal.Device, hal.Queue, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, nil, fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil, fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}
	return device, queue, nil
}
