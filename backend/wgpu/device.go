// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/framegraph/rhi"
)

// Errors returned by the wgpu backend.
var (
	// ErrNoHAL is returned when a provider does not expose hal types.
	ErrNoHAL = errors.New("wgpu: provider does not expose a hal device and queue")

	// ErrForeignResource is returned when a resource created by another
	// backend is passed to this one.
	ErrForeignResource = errors.New("wgpu: resource not created by a wgpu device")

	// ErrNoAdapter is returned by OpenNoop when the noop API reports no
	// adapters.
	ErrNoAdapter = errors.New("wgpu: no adapter")
)

func init() {
	rhi.Register("noop", func() (rhi.Device, error) {
		return OpenNoop()
	})
}

// Device implements rhi.Device over a hal device and queue.
type Device struct {
	device hal.Device
	queue  *Queue

	// owned resources, released by Close
	instance hal.Instance
	owned    bool

	closeOnce sync.Once
}

// New wraps a hal device and queue owned by the caller. Close does not
// destroy them.
func New(device hal.Device, queue hal.Queue) *Device {
	d := &Device{device: device}
	d.queue = &Queue{dev: d, raw: queue}
	return d
}

// NewFromProvider wraps the hal device and queue of a host application,
// such as a gogpu window. The provider must implement HalDevice() any and
// HalQueue() any returning a hal.Device and a hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := any(provider).(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNoHAL, hp.HalQueue())
	}
	slogger().Info("wgpu: using shared device from provider")
	return New(device, queue), nil
}

// OpenNoop opens a device on the hal noop adapter. The device owns the
// instance and must be closed.
func OpenNoop() (*Device, error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("wgpu: create noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open noop adapter: %w", err)
	}

	d := New(open.Device, open.Queue)
	d.instance = instance
	d.owned = true
	slogger().Debug("wgpu: opened noop device")
	return d, nil
}

// HalDevice returns the wrapped hal device.
func (d *Device) HalDevice() hal.Device { return d.device }

// Close destroys the device and instance if OpenNoop created them. It is
// a no-op for devices wrapped with New.
func (d *Device) Close() {
	d.closeOnce.Do(func() {
		if !d.owned {
			return
		}
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	})
}

// Buffer is a hal buffer with its descriptor.
type Buffer struct {
	raw   hal.Buffer
	desc  rhi.BufferDesc
	label string
}

// Desc implements rhi.Buffer.
func (b *Buffer) Desc() rhi.BufferDesc { return b.desc }

// Label implements rhi.Buffer.
func (b *Buffer) Label() string { return b.label }

// Raw returns the hal buffer.
func (b *Buffer) Raw() hal.Buffer { return b.raw }

// Texture is a hal texture with its default view.
type Texture struct {
	raw   hal.Texture
	view  hal.TextureView
	desc  rhi.TextureDesc
	label string
}

// Desc implements rhi.Texture.
func (t *Texture) Desc() rhi.TextureDesc { return t.desc }

// Label implements rhi.Texture.
func (t *Texture) Label() string { return t.label }

// Raw returns the hal texture.
func (t *Texture) Raw() hal.Texture { return t.raw }

// View returns the default view of the texture.
func (t *Texture) View() hal.TextureView { return t.view }

// CreateBuffer implements rhi.Device.
func (d *Device) CreateBuffer(desc rhi.BufferDesc) (rhi.Buffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	label := desc.String()
	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s: %w", label, err)
	}
	return &Buffer{raw: raw, desc: desc, label: label}, nil
}

// CreateTexture implements rhi.Device.
func (d *Device) CreateTexture(desc rhi.TextureDesc) (rhi.Texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	label := desc.String()
	raw, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: max(desc.DepthOrArrayLayers, 1),
		},
		MipLevelCount: max(desc.MipLevelCount, 1),
		SampleCount:   max(desc.SampleCount, 1),
		Dimension:     desc.Dimension,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s: %w", label, err)
	}

	view, err := d.device.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Label: label + "_view",
	})
	if err != nil {
		d.device.DestroyTexture(raw)
		return nil, fmt.Errorf("wgpu: create view of %s: %w", label, err)
	}
	return &Texture{raw: raw, view: view, desc: desc, label: label}, nil
}

// DestroyBuffer implements rhi.Device.
func (d *Device) DestroyBuffer(b rhi.Buffer) {
	buf, ok := b.(*Buffer)
	if !ok || buf.raw == nil {
		return
	}
	d.device.DestroyBuffer(buf.raw)
	buf.raw = nil
}

// DestroyTexture implements rhi.Device.
func (d *Device) DestroyTexture(t rhi.Texture) {
	tex, ok := t.(*Texture)
	if !ok || tex.raw == nil {
		return
	}
	if tex.view != nil {
		d.device.DestroyTextureView(tex.view)
		tex.view = nil
	}
	d.device.DestroyTexture(tex.raw)
	tex.raw = nil
}

// CreateCommandEncoder implements rhi.Device.
func (d *Device) CreateCommandEncoder(label string) (rhi.CommandEncoder, error) {
	raw, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := raw.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	return &CommandEncoder{dev: d, raw: raw, label: label}, nil
}

// Queue implements rhi.Device. WebGPU has one queue, returned for every
// queue type at index 0.
func (d *Device) Queue(typ rhi.QueueType, index int) (rhi.Queue, error) {
	switch typ {
	case rhi.QueueGraphics, rhi.QueueCompute, rhi.QueueTransfer:
	default:
		return nil, fmt.Errorf("%w: %v[%d]", rhi.ErrNoQueue, typ, index)
	}
	if index != 0 {
		return nil, fmt.Errorf("%w: %v[%d]", rhi.ErrNoQueue, typ, index)
	}
	return d.queue, nil
}

// CreateFence implements rhi.Device. A signaled fence is created by
// submitting an empty batch with it.
func (d *Device) CreateFence(signaled bool) (rhi.Fence, error) {
	raw, err := d.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}
	f := &Fence{dev: d, raw: raw}
	if signaled {
		if err := d.queue.raw.Submit(nil, raw, fenceValue); err != nil {
			d.device.DestroyFence(raw)
			return nil, fmt.Errorf("wgpu: signal fence: %w", err)
		}
	}
	return f, nil
}

var _ rhi.Device = (*Device)(nil)
