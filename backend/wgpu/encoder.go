// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/rhi"
)

// ErrEncoderClosed is returned when an encoder is used after Finish or
// Discard.
var ErrEncoderClosed = errors.New("wgpu: encoder already finished")

// CommandEncoder implements rhi.CommandEncoder over a hal command encoder.
type CommandEncoder struct {
	dev   *Device
	raw   hal.CommandEncoder
	label string
	open  string // label of the open pass, if any
	busy  bool
	done  bool
}

func (e *CommandEncoder) begin(label string) error {
	if e.done {
		return ErrEncoderClosed
	}
	if e.busy {
		return fmt.Errorf("%w: %q", rhi.ErrPassOpen, e.open)
	}
	e.busy, e.open = true, label
	return nil
}

func (e *CommandEncoder) end() {
	e.busy, e.open = false, ""
}

// ResourceBarrier implements rhi.CommandEncoder.
func (e *CommandEncoder) ResourceBarrier(barriers []rhi.Barrier) {
	if e.done {
		return
	}
	var textures []hal.TextureBarrier
	for _, b := range barriers {
		if b.Texture == nil {
			// buffer usage is tracked by hal
			continue
		}
		tex, ok := b.Texture.(*Texture)
		if !ok || tex.raw == nil {
			slogger().Warn("wgpu: barrier on foreign texture", "texture", b.Texture.Label())
			continue
		}
		textures = append(textures, hal.TextureBarrier{
			Texture: tex.raw,
			Usage: hal.TextureUsageTransition{
				OldUsage: b.From.TextureUsage(),
				NewUsage: b.To.TextureUsage(),
			},
		})
	}
	if len(textures) > 0 {
		e.raw.TransitionTextures(textures)
	}
}

// BeginCopyPass implements rhi.CommandEncoder. Copies are recorded on the
// command encoder itself.
func (e *CommandEncoder) BeginCopyPass(label string) (rhi.CopyPassEncoder, error) {
	if err := e.begin(label); err != nil {
		return nil, err
	}
	return &CopyPass{enc: e}, nil
}

// BeginComputePass implements rhi.CommandEncoder.
func (e *CommandEncoder) BeginComputePass(label string) (rhi.ComputePassEncoder, error) {
	if err := e.begin(label); err != nil {
		return nil, err
	}
	pass := e.raw.BeginComputePass(&hal.ComputePassDescriptor{Label: label})
	return &ComputePass{enc: e, raw: pass}, nil
}

// BeginGraphicsPass implements rhi.CommandEncoder.
func (e *CommandEncoder) BeginGraphicsPass(info *rhi.GraphicsPassBeginInfo) (rhi.GraphicsPassEncoder, error) {
	if info == nil {
		info = &rhi.GraphicsPassBeginInfo{}
	}
	desc, err := renderPassDescriptor(info)
	if err != nil {
		return nil, err
	}
	if err := e.begin(info.Label); err != nil {
		return nil, err
	}
	pass := e.raw.BeginRenderPass(desc)
	return &GraphicsPass{enc: e, raw: pass}, nil
}

func renderPassDescriptor(info *rhi.GraphicsPassBeginInfo) (*hal.RenderPassDescriptor, error) {
	desc := &hal.RenderPassDescriptor{Label: info.Label}
	for i, c := range info.Colors {
		tex, ok := c.Texture.(*Texture)
		if !ok || tex.view == nil {
			return nil, fmt.Errorf("%w: color attachment %d", ErrForeignResource, i)
		}
		desc.ColorAttachments = append(desc.ColorAttachments, hal.RenderPassColorAttachment{
			View:       tex.view,
			LoadOp:     c.Ops.Load,
			StoreOp:    c.Ops.Store,
			ClearValue: c.Ops.ClearValue,
		})
	}
	if ds := info.DepthStencil; ds != nil {
		tex, ok := ds.Texture.(*Texture)
		if !ok || tex.view == nil {
			return nil, fmt.Errorf("%w: depth-stencil attachment", ErrForeignResource)
		}
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              tex.view,
			DepthLoadOp:       ds.Ops.DepthLoad,
			DepthStoreOp:      ds.Ops.DepthStore,
			DepthClearValue:   ds.Ops.DepthClearValue,
			DepthReadOnly:     ds.Ops.ReadOnly,
			StencilLoadOp:     ds.Ops.StencilLoad,
			StencilStoreOp:    ds.Ops.StencilStore,
			StencilClearValue: ds.Ops.StencilClearValue,
			StencilReadOnly:   ds.Ops.ReadOnly,
		}
	}
	return desc, nil
}

// Finish implements rhi.CommandEncoder.
func (e *CommandEncoder) Finish() (rhi.CommandBuffer, error) {
	if e.done {
		return nil, ErrEncoderClosed
	}
	if e.busy {
		return nil, fmt.Errorf("%w: %q", rhi.ErrPassOpen, e.open)
	}
	e.done = true
	raw, err := e.raw.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("wgpu: end encoding %q: %w", e.label, err)
	}
	return &CommandBuffer{dev: e.dev, raw: raw}, nil
}

// Discard implements rhi.CommandEncoder.
func (e *CommandEncoder) Discard() {
	if e.done {
		return
	}
	e.done = true
	e.end()
	e.raw.DiscardEncoding()
	slogger().Debug("wgpu: discarded encoder", "label", e.label)
}

// CopyPass records copies directly on its command encoder.
type CopyPass struct {
	enc   *CommandEncoder
	ended bool
}

// CopyBufferToBuffer implements rhi.CopyPassEncoder.
func (p *CopyPass) CopyBufferToBuffer(src, dst rhi.Buffer, srcOffset, dstOffset, size uint64) {
	s, ok1 := src.(*Buffer)
	d, ok2 := dst.(*Buffer)
	if p.ended || !ok1 || !ok2 {
		return
	}
	p.enc.raw.CopyBufferToBuffer(s.raw, d.raw, []hal.BufferCopy{{
		SrcOffset: srcOffset,
		DstOffset: dstOffset,
		Size:      size,
	}})
}

// CopyTextureToBuffer implements rhi.CopyPassEncoder. It copies mip 0 of
// the whole texture.
func (p *CopyPass) CopyTextureToBuffer(src rhi.Texture, dst rhi.Buffer, bytesPerRow uint32) {
	s, ok1 := src.(*Texture)
	d, ok2 := dst.(*Buffer)
	if p.ended || !ok1 || !ok2 {
		return
	}
	w, h := s.desc.Width, s.desc.Height
	p.enc.raw.CopyTextureToBuffer(s.raw, d.raw, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: bytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: s.raw, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
}

// End implements rhi.CopyPassEncoder.
func (p *CopyPass) End() error {
	if p.ended {
		return errPassEnded
	}
	p.ended = true
	p.enc.end()
	return nil
}

var errPassEnded = errors.New("wgpu: pass already ended")

// ComputePass wraps a hal compute pass.
type ComputePass struct {
	enc   *CommandEncoder
	raw   hal.ComputePassEncoder
	ended bool
}

// Dispatch implements rhi.ComputePassEncoder.
func (p *ComputePass) Dispatch(x, y, z uint32) {
	if !p.ended {
		p.raw.Dispatch(x, y, z)
	}
}

// End implements rhi.ComputePassEncoder.
func (p *ComputePass) End() error {
	if p.ended {
		return errPassEnded
	}
	p.ended = true
	p.raw.End()
	p.enc.end()
	return nil
}

// GraphicsPass wraps a hal render pass.
type GraphicsPass struct {
	enc   *CommandEncoder
	raw   hal.RenderPassEncoder
	ended bool
}

// SetVertexBuffer implements rhi.GraphicsPassEncoder.
func (p *GraphicsPass) SetVertexBuffer(slot uint32, b rhi.Buffer, offset uint64) {
	buf, ok := b.(*Buffer)
	if p.ended || !ok {
		return
	}
	p.raw.SetVertexBuffer(slot, buf.raw, offset)
}

// Draw implements rhi.GraphicsPassEncoder.
func (p *GraphicsPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if !p.ended {
		p.raw.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	}
}

// End implements rhi.GraphicsPassEncoder.
func (p *GraphicsPass) End() error {
	if p.ended {
		return errPassEnded
	}
	p.ended = true
	p.raw.End()
	p.enc.end()
	return nil
}

// CommandBuffer is a finished hal command buffer.
type CommandBuffer struct {
	dev  *Device
	raw  hal.CommandBuffer
	once sync.Once
}

// Release implements rhi.CommandBuffer.
func (c *CommandBuffer) Release() {
	c.once.Do(func() {
		c.dev.device.FreeCommandBuffer(c.raw)
	})
}
