package recording

import (
	"fmt"

	"github.com/gogpu/framegraph/rhi"
)

// CommandEncoder records commands into a CommandBuffer.
type CommandEncoder struct {
	dev   *Device
	label string
	cmds  []Command
	pass  *passEncoder
	done  bool
}

func (e *CommandEncoder) record(c Command) {
	e.cmds = append(e.cmds, c)
}

func (e *CommandEncoder) begin(label string, c Command) (*passEncoder, error) {
	if e.done {
		return nil, ErrEncoderClosed
	}
	if e.pass != nil {
		return nil, fmt.Errorf("%w: %q", rhi.ErrPassOpen, e.pass.label)
	}
	e.record(c)
	e.pass = &passEncoder{enc: e, label: label}
	return e.pass, nil
}

// ResourceBarrier implements rhi.CommandEncoder.
func (e *CommandEncoder) ResourceBarrier(barriers []rhi.Barrier) {
	if e.done || len(barriers) == 0 {
		return
	}
	e.record(BarrierCommand{Barriers: append([]rhi.Barrier(nil), barriers...)})
}

// BeginCopyPass implements rhi.CommandEncoder.
func (e *CommandEncoder) BeginCopyPass(label string) (rhi.CopyPassEncoder, error) {
	p, err := e.begin(label, BeginCopyPassCommand{Label: label})
	if err != nil {
		return nil, err
	}
	return &CopyPassEncoder{p}, nil
}

// BeginComputePass implements rhi.CommandEncoder.
func (e *CommandEncoder) BeginComputePass(label string) (rhi.ComputePassEncoder, error) {
	p, err := e.begin(label, BeginComputePassCommand{Label: label})
	if err != nil {
		return nil, err
	}
	return &ComputePassEncoder{p}, nil
}

// BeginGraphicsPass implements rhi.CommandEncoder.
func (e *CommandEncoder) BeginGraphicsPass(info *rhi.GraphicsPassBeginInfo) (rhi.GraphicsPassEncoder, error) {
	if info == nil {
		info = &rhi.GraphicsPassBeginInfo{}
	}
	cp := *info
	cp.Colors = append([]rhi.ColorAttachment(nil), info.Colors...)
	p, err := e.begin(info.Label, BeginGraphicsPassCommand{Info: cp})
	if err != nil {
		return nil, err
	}
	return &GraphicsPassEncoder{p}, nil
}

// Finish implements rhi.CommandEncoder.
func (e *CommandEncoder) Finish() (rhi.CommandBuffer, error) {
	if e.done {
		return nil, ErrEncoderClosed
	}
	if e.pass != nil {
		return nil, fmt.Errorf("%w: %q", rhi.ErrPassOpen, e.pass.label)
	}
	e.done = true
	return &CommandBuffer{label: e.label, cmds: e.cmds}, nil
}

// Discard implements rhi.CommandEncoder.
func (e *CommandEncoder) Discard() {
	if e.done {
		return
	}
	e.done = true
	e.cmds = nil
	e.pass = nil
	e.dev.mu.Lock()
	e.dev.stats.EncodersDiscarded++
	e.dev.mu.Unlock()
}

type passEncoder struct {
	enc   *CommandEncoder
	label string
	ended bool
}

func (p *passEncoder) record(c Command) {
	if !p.ended {
		p.enc.record(c)
	}
}

// End closes the pass.
func (p *passEncoder) End() error {
	if p.ended {
		return ErrPassEnded
	}
	p.ended = true
	if p.enc.pass == p {
		p.enc.record(EndPassCommand{Label: p.label})
		p.enc.pass = nil
	}
	return nil
}

// CopyPassEncoder records transfer commands.
type CopyPassEncoder struct{ *passEncoder }

// CopyBufferToBuffer implements rhi.CopyPassEncoder.
func (p *CopyPassEncoder) CopyBufferToBuffer(src, dst rhi.Buffer, srcOffset, dstOffset, size uint64) {
	p.record(CopyBufferToBufferCommand{Src: src, Dst: dst, SrcOffset: srcOffset, DstOffset: dstOffset, Size: size})
}

// CopyTextureToBuffer implements rhi.CopyPassEncoder.
func (p *CopyPassEncoder) CopyTextureToBuffer(src rhi.Texture, dst rhi.Buffer, bytesPerRow uint32) {
	p.record(CopyTextureToBufferCommand{Src: src, Dst: dst, BytesPerRow: bytesPerRow})
}

// ComputePassEncoder records compute dispatches.
type ComputePassEncoder struct{ *passEncoder }

// Dispatch implements rhi.ComputePassEncoder.
func (p *ComputePassEncoder) Dispatch(x, y, z uint32) {
	p.record(DispatchCommand{X: x, Y: y, Z: z})
}

// GraphicsPassEncoder records draw commands.
type GraphicsPassEncoder struct{ *passEncoder }

// SetVertexBuffer implements rhi.GraphicsPassEncoder.
func (p *GraphicsPassEncoder) SetVertexBuffer(slot uint32, b rhi.Buffer, offset uint64) {
	p.record(SetVertexBufferCommand{Slot: slot, Buffer: b, Offset: offset})
}

// Draw implements rhi.GraphicsPassEncoder.
func (p *GraphicsPassEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.record(DrawCommand{
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		FirstVertex:   firstVertex,
		FirstInstance: firstInstance,
	})
}

// CommandBuffer is a finished recording.
type CommandBuffer struct {
	label    string
	cmds     []Command
	released bool
}

// Commands returns the recorded commands.
func (c *CommandBuffer) Commands() []Command { return c.cmds }

// Released reports whether Release was called.
func (c *CommandBuffer) Released() bool { return c.released }

// Release implements rhi.CommandBuffer.
func (c *CommandBuffer) Release() {
	c.released = true
}
