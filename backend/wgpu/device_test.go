// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/rhi"
)

// openNoop opens a noop device closed at the end of the test.
func openNoop(t *testing.T) *Device {
	t.Helper()
	d, err := OpenNoop()
	if err != nil {
		t.Fatalf("OpenNoop: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestRegisteredAsNoop(t *testing.T) {
	dev, err := rhi.Open("noop")
	if err != nil {
		t.Fatalf("rhi.Open: %v", err)
	}
	d, ok := dev.(*Device)
	if !ok {
		t.Fatalf("rhi.Open returned %T", dev)
	}
	d.Close()
	d.Close() // idempotent
}

func TestCreateDestroyBuffer(t *testing.T) {
	d := openNoop(t)

	desc := rhi.BufferDesc{Size: 256, Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst}
	b, err := d.CreateBuffer(desc)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if b.Desc() != desc {
		t.Errorf("Desc() = %v, want %v", b.Desc(), desc)
	}
	if b.Label() != desc.String() {
		t.Errorf("Label() = %q, want %q", b.Label(), desc.String())
	}
	if b.(*Buffer).Raw() == nil {
		t.Error("Raw() is nil")
	}

	d.DestroyBuffer(b)
	if b.(*Buffer).Raw() != nil {
		t.Error("Raw() not cleared after destroy")
	}
	d.DestroyBuffer(b) // second destroy is ignored
}

func TestCreateBufferInvalid(t *testing.T) {
	d := openNoop(t)
	if _, err := d.CreateBuffer(rhi.BufferDesc{}); !errors.Is(err, rhi.ErrInvalidDescriptor) {
		t.Errorf("CreateBuffer(zero) error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestCreateDestroyTexture(t *testing.T) {
	d := openNoop(t)

	desc := rhi.Texture2D(64, 32, gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageTextureBinding)
	tex, err := d.CreateTexture(desc)
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	wt := tex.(*Texture)
	if wt.Raw() == nil || wt.View() == nil {
		t.Fatal("texture or default view missing")
	}
	if tex.Desc() != desc {
		t.Errorf("Desc() = %v, want %v", tex.Desc(), desc)
	}

	d.DestroyTexture(tex)
	if wt.Raw() != nil || wt.View() != nil {
		t.Error("texture not cleared after destroy")
	}

	if _, err := d.CreateTexture(rhi.TextureDesc{Width: 4, Height: 4}); !errors.Is(err, rhi.ErrInvalidDescriptor) {
		t.Errorf("CreateTexture(undefined format) error = %v", err)
	}
}

func TestQueueLookup(t *testing.T) {
	d := openNoop(t)

	for _, typ := range []rhi.QueueType{rhi.QueueGraphics, rhi.QueueCompute, rhi.QueueTransfer} {
		q, err := d.Queue(typ, 0)
		if err != nil {
			t.Fatalf("Queue(%v, 0): %v", typ, err)
		}
		if q != rhi.Queue(d.queue) {
			t.Errorf("Queue(%v, 0) is not the device queue", typ)
		}
	}
	if _, err := d.Queue(rhi.QueueGraphics, 1); !errors.Is(err, rhi.ErrNoQueue) {
		t.Errorf("Queue(graphics, 1) error = %v, want ErrNoQueue", err)
	}
	if _, err := d.Queue(rhi.QueueType(9), 0); !errors.Is(err, rhi.ErrNoQueue) {
		t.Errorf("Queue(9, 0) error = %v, want ErrNoQueue", err)
	}
}

func TestEncoderPassScoping(t *testing.T) {
	d := openNoop(t)

	enc, err := d.CreateCommandEncoder("frame")
	if err != nil {
		t.Fatalf("CreateCommandEncoder: %v", err)
	}
	cp, err := enc.BeginComputePass("cull")
	if err != nil {
		t.Fatalf("BeginComputePass: %v", err)
	}
	if _, err := enc.BeginCopyPass("copy"); !errors.Is(err, rhi.ErrPassOpen) {
		t.Errorf("nested BeginCopyPass error = %v, want ErrPassOpen", err)
	}
	if _, err := enc.Finish(); !errors.Is(err, rhi.ErrPassOpen) {
		t.Errorf("Finish with open pass error = %v, want ErrPassOpen", err)
	}
	cp.Dispatch(4, 4, 1)
	if err := cp.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := cp.End(); err == nil {
		t.Error("second End succeeded")
	}

	cmd, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	cmd.Release()
	cmd.Release()

	if _, err := enc.BeginComputePass("late"); !errors.Is(err, ErrEncoderClosed) {
		t.Errorf("BeginComputePass after Finish error = %v, want ErrEncoderClosed", err)
	}
}

func TestEncoderGraphicsPass(t *testing.T) {
	d := openNoop(t)

	color, err := d.CreateTexture(rhi.Texture2D(16, 16, gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureUsageRenderAttachment))
	if err != nil {
		t.Fatal(err)
	}
	depth, err := d.CreateTexture(rhi.Texture2D(16, 16, gputypes.TextureFormatDepth24PlusStencil8,
		gputypes.TextureUsageRenderAttachment))
	if err != nil {
		t.Fatal(err)
	}
	vb, err := d.CreateBuffer(rhi.BufferDesc{Size: 64, Usage: gputypes.BufferUsageVertex})
	if err != nil {
		t.Fatal(err)
	}
	defer d.DestroyTexture(color)
	defer d.DestroyTexture(depth)
	defer d.DestroyBuffer(vb)

	enc, err := d.CreateCommandEncoder("frame")
	if err != nil {
		t.Fatal(err)
	}
	enc.ResourceBarrier([]rhi.Barrier{
		{Texture: color, From: rhi.StateUndefined, To: rhi.StateRenderTarget},
		{Buffer: vb, From: rhi.StateUndefined, To: rhi.StateVertex},
	})
	gp, err := enc.BeginGraphicsPass(&rhi.GraphicsPassBeginInfo{
		Label:        "scene",
		Colors:       []rhi.ColorAttachment{{Texture: color, Ops: rhi.DefaultColorOps()}},
		DepthStencil: &rhi.DepthStencilAttachment{Texture: depth, Ops: rhi.DefaultDepthStencilOps()},
	})
	if err != nil {
		t.Fatalf("BeginGraphicsPass: %v", err)
	}
	gp.SetVertexBuffer(0, vb, 0)
	gp.Draw(3, 1, 0, 0)
	if err := gp.End(); err != nil {
		t.Fatal(err)
	}
	cmd, err := enc.Finish()
	if err != nil {
		t.Fatal(err)
	}
	defer cmd.Release()
}

// foreignTexture is an rhi.Texture from some other backend.
type foreignTexture struct{}

func (foreignTexture) Desc() rhi.TextureDesc { return rhi.TextureDesc{} }
func (foreignTexture) Label() string         { return "foreign" }

func TestGraphicsPassForeignAttachment(t *testing.T) {
	d := openNoop(t)

	enc, err := d.CreateCommandEncoder("frame")
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Discard()

	_, err = enc.BeginGraphicsPass(&rhi.GraphicsPassBeginInfo{
		Colors: []rhi.ColorAttachment{{Texture: foreignTexture{}}},
	})
	if !errors.Is(err, ErrForeignResource) {
		t.Fatalf("error = %v, want ErrForeignResource", err)
	}
	// The failed begin leaves no pass open.
	cp, err := enc.BeginCopyPass("copy")
	if err != nil {
		t.Fatalf("BeginCopyPass: %v", err)
	}
	_ = cp.End()
}

func TestQueueWriteBufferBounds(t *testing.T) {
	d := openNoop(t)

	b, err := d.CreateBuffer(rhi.BufferDesc{Size: 16, Usage: gputypes.BufferUsageCopyDst})
	if err != nil {
		t.Fatal(err)
	}
	defer d.DestroyBuffer(b)

	q, _ := d.Queue(rhi.QueueTransfer, 0)
	if err := q.WriteBuffer(b, 8, make([]byte, 8)); err != nil {
		t.Errorf("in-bounds write: %v", err)
	}
	if err := q.WriteBuffer(b, 12, make([]byte, 8)); err == nil {
		t.Error("overflowing write succeeded")
	}
	if err := q.WriteBuffer(b, math.MaxUint64-1, make([]byte, 4)); err == nil {
		t.Error("write at an offset near the top of uint64 succeeded")
	}
}

func TestFenceSignaled(t *testing.T) {
	d := openNoop(t)

	f, err := d.CreateFence(true)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	defer f.Destroy()

	if !f.Signaled() {
		t.Error("fence created signaled reports unsignaled")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.Wait(ctx); err != nil {
		t.Errorf("Wait: %v", err)
	}
	f.Destroy()
}

func TestSubmitSignalsFence(t *testing.T) {
	d := openNoop(t)

	enc, err := d.CreateCommandEncoder("frame")
	if err != nil {
		t.Fatal(err)
	}
	cmd, err := enc.Finish()
	if err != nil {
		t.Fatal(err)
	}
	defer cmd.Release()

	f, err := d.CreateFence(false)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Destroy()

	q, _ := d.Queue(rhi.QueueGraphics, 0)
	if err := q.Submit([]rhi.CommandBuffer{cmd}, f); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := f.Wait(t.Context()); err != nil {
		t.Errorf("Wait: %v", err)
	}
}

// plainProvider is a gpucontext.DeviceProvider without hal access.
type plainProvider struct{}

func (plainProvider) Device() gpucontext.Device             { return nil }
func (plainProvider) Queue() gpucontext.Queue               { return nil }
func (plainProvider) Adapter() gpucontext.Adapter           { return nil }
func (plainProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }

// halProvider also exposes a hal device and queue, like a gogpu window.
type halProvider struct {
	plainProvider
	device any
	queue  any
}

func (p halProvider) HalDevice() any { return p.device }
func (p halProvider) HalQueue() any  { return p.queue }

func TestNewFromProvider(t *testing.T) {
	owner := openNoop(t)

	d, err := NewFromProvider(halProvider{device: owner.device, queue: owner.queue.raw})
	if err != nil {
		t.Fatalf("NewFromProvider: %v", err)
	}
	if d.HalDevice() != owner.device {
		t.Error("provider device not used")
	}
	// A shared device is not destroyed by Close.
	d.Close()
	if _, err := owner.CreateBuffer(rhi.BufferDesc{Size: 4}); err != nil {
		t.Errorf("owner device unusable after shared Close: %v", err)
	}
}

func TestNewFromProviderWithoutHAL(t *testing.T) {
	if _, err := NewFromProvider(plainProvider{}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("plain provider error = %v, want ErrNoHAL", err)
	}
	if _, err := NewFromProvider(halProvider{device: "gpu", queue: "queue"}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("wrong hal types error = %v, want ErrNoHAL", err)
	}
	var nilDevice hal.Device
	if _, err := NewFromProvider(halProvider{device: nilDevice}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("nil hal device error = %v, want ErrNoHAL", err)
	}
}

func TestLoggerFollowsFramegraph(t *testing.T) {
	orig := framegraph.Logger()
	t.Cleanup(func() {
		framegraph.SetLogger(orig)
		SetLogger(nil)
	})

	d := openNoop(t)
	r := framegraph.NewRenderer(d)
	defer r.Close()

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	framegraph.SetLogger(l)
	if slogger() != l {
		t.Error("framegraph.SetLogger did not reach the wgpu backend")
	}
}
