package main

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/rhi"
)

// swapchain stands in for a window surface: one externally owned
// backbuffer imported into every frame.
type swapchain struct {
	width, height uint32
	backbuffer    rhi.Texture
}

func newSwapchain(dev rhi.Device, w, h uint32) (*swapchain, error) {
	tex, err := dev.CreateTexture(rhi.Texture2D(w, h, gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureUsageRenderAttachment))
	if err != nil {
		return nil, err
	}
	return &swapchain{width: w, height: h, backbuffer: tex}, nil
}

func (sc *swapchain) destroy(dev rhi.Device) {
	dev.DestroyTexture(sc.backbuffer)
}

func (sc *swapchain) target(format gputypes.TextureFormat, usage gputypes.TextureUsage) rhi.TextureDesc {
	return rhi.Texture2D(sc.width, sc.height, format, usage)
}

type gbuffer struct {
	depth, albedo, normal framegraph.Handle
}

// build describes one deferred frame:
//
//	depth-prepass -> gbuffer -> lighting -> post -> backbuffer
//
// plus an ambient occlusion debug pass whose output nothing reads, which
// the compiler culls.
func (sc *swapchain) build(g *framegraph.Graph) error {
	const (
		gbufferUsage = gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding
		storageUsage = gputypes.TextureUsageStorageBinding | gputypes.TextureUsageTextureBinding
	)

	var depth framegraph.Handle
	if err := g.AddFuncPass("depth-prepass", framegraph.PassGraphics, func(b *framegraph.Builder) error {
		var err error
		depth, err = b.DepthStencilAttachment(
			b.CreateTexture("depth", sc.target(gputypes.TextureFormatDepth24PlusStencil8, gbufferUsage)),
			rhi.DefaultDepthStencilOps())
		return err
	}, drawFullscreen); err != nil {
		return err
	}

	gb, err := framegraph.AddCallbackPass(g, "gbuffer", framegraph.PassGraphics,
		func(b *framegraph.Builder, d *gbuffer) error {
			ops := rhi.DefaultDepthStencilOps()
			ops.ReadOnly = true
			var err error
			if d.depth, err = b.DepthStencilAttachment(depth, ops); err != nil {
				return err
			}
			if d.albedo, err = b.ColorAttachment(
				b.CreateTexture("albedo", sc.target(gputypes.TextureFormatRGBA8Unorm, gbufferUsage)),
				rhi.DefaultColorOps()); err != nil {
				return err
			}
			d.normal, err = b.ColorAttachment(
				b.CreateTexture("normal", sc.target(gputypes.TextureFormatRGBA8Unorm, gbufferUsage)),
				rhi.DefaultColorOps())
			return err
		},
		func(pc *framegraph.PassContext, _ *gbuffer) error {
			return drawFullscreen(pc)
		})
	if err != nil {
		return err
	}

	if err := g.AddFuncPass("ssao-debug", framegraph.PassCompute, func(b *framegraph.Builder) error {
		if _, err := b.Read(gb.normal); err != nil {
			return err
		}
		_, err := b.Write(b.CreateTexture("ao", sc.target(gputypes.TextureFormatRGBA8Unorm, storageUsage)))
		return err
	}, sc.dispatch); err != nil {
		return err
	}

	var hdr framegraph.Handle
	if err := g.AddFuncPass("lighting", framegraph.PassCompute, func(b *framegraph.Builder) error {
		for _, h := range []framegraph.Handle{gb.albedo, gb.normal, gb.depth} {
			if _, err := b.Read(h); err != nil {
				return err
			}
		}
		var err error
		hdr, err = b.Write(b.CreateTexture("hdr", sc.target(gputypes.TextureFormatRGBA8Unorm, storageUsage)))
		return err
	}, sc.dispatch); err != nil {
		return err
	}

	backbuffer := g.ImportTexture("backbuffer", sc.backbuffer, rhi.StateUndefined)
	if err := g.AddFuncPass("post", framegraph.PassGraphics, func(b *framegraph.Builder) error {
		if _, err := b.Read(hdr); err != nil {
			return err
		}
		var err error
		backbuffer, err = b.ColorAttachment(backbuffer, rhi.DefaultColorOps())
		return err
	}, drawFullscreen); err != nil {
		return err
	}

	if err := g.MarkUsed(backbuffer); err != nil {
		return err
	}
	if err := g.SetFinalState(backbuffer, rhi.StatePresent); err != nil {
		return err
	}
	return g.Err()
}

func drawFullscreen(pc *framegraph.PassContext) error {
	pc.GraphicsEncoder().Draw(3, 1, 0, 0)
	return nil
}

func (sc *swapchain) dispatch(pc *framegraph.PassContext) error {
	pc.ComputeEncoder().Dispatch((sc.width+7)/8, (sc.height+7)/8, 1)
	return nil
}
