package framegraph

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/framegraph/backend/recording"
	"github.com/gogpu/framegraph/pool"
	"github.com/gogpu/framegraph/rhi"
)

var testBufferDesc = rhi.BufferDesc{
	Size:  256,
	Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
}

func testTextureDesc(w, h uint32) rhi.TextureDesc {
	return rhi.Texture2D(w, h, gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageTextureBinding)
}

// newTestGraph returns a graph on a fresh recording device.
func newTestGraph(t *testing.T, opts ...GraphOption) (*Graph, *recording.Device, *pool.Pools) {
	t.Helper()
	dev := recording.NewDevice()
	pools := pool.New(dev)
	return NewGraph(dev, pools, opts...), dev, pools
}

// addProducer adds a compute pass that creates a buffer and writes it.
// It returns the written handle.
func addProducer(t *testing.T, g *Graph, name string) Handle {
	t.Helper()
	var out Handle
	err := g.AddFuncPass(name, PassCompute, func(b *Builder) error {
		h := b.CreateBuffer(name+".out", testBufferDesc)
		var err error
		out, err = b.Write(h)
		return err
	}, nil)
	require.NoError(t, err)
	return out
}

// addConsumer adds a compute pass reading every handle in in.
func addConsumer(t *testing.T, g *Graph, name string, sideEffect bool, in ...Handle) {
	t.Helper()
	err := g.AddFuncPass(name, PassCompute, func(b *Builder) error {
		if sideEffect {
			b.SideEffect()
		}
		for _, h := range in {
			if _, err := b.Read(h); err != nil {
				return err
			}
		}
		return nil
	}, nil)
	require.NoError(t, err)
}

func passActive(t *testing.T, g *Graph, name string) bool {
	t.Helper()
	for _, p := range g.Passes() {
		if p.Name == name {
			return p.Active
		}
	}
	t.Fatalf("no pass %q", name)
	return false
}

func resourceActive(t *testing.T, g *Graph, name string) bool {
	t.Helper()
	for _, r := range g.Resources() {
		if r.Name == name {
			return r.Active
		}
	}
	t.Fatalf("no resource %q", name)
	return false
}
