package framegraph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/framegraph/rhi"
)

func TestWriteBumpsVersion(t *testing.T) {
	g, _, _ := newTestGraph(t)

	var h0, h1, h2 Handle
	err := g.AddFuncPass("p0", PassCompute, func(b *Builder) error {
		h0 = b.CreateBuffer("buf", testBufferDesc)
		var err error
		if h1, err = b.Write(h0); err != nil {
			return err
		}
		h2, err = b.Write(h1)
		return err
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, uint16(0), h0.Version())
	assert.Equal(t, h0.Index(), h1.Index())
	assert.Equal(t, h0.Version()+1, h1.Version())
	assert.Equal(t, h1.Version()+1, h2.Version())

	info, ok := g.Resource(h0)
	require.True(t, ok)
	assert.Equal(t, h2, info.Handle)
}

func TestReadIsTransparent(t *testing.T) {
	g, _, _ := newTestGraph(t)
	h := addProducer(t, g, "p0")

	var got Handle
	err := g.AddFuncPass("p1", PassCompute, func(b *Builder) error {
		var err error
		got, err = b.Read(h)
		return err
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, h, got)
	info, _ := g.Resource(h)
	assert.Equal(t, h, info.Handle, "read must not change the stored version")
}

func TestReadOutOfRangeHandle(t *testing.T) {
	g, _, _ := newTestGraph(t)
	h := addProducer(t, g, "p0")

	before := g.Resources()
	edges := len(g.edges)

	bad := NewHandle(uint16(len(before)+3), 0)
	var readErr error
	err := g.AddFuncPass("p1", PassCompute, func(b *Builder) error {
		_, readErr = b.Read(bad)
		return readErr
	}, nil)

	require.ErrorIs(t, readErr, ErrInvalidHandle)
	require.ErrorIs(t, err, ErrInvalidHandle)
	assert.Equal(t, before, g.Resources(), "registry must not change")
	assert.Equal(t, edges, len(g.edges), "no edge may be recorded")
	assert.Len(t, g.passes, 1, "failed pass must be dropped")

	info, _ := g.Resource(h)
	assert.Equal(t, h, info.Handle)
}

func TestInvalidHandles(t *testing.T) {
	tests := []struct {
		name string
		op   func(b *Builder, h Handle) (Handle, error)
		h    Handle
		want error
	}{
		{"read sentinel", (*Builder).Read, InvalidHandle, ErrInvalidHandle},
		{"write sentinel", (*Builder).Write, InvalidHandle, ErrInvalidHandle},
		{"write out of range", (*Builder).Write, NewHandle(9, 0), ErrInvalidHandle},
		{"read future version", (*Builder).Read, NewHandle(0, 5), ErrInvalidHandle},
		{"read stale version", (*Builder).Read, NewHandle(0, 0), ErrStaleHandle},
		{"write stale version", (*Builder).Write, NewHandle(0, 0), ErrStaleHandle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _, _ := newTestGraph(t)
			addProducer(t, g, "p0") // resource 0 now at version 1

			var opErr error
			err := g.AddFuncPass("p1", PassCompute, func(b *Builder) error {
				var out Handle
				out, opErr = tt.op(b, tt.h)
				assert.Equal(t, InvalidHandle, out)
				return opErr
			}, nil)

			assert.ErrorIs(t, opErr, tt.want)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBuildErrorIsSticky(t *testing.T) {
	g, _, _ := newTestGraph(t)

	err := g.AddFuncPass("bad", PassCompute, func(b *Builder) error {
		_, err := b.Read(NewHandle(42, 0))
		return err
	}, nil)
	require.ErrorIs(t, err, ErrInvalidHandle)

	setupRan := false
	err = g.AddFuncPass("later", PassCompute, func(*Builder) error {
		setupRan = true
		return nil
	}, nil)
	assert.ErrorIs(t, err, ErrInvalidHandle)
	assert.False(t, setupRan, "setup must not run on a failed graph")

	_, err = g.Compile()
	assert.ErrorIs(t, err, ErrInvalidHandle)
	assert.ErrorIs(t, g.Err(), ErrInvalidHandle)
}

func TestBuilderErrorIgnoredBySetup(t *testing.T) {
	g, _, _ := newTestGraph(t)

	err := g.AddFuncPass("careless", PassCompute, func(b *Builder) error {
		_, _ = b.Write(InvalidHandle)
		return nil
	}, nil)
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestSetupErrorWrapped(t *testing.T) {
	g, _, _ := newTestGraph(t)
	boom := assert.AnError

	err := g.AddFuncPass("p", PassCopy, func(*Builder) error { return boom }, nil)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `"p"`)
}

func TestFailedSetupRollsBack(t *testing.T) {
	g, _, _ := newTestGraph(t)
	h := addProducer(t, g, "p0")

	passes, resources, edges := g.Passes(), g.Resources(), len(g.edges)
	err := g.AddFuncPass("half", PassCompute, func(b *Builder) error {
		if _, err := b.Read(h); err != nil {
			return err
		}
		if _, err := b.Write(h); err != nil {
			return err
		}
		b.CreateBuffer("scratch", testBufferDesc)
		return assert.AnError
	}, nil)
	require.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, passes, g.Passes())
	assert.Equal(t, resources, g.Resources())
	assert.Equal(t, edges, len(g.edges))
	assert.Len(t, g.passIn, len(g.passes))
	assert.Len(t, g.resIn, len(g.resources))

	idx := int(h.Index())
	assert.Equal(t, h, g.versions[idx], "write of the failed pass must be undone")
	assert.Equal(t, []int{0}, g.resources[idx].writers)
	for _, e := range g.resIn[idx] {
		assert.Less(t, e, edges)
	}
}

func TestVersionOverflow(t *testing.T) {
	g, _, _ := newTestGraph(t)

	var last Handle
	var writeErr error
	err := g.AddFuncPass("spin", PassCompute, func(b *Builder) error {
		h := b.CreateBuffer("counter", testBufferDesc)
		for range MaxVersion {
			var err error
			if h, err = b.Write(h); err != nil {
				return err
			}
		}
		last = h
		_, writeErr = b.Write(h)
		return writeErr
	}, nil)

	assert.Equal(t, uint16(MaxVersion), last.Version())
	assert.ErrorIs(t, writeErr, ErrVersionOverflow)
	assert.ErrorIs(t, err, ErrVersionOverflow)
}

func TestMutationAfterCompile(t *testing.T) {
	g, _, _ := newTestGraph(t)
	h := addProducer(t, g, "p0")
	addConsumer(t, g, "p1", true, h)

	_, err := g.Compile()
	require.NoError(t, err)
	defer g.release()

	err = g.AddFuncPass("late", PassCompute, nil, nil)
	assert.ErrorIs(t, err, ErrGraphCompiled)
	assert.Equal(t, InvalidHandle, g.ImportBuffer("ext", nil, rhi.StateUndefined))
	assert.NoError(t, g.Err(), "a rejected mutation must not fail the compiled graph")
}

func TestAttachments(t *testing.T) {
	t.Run("graphics pass", func(t *testing.T) {
		g, _, _ := newTestGraph(t)
		var color, depth, depthRead Handle
		err := g.AddFuncPass("gbuffer", PassGraphics, func(b *Builder) error {
			c := b.CreateTexture("albedo", testTextureDesc(64, 64))
			d := b.CreateTexture("depth", testTextureDesc(64, 64))
			var err error
			if color, err = b.ColorAttachment(c, rhi.DefaultColorOps()); err != nil {
				return err
			}
			depth, err = b.DepthStencilAttachment(d, rhi.DefaultDepthStencilOps())
			return err
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, uint16(1), color.Version())
		assert.Equal(t, uint16(1), depth.Version())

		p := &g.passes[0]
		require.Len(t, p.colors, 1)
		require.NotNil(t, p.depth)
		assert.Equal(t, rhi.StateRenderTarget, p.accesses[0].state)
		assert.Equal(t, rhi.StateDepthStencilWrite, p.accesses[1].state)

		err = g.AddFuncPass("forward", PassGraphics, func(b *Builder) error {
			ops := rhi.DefaultDepthStencilOps()
			ops.ReadOnly = true
			var err error
			depthRead, err = b.DepthStencilAttachment(depth, ops)
			return err
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, depth, depthRead, "read-only depth is a read")
		assert.Equal(t, rhi.StateDepthStencilRead, g.passes[1].accesses[0].state)
	})

	t.Run("compute pass rejected", func(t *testing.T) {
		g, _, _ := newTestGraph(t)
		err := g.AddFuncPass("cs", PassCompute, func(b *Builder) error {
			c := b.CreateTexture("c", testTextureDesc(8, 8))
			_, err := b.ColorAttachment(c, rhi.DefaultColorOps())
			return err
		}, nil)
		assert.ErrorIs(t, err, ErrWrongPassKind)
	})

	t.Run("buffer rejected", func(t *testing.T) {
		g, _, _ := newTestGraph(t)
		err := g.AddFuncPass("gs", PassGraphics, func(b *Builder) error {
			buf := b.CreateBuffer("b", testBufferDesc)
			_, err := b.ColorAttachment(buf, rhi.DefaultColorOps())
			return err
		}, nil)
		assert.ErrorIs(t, err, ErrWrongResourceKind)
	})

	t.Run("second depth attachment", func(t *testing.T) {
		g, _, _ := newTestGraph(t)
		err := g.AddFuncPass("gs", PassGraphics, func(b *Builder) error {
			d1 := b.CreateTexture("d1", testTextureDesc(8, 8))
			d2 := b.CreateTexture("d2", testTextureDesc(8, 8))
			if _, err := b.DepthStencilAttachment(d1, rhi.DefaultDepthStencilOps()); err != nil {
				return err
			}
			_, err := b.DepthStencilAttachment(d2, rhi.DefaultDepthStencilOps())
			return err
		}, nil)
		assert.Error(t, err)
	})
}

func TestDefaultStates(t *testing.T) {
	tests := []struct {
		pass      PassKind
		res       ResourceKind
		wantRead  rhi.ResourceState
		wantWrite rhi.ResourceState
	}{
		{PassCopy, ResourceBuffer, rhi.StateCopySrc, rhi.StateCopyDst},
		{PassCopy, ResourceTexture, rhi.StateCopySrc, rhi.StateCopyDst},
		{PassCompute, ResourceBuffer, rhi.StateShaderRead, rhi.StateStorage},
		{PassCompute, ResourceTexture, rhi.StateShaderRead, rhi.StateStorage},
		{PassGraphics, ResourceBuffer, rhi.StateShaderRead, rhi.StateStorage},
		{PassGraphics, ResourceTexture, rhi.StateShaderRead, rhi.StateRenderTarget},
	}
	for _, tt := range tests {
		t.Run(tt.pass.String()+"/"+tt.res.String(), func(t *testing.T) {
			assert.Equal(t, tt.wantRead, defaultReadState(tt.pass, tt.res))
			assert.Equal(t, tt.wantWrite, defaultWriteState(tt.pass, tt.res))
		})
	}
}

func TestUploadBuffer(t *testing.T) {
	g, _, _ := newTestGraph(t)

	var out Handle
	err := g.AddFuncPass("upload", PassCopy, func(b *Builder) error {
		h := b.CreateBuffer("constants", testBufferDesc)
		var err error
		out, err = b.UploadBuffer(h, 16, []byte{1, 2, 3, 4})
		return err
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), out.Version())
	require.Len(t, g.passes[0].uploads, 1)
	assert.Equal(t, rhi.StateUndefined, g.passes[0].accesses[0].state)

	g2, _, _ := newTestGraph(t)
	err = g2.AddFuncPass("upload", PassCopy, func(b *Builder) error {
		h := b.CreateBuffer("small", rhi.BufferDesc{Size: 4})
		_, err := b.UploadBuffer(h, 2, []byte{1, 2, 3})
		return err
	}, nil)
	assert.Error(t, err, "upload past the end must fail")

	gw, _, _ := newTestGraph(t)
	err = gw.AddFuncPass("upload", PassCopy, func(b *Builder) error {
		h := b.CreateBuffer("small", rhi.BufferDesc{Size: 4})
		_, err := b.UploadBuffer(h, math.MaxUint64-1, []byte{1, 2, 3, 4})
		return err
	}, nil)
	assert.Error(t, err, "offset near the top of uint64 must not wrap")

	gf, _, _ := newTestGraph(t)
	err = gf.AddFuncPass("upload", PassCopy, func(b *Builder) error {
		h := b.CreateBuffer("small", rhi.BufferDesc{Size: 4})
		_, err := b.UploadBuffer(h, 0, []byte{1, 2, 3, 4})
		return err
	}, nil)
	assert.NoError(t, err, "upload filling the buffer exactly")

	g3, _, _ := newTestGraph(t)
	err = g3.AddFuncPass("upload", PassCopy, func(b *Builder) error {
		h := b.CreateTexture("tex", testTextureDesc(4, 4))
		_, err := b.UploadBuffer(h, 0, []byte{1})
		return err
	}, nil)
	assert.ErrorIs(t, err, ErrWrongResourceKind)
}

func TestUploadAfterUse(t *testing.T) {
	t.Run("after writer", func(t *testing.T) {
		g, _, _ := newTestGraph(t)
		b1 := addProducer(t, g, "compute-writer")

		var b2 Handle
		err := g.AddFuncPass("uploader", PassCopy, func(b *Builder) error {
			var err error
			b2, err = b.UploadBuffer(b1, 0, []byte{1, 2, 3, 4})
			return err
		}, nil)
		require.ErrorIs(t, err, ErrUploadAfterUse)
		assert.Contains(t, err.Error(), `"compute-writer"`)
		assert.Equal(t, InvalidHandle, b2)
	})

	t.Run("after reader", func(t *testing.T) {
		g, _, _ := newTestGraph(t)
		var h Handle
		err := g.AddFuncPass("reader", PassCompute, func(b *Builder) error {
			h = b.CreateBuffer("constants", testBufferDesc)
			_, err := b.Read(h)
			return err
		}, nil)
		require.NoError(t, err)

		err = g.AddFuncPass("uploader", PassCopy, func(b *Builder) error {
			_, err := b.UploadBuffer(h, 0, []byte{1})
			return err
		}, nil)
		assert.ErrorIs(t, err, ErrUploadAfterUse)
	})

	t.Run("same pass", func(t *testing.T) {
		g, _, _ := newTestGraph(t)
		err := g.AddFuncPass("mixed", PassCopy, func(b *Builder) error {
			h, err := b.Write(b.CreateBuffer("constants", testBufferDesc))
			if err != nil {
				return err
			}
			_, err = b.UploadBuffer(h, 0, []byte{1})
			return err
		}, nil)
		assert.ErrorIs(t, err, ErrUploadAfterUse)
	})

	t.Run("uploads then use", func(t *testing.T) {
		g, _, _ := newTestGraph(t)
		var h Handle
		err := g.AddFuncPass("first", PassCopy, func(b *Builder) error {
			var err error
			h, err = b.UploadBuffer(b.CreateBuffer("constants", testBufferDesc), 0, []byte{1})
			return err
		}, nil)
		require.NoError(t, err)
		err = g.AddFuncPass("second", PassCopy, func(b *Builder) error {
			var err error
			h, err = b.UploadBuffer(h, 1, []byte{2})
			return err
		}, nil)
		require.NoError(t, err)
		addConsumer(t, g, "reader", true, h)
	})
}

func TestAddCallbackPass(t *testing.T) {
	g, _, _ := newTestGraph(t)

	type blurData struct {
		src, dst Handle
	}
	src := addProducer(t, g, "p0")

	data, err := AddCallbackPass(g, "blur", PassCompute,
		func(b *Builder, d *blurData) error {
			var err error
			if d.src, err = b.Read(src); err != nil {
				return err
			}
			d.dst, err = b.Write(b.CreateBuffer("blurred", testBufferDesc))
			return err
		}, nil)
	require.NoError(t, err)
	assert.Equal(t, src, data.src)
	assert.Equal(t, uint16(1), data.dst.Version())

	passes := g.Passes()
	require.Len(t, passes, 2)
	assert.Equal(t, "blur", passes[1].Name)
	assert.Equal(t, []Handle{src}, passes[1].Reads)
	assert.Equal(t, []Handle{data.dst}, passes[1].Writes)
}

func TestBuilderAccessors(t *testing.T) {
	g, _, _ := newTestGraph(t)
	err := g.AddFuncPass("named", PassGraphics, func(b *Builder) error {
		assert.Equal(t, "named", b.Name())
		assert.Equal(t, PassGraphics, b.Kind())
		return nil
	}, nil)
	require.NoError(t, err)
}
