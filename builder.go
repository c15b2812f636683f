package framegraph

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph/rhi"
)

// Builder declares the resources of the pass being set up. It is only
// valid during the pass's Setup.
//
// Every failing call records nothing, returns InvalidHandle and the
// error, and fails the graph.
type Builder struct {
	g    *Graph
	pass int
}

func (b *Builder) node() *passNode {
	return &b.g.passes[b.pass]
}

// Name returns the name of the pass being set up.
func (b *Builder) Name() string { return b.node().name }

// Kind returns the kind of the pass being set up.
func (b *Builder) Kind() PassKind { return b.node().kind }

// CreateBuffer registers a transient buffer and returns its version-0
// handle. The buffer is realized from the pool only if it survives
// culling.
func (b *Builder) CreateBuffer(name string, desc rhi.BufferDesc) Handle {
	return b.create(resourceNode{name: name, kind: ResourceBuffer, bufDesc: desc})
}

// CreateTexture registers a transient texture and returns its version-0
// handle.
func (b *Builder) CreateTexture(name string, desc rhi.TextureDesc) Handle {
	return b.create(resourceNode{name: name, kind: ResourceTexture, texDesc: desc})
}

func (b *Builder) create(r resourceNode) Handle {
	if err := b.g.mutable(); err != nil {
		return InvalidHandle
	}
	h, err := b.g.addResource(r)
	if err != nil {
		b.fail("create", InvalidHandle, err)
		return InvalidHandle
	}
	return h
}

// ImportBuffer registers an externally owned buffer. See Graph.ImportBuffer.
func (b *Builder) ImportBuffer(name string, buf rhi.Buffer, initial rhi.ResourceState) Handle {
	return b.g.ImportBuffer(name, buf, initial)
}

// ImportTexture registers an externally owned texture. See Graph.ImportTexture.
func (b *Builder) ImportTexture(name string, tex rhi.Texture, initial rhi.ResourceState) Handle {
	return b.g.ImportTexture(name, tex, initial)
}

// Read declares that the pass reads h in the default state for the pass
// kind. It returns h unchanged.
func (b *Builder) Read(h Handle) (Handle, error) {
	idx, err := b.g.slot(h)
	if err != nil {
		return InvalidHandle, b.fail("read", h, err)
	}
	return b.ReadAs(h, defaultReadState(b.Kind(), b.g.resources[idx].kind))
}

// ReadAs declares a read that requires state. It returns h unchanged.
func (b *Builder) ReadAs(h Handle, state rhi.ResourceState) (Handle, error) {
	if err := b.g.mutable(); err != nil {
		return InvalidHandle, err
	}
	idx, err := b.g.current(h)
	if err != nil {
		return InvalidHandle, b.fail("read", h, err)
	}

	p := b.node()
	p.accesses = append(p.accesses, access{handle: h, state: state})
	b.g.addEdge(nodeRef{nodeResource, idx}, nodeRef{nodePass, b.pass})
	return h, nil
}

// Write declares that the pass writes h in the default state for the
// pass kind. It returns the next version of the resource, which later
// passes must use instead of h.
func (b *Builder) Write(h Handle) (Handle, error) {
	idx, err := b.g.slot(h)
	if err != nil {
		return InvalidHandle, b.fail("write", h, err)
	}
	return b.WriteAs(h, defaultWriteState(b.Kind(), b.g.resources[idx].kind))
}

// WriteAs declares a write that requires state and returns the next
// version of the resource.
func (b *Builder) WriteAs(h Handle, state rhi.ResourceState) (Handle, error) {
	if err := b.g.mutable(); err != nil {
		return InvalidHandle, err
	}
	idx, err := b.g.current(h)
	if err != nil {
		return InvalidHandle, b.fail("write", h, err)
	}
	if h.Version() == MaxVersion {
		return InvalidHandle, b.fail("write", h, ErrVersionOverflow)
	}

	next := h.Next()
	b.g.versions[idx] = next

	p := b.node()
	p.accesses = append(p.accesses, access{handle: h, state: state, write: true, produced: next})

	r := &b.g.resources[idx]
	if n := len(r.writers); n == 0 || r.writers[n-1] != b.pass {
		r.writers = append(r.writers, b.pass)
	}
	b.g.addEdge(nodeRef{nodePass, b.pass}, nodeRef{nodeResource, idx})
	return next, nil
}

// ColorAttachment binds h as the next color attachment of a graphics
// pass and writes it as a render target.
func (b *Builder) ColorAttachment(h Handle, ops rhi.ColorAttachmentOps) (Handle, error) {
	if err := b.attachable(h, "color attachment"); err != nil {
		return InvalidHandle, err
	}
	next, err := b.WriteAs(h, rhi.StateRenderTarget)
	if err != nil {
		return InvalidHandle, err
	}
	p := b.node()
	p.colors = append(p.colors, colorAttachment{handle: next, ops: ops})
	return next, nil
}

// DepthStencilAttachment binds h as the depth-stencil attachment of a
// graphics pass. A read-only attachment is a read and returns h; otherwise
// it is a write and returns the next version.
func (b *Builder) DepthStencilAttachment(h Handle, ops rhi.DepthStencilOps) (Handle, error) {
	if err := b.attachable(h, "depth-stencil attachment"); err != nil {
		return InvalidHandle, err
	}
	if b.node().depth != nil {
		return InvalidHandle, b.fail("depth-stencil attachment", h,
			errors.New("framegraph: depth-stencil attachment already bound"))
	}

	var (
		out Handle
		err error
	)
	if ops.ReadOnly {
		out, err = b.ReadAs(h, rhi.StateDepthStencilRead)
	} else {
		out, err = b.WriteAs(h, rhi.StateDepthStencilWrite)
	}
	if err != nil {
		return InvalidHandle, err
	}
	b.node().depth = &depthAttachment{handle: out, ops: ops}
	return out, nil
}

// attachable checks the preconditions shared by the attachment calls.
func (b *Builder) attachable(h Handle, what string) error {
	if err := b.g.mutable(); err != nil {
		return err
	}
	if b.Kind() != PassGraphics {
		return b.fail(what, h, fmt.Errorf("%w: %s pass", ErrWrongPassKind, b.Kind()))
	}
	idx, err := b.g.slot(h)
	if err != nil {
		return b.fail(what, h, err)
	}
	if b.g.resources[idx].kind != ResourceTexture {
		return b.fail(what, h, fmt.Errorf("%w: %q is a buffer", ErrWrongResourceKind, b.g.resources[idx].name))
	}
	return nil
}

// UploadBuffer queues a CPU to GPU write of data at offset into the buffer
// h. The write is performed through the queue before the frame's command
// buffer is submitted. It counts as a write and returns the next version.
//
// Because of that, an upload must precede every other access to the buffer
// in the frame; uploading into a buffer some pass already used fails with
// [ErrUploadAfterUse].
func (b *Builder) UploadBuffer(h Handle, offset uint64, data []byte) (Handle, error) {
	if err := b.g.mutable(); err != nil {
		return InvalidHandle, err
	}
	idx, err := b.g.slot(h)
	if err != nil {
		return InvalidHandle, b.fail("upload", h, err)
	}
	r := &b.g.resources[idx]
	if r.kind != ResourceBuffer {
		return InvalidHandle, b.fail("upload", h, fmt.Errorf("%w: %q is a texture", ErrWrongResourceKind, r.name))
	}
	if offset > r.bufDesc.Size || uint64(len(data)) > r.bufDesc.Size-offset {
		return InvalidHandle, b.fail("upload", h,
			fmt.Errorf("framegraph: upload of %d bytes at %d exceeds %s", len(data), offset, r.bufDesc))
	}
	if user, ok := b.g.gpuUser(idx); ok {
		return InvalidHandle, b.fail("upload", h,
			fmt.Errorf("%w: %q is used by pass %q", ErrUploadAfterUse, r.name, user))
	}

	// Queue writes happen outside the command buffer, so the access
	// carries no state and takes no part in barrier planning.
	next, err := b.WriteAs(h, rhi.StateUndefined)
	if err != nil {
		return InvalidHandle, err
	}
	p := b.node()
	p.accesses[len(p.accesses)-1].upload = true
	p.uploads = append(p.uploads, upload{handle: next, offset: offset, data: append([]byte(nil), data...)})
	return next, nil
}

// SideEffect makes the pass a culling root: it survives even if nothing
// reads what it writes.
func (b *Builder) SideEffect() {
	b.node().sideEffect = true
}

// gpuUser returns the first pass that accesses resource idx other than
// through an upload.
func (g *Graph) gpuUser(idx int) (string, bool) {
	for i := range g.passes {
		for _, a := range g.passes[i].accesses {
			if int(a.handle.Index()) == idx && !a.upload {
				return g.passes[i].name, true
			}
		}
	}
	return "", false
}

func (b *Builder) fail(op string, h Handle, err error) error {
	return b.g.fail(fmt.Errorf("pass %q: %s %v: %w", b.Name(), op, h, err))
}

func defaultReadState(pk PassKind, _ ResourceKind) rhi.ResourceState {
	if pk == PassCopy {
		return rhi.StateCopySrc
	}
	return rhi.StateShaderRead
}

func defaultWriteState(pk PassKind, rk ResourceKind) rhi.ResourceState {
	switch pk {
	case PassCopy:
		return rhi.StateCopyDst
	case PassGraphics:
		if rk == ResourceTexture {
			return rhi.StateRenderTarget
		}
	}
	return rhi.StateStorage
}
