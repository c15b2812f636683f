package framegraph

import "github.com/gogpu/framegraph/rhi"

// PassKind selects the encoder a pass records into.
type PassKind uint8

const (
	PassCopy PassKind = iota
	PassCompute
	PassGraphics
)

// String returns "copy", "compute" or "graphics".
func (k PassKind) String() string {
	switch k {
	case PassCopy:
		return "copy"
	case PassCompute:
		return "compute"
	case PassGraphics:
		return "graphics"
	default:
		return "unknown"
	}
}

// Pass is a unit of GPU work.
//
// Setup declares the pass's resources through the Builder and runs once,
// when the pass is added. It must not record GPU work. Execute runs during
// Graph.Execute with the pass-scoped encoder and the physical resources
// bound; it is not called if the pass is culled.
type Pass interface {
	Name() string
	Kind() PassKind
	Setup(b *Builder) error
	Execute(pc *PassContext) error
}

// access is one declared use of a resource by a pass.
type access struct {
	handle Handle // the handle the pass was given
	state  rhi.ResourceState
	write  bool
	// produced is the handle returned by a write.
	produced Handle
	// upload marks a queue write declared with UploadBuffer.
	upload bool
}

type colorAttachment struct {
	handle Handle
	ops    rhi.ColorAttachmentOps
}

type depthAttachment struct {
	handle Handle
	ops    rhi.DepthStencilOps
}

type upload struct {
	handle Handle
	offset uint64
	data   []byte
}

// passNode is one pass. Its index in Graph.passes is its insertion order.
type passNode struct {
	name       string
	kind       PassKind
	refCount   int
	sideEffect bool

	accesses []access
	exec     func(*PassContext) error

	colors  []colorAttachment
	depth   *depthAttachment
	uploads []upload
}

func (p *passNode) reads() []Handle {
	var hs []Handle
	for _, a := range p.accesses {
		if !a.write {
			hs = append(hs, a.handle)
		}
	}
	return hs
}

func (p *passNode) writes() []Handle {
	var hs []Handle
	for _, a := range p.accesses {
		if a.write {
			hs = append(hs, a.produced)
		}
	}
	return hs
}

// PassInfo is a read-only view of a pass.
type PassInfo struct {
	Name       string
	Kind       PassKind
	Index      int
	Reads      []Handle
	Writes     []Handle // handles produced by the pass's writes
	RefCount   int
	SideEffect bool
	Active     bool
}

// Passes returns every pass in insertion order. Active and RefCount
// reflect the last cull.
func (g *Graph) Passes() []PassInfo {
	out := make([]PassInfo, len(g.passes))
	for i := range g.passes {
		p := &g.passes[i]
		out[i] = PassInfo{
			Name:       p.name,
			Kind:       p.kind,
			Index:      i,
			Reads:      p.reads(),
			Writes:     p.writes(),
			RefCount:   p.refCount,
			SideEffect: p.sideEffect,
			Active:     g.passActive(i),
		}
	}
	return out
}

func (g *Graph) passActive(i int) bool {
	p := &g.passes[i]
	return p.refCount > 0 || p.sideEffect
}

// funcPass adapts closures to Pass.
type funcPass struct {
	name    string
	kind    PassKind
	setup   func(*Builder) error
	execute func(*PassContext) error
}

func (p *funcPass) Name() string   { return p.name }
func (p *funcPass) Kind() PassKind { return p.kind }

func (p *funcPass) Setup(b *Builder) error {
	if p.setup == nil {
		return nil
	}
	return p.setup(b)
}

func (p *funcPass) Execute(pc *PassContext) error {
	if p.execute == nil {
		return nil
	}
	return p.execute(pc)
}

// AddFuncPass adds a pass built from closures. Either closure may be nil.
func (g *Graph) AddFuncPass(name string, kind PassKind, setup func(*Builder) error, execute func(*PassContext) error) error {
	return g.AddPass(&funcPass{name: name, kind: kind, setup: setup, execute: execute})
}

// AddCallbackPass adds a pass whose setup and execute closures share a
// value of type T. The returned pointer is the same value, so handles
// written by setup are available to later passes.
//
//	type blurData struct{ src, dst framegraph.Handle }
//
//	blur, err := framegraph.AddCallbackPass(g, "blur", framegraph.PassCompute,
//	    func(b *framegraph.Builder, d *blurData) error { ... },
//	    func(pc *framegraph.PassContext, d *blurData) error { ... })
func AddCallbackPass[T any](g *Graph, name string, kind PassKind,
	setup func(*Builder, *T) error, execute func(*PassContext, *T) error,
) (*T, error) {
	data := new(T)
	p := &funcPass{name: name, kind: kind}
	if setup != nil {
		p.setup = func(b *Builder) error { return setup(b, data) }
	}
	if execute != nil {
		p.execute = func(pc *PassContext) error { return execute(pc, data) }
	}
	return data, g.AddPass(p)
}
