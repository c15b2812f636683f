package framegraph

import (
	"fmt"

	"github.com/gogpu/framegraph/pool"
	"github.com/gogpu/framegraph/rhi"
)

// ResourceKind distinguishes buffers from textures.
type ResourceKind uint8

const (
	ResourceBuffer ResourceKind = iota
	ResourceTexture
)

// String returns "buffer" or "texture".
func (k ResourceKind) String() string {
	switch k {
	case ResourceBuffer:
		return "buffer"
	case ResourceTexture:
		return "texture"
	default:
		return "unknown"
	}
}

// resourceNode is one virtual resource slot. Its index in Graph.resources
// is the handle index.
type resourceNode struct {
	name    string
	kind    ResourceKind
	bufDesc rhi.BufferDesc
	texDesc rhi.TextureDesc

	refCount int
	// root marks imported resources kept alive with MarkUsed.
	root bool

	imported bool
	initial  rhi.ResourceState
	final    rhi.ResourceState
	hasFinal bool

	// writers lists the passes with a write edge to this resource.
	writers []int

	// Physical binding, set by realize or by import.
	buffer  rhi.Buffer
	texture rhi.Texture
	bufRef  *pool.BufferRef
	texRef  *pool.TextureRef
}

func (r *resourceNode) descString() string {
	if r.kind == ResourceBuffer {
		return r.bufDesc.String()
	}
	return r.texDesc.String()
}

// ResourceInfo is a read-only view of a virtual resource.
type ResourceInfo struct {
	Handle   Handle // current version
	Name     string
	Kind     ResourceKind
	Buffer   rhi.BufferDesc
	Texture  rhi.TextureDesc
	RefCount int
	Active   bool
	Imported bool
}

// Resources returns every virtual resource in creation order. Active and
// RefCount reflect the last cull.
func (g *Graph) Resources() []ResourceInfo {
	out := make([]ResourceInfo, len(g.resources))
	for i := range g.resources {
		out[i] = g.resourceInfo(i)
	}
	return out
}

// Resource returns the view of the resource h refers to. Any version of
// the resource is accepted.
func (g *Graph) Resource(h Handle) (ResourceInfo, bool) {
	if h.Invalid() || int(h.Index()) >= len(g.resources) {
		return ResourceInfo{}, false
	}
	return g.resourceInfo(int(h.Index())), true
}

func (g *Graph) resourceInfo(i int) ResourceInfo {
	r := &g.resources[i]
	return ResourceInfo{
		Handle:   g.versions[i],
		Name:     r.name,
		Kind:     r.kind,
		Buffer:   r.bufDesc,
		Texture:  r.texDesc,
		RefCount: r.refCount,
		Active:   g.resourceActive(i),
		Imported: r.imported,
	}
}

// resourceActive reports liveness after culling: the resource has
// surviving readers, is a root, or is written by a surviving pass.
func (g *Graph) resourceActive(i int) bool {
	r := &g.resources[i]
	if r.refCount > 0 || r.root {
		return true
	}
	for _, p := range r.writers {
		if g.passActive(p) {
			return true
		}
	}
	return false
}

// addResource appends a resource slot and its version-0 handle.
func (g *Graph) addResource(r resourceNode) (Handle, error) {
	if len(g.resources) >= InvalidIndex {
		return InvalidHandle, ErrTooManyResources
	}
	idx := len(g.resources)
	g.resources = append(g.resources, r)
	g.resIn = append(g.resIn, nil)
	h := NewHandle(uint16(idx), 0)
	g.versions = append(g.versions, h)
	return h, nil
}

// ImportBuffer registers an externally owned buffer. Imported resources
// are never pooled or destroyed by the graph.
func (g *Graph) ImportBuffer(name string, b rhi.Buffer, initial rhi.ResourceState) Handle {
	if err := g.mutable(); err != nil {
		return InvalidHandle
	}
	h, err := g.addResource(resourceNode{
		name:     name,
		kind:     ResourceBuffer,
		bufDesc:  b.Desc(),
		imported: true,
		initial:  initial,
		buffer:   b,
	})
	if err != nil {
		g.fail(err)
	}
	return h
}

// ImportTexture registers an externally owned texture such as a swap
// chain image.
func (g *Graph) ImportTexture(name string, t rhi.Texture, initial rhi.ResourceState) Handle {
	if err := g.mutable(); err != nil {
		return InvalidHandle
	}
	h, err := g.addResource(resourceNode{
		name:     name,
		kind:     ResourceTexture,
		texDesc:  t.Desc(),
		imported: true,
		initial:  initial,
		texture:  t,
	})
	if err != nil {
		g.fail(err)
	}
	return h
}

// MarkUsed keeps an imported resource, and therefore its producers, alive
// through culling.
func (g *Graph) MarkUsed(h Handle) error {
	if err := g.mutable(); err != nil {
		return err
	}
	idx, err := g.slot(h)
	if err != nil {
		return g.fail(err)
	}
	if !g.resources[idx].imported {
		return g.fail(fmt.Errorf("%w: MarkUsed on non-imported %q", ErrWrongResourceKind, g.resources[idx].name))
	}
	g.resources[idx].root = true
	return nil
}

// SetFinalState requests a transition of an imported resource into state
// after the last pass, for example rhi.StatePresent for a swap chain
// image.
func (g *Graph) SetFinalState(h Handle, state rhi.ResourceState) error {
	if err := g.mutable(); err != nil {
		return err
	}
	idx, err := g.slot(h)
	if err != nil {
		return g.fail(err)
	}
	if !g.resources[idx].imported {
		return g.fail(fmt.Errorf("%w: SetFinalState on non-imported %q", ErrWrongResourceKind, g.resources[idx].name))
	}
	g.resources[idx].final = state
	g.resources[idx].hasFinal = true
	return nil
}
