package framegraph

import (
	"fmt"
	"strings"

	"github.com/gogpu/framegraph/rhi"
)

// Barrier is a planned state transition of one resource.
type Barrier struct {
	// Resource is the handle of the access that requires the transition.
	Resource Handle
	Name     string
	Kind     ResourceKind
	From     rhi.ResourceState
	To       rhi.ResourceState
}

// String returns e.g. "gbuffer.albedo Undefined -> RenderTarget".
func (b Barrier) String() string {
	return fmt.Sprintf("%s %v -> %v", b.Name, b.From, b.To)
}

// PlannedPass is one pass of a compiled plan.
type PlannedPass struct {
	Name string
	Kind PassKind
	// Index is the pass's insertion index.
	Index int
	// Barriers are recorded before the pass's commands.
	Barriers []Barrier
}

// Plan is the result of compiling a graph.
type Plan struct {
	Passes []PlannedPass
	// Final transitions imported resources into their declared final
	// state after the last pass.
	Final           []Barrier
	CulledPasses    []string
	CulledResources []string
}

// Order returns the pass names in execution order.
func (p *Plan) Order() []string {
	names := make([]string, len(p.Passes))
	for i, pp := range p.Passes {
		names[i] = pp.Name
	}
	return names
}

// BarrierCount returns the number of planned transitions.
func (p *Plan) BarrierCount() int {
	n := len(p.Final)
	for _, pp := range p.Passes {
		n += len(pp.Barriers)
	}
	return n
}

// String returns a human-readable dump of the plan.
func (p *Plan) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "plan: %d passes, %d barriers, %d culled\n",
		len(p.Passes), p.BarrierCount(), len(p.CulledPasses))
	for i, pp := range p.Passes {
		fmt.Fprintf(&sb, "  %2d %s [%s]\n", i, pp.Name, pp.Kind)
		for _, b := range pp.Barriers {
			fmt.Fprintf(&sb, "       barrier %s\n", b)
		}
	}
	for _, b := range p.Final {
		fmt.Fprintf(&sb, "  final %s\n", b)
	}
	if len(p.CulledPasses) > 0 {
		fmt.Fprintf(&sb, "  culled passes: %s\n", strings.Join(p.CulledPasses, ", "))
	}
	if len(p.CulledResources) > 0 {
		fmt.Fprintf(&sb, "  culled resources: %s\n", strings.Join(p.CulledResources, ", "))
	}
	return sb.String()
}

// Compile culls the graph, orders the surviving passes, plans state
// transitions and realizes every surviving transient resource from the
// pools. After Compile the graph can no longer be changed.
//
// An allocation failure releases everything acquired so far and returns
// an error wrapping ErrResourceAllocation. Compiling an already compiled
// graph returns the same plan.
func (g *Graph) Compile() (*Plan, error) {
	if g.err != nil {
		return nil, g.err
	}
	if g.plan != nil {
		return g.plan, nil
	}

	g.cull()
	order, err := g.order()
	if err != nil {
		return nil, g.fail(err)
	}

	plan := &Plan{Passes: make([]PlannedPass, 0, len(order))}
	for _, pi := range order {
		p := &g.passes[pi]
		plan.Passes = append(plan.Passes, PlannedPass{Name: p.name, Kind: p.kind, Index: pi})
	}
	for i := range g.passes {
		if !g.passActive(i) {
			plan.CulledPasses = append(plan.CulledPasses, g.passes[i].name)
		}
	}
	for i := range g.resources {
		if !g.resourceActive(i) {
			plan.CulledResources = append(plan.CulledResources, g.resources[i].name)
		}
	}
	g.planBarriers(plan)

	if err := g.realize(); err != nil {
		return nil, g.fail(err)
	}

	g.plan = plan
	Logger().Debug("framegraph: compiled",
		"label", g.opts.label,
		"passes", len(plan.Passes),
		"culled", len(plan.CulledPasses),
		"barriers", plan.BarrierCount())
	return plan, nil
}

// planBarriers walks every access in execution order and emits a
// transition wherever the required state differs from the current one.
// A pass that uses a resource in several states gets a single transition
// into the state of its write, or of its first read if it only reads.
func (g *Graph) planBarriers(plan *Plan) {
	state := make([]rhi.ResourceState, len(g.resources))
	for i := range g.resources {
		state[i] = g.resources[i].initial
	}

	for pi := range plan.Passes {
		p := &g.passes[plan.Passes[pi].Index]

		type need struct {
			h     Handle
			state rhi.ResourceState
			write bool
		}
		var (
			needs []need
			seen  = make(map[int]int) // resource index -> position in needs
		)
		for _, a := range p.accesses {
			if a.state == rhi.StateUndefined {
				continue
			}
			idx := int(a.handle.Index())
			if at, ok := seen[idx]; ok {
				if a.write && !needs[at].write {
					needs[at] = need{a.handle, a.state, true}
				}
				continue
			}
			seen[idx] = len(needs)
			needs = append(needs, need{a.handle, a.state, a.write})
		}

		for _, n := range needs {
			idx := int(n.h.Index())
			if state[idx] == n.state {
				continue
			}
			plan.Passes[pi].Barriers = append(plan.Passes[pi].Barriers, Barrier{
				Resource: n.h,
				Name:     g.resources[idx].name,
				Kind:     g.resources[idx].kind,
				From:     state[idx],
				To:       n.state,
			})
			state[idx] = n.state
		}
	}

	for i := range g.resources {
		r := &g.resources[i]
		if !r.imported || !r.hasFinal || !g.resourceActive(i) || state[i] == r.final {
			continue
		}
		plan.Final = append(plan.Final, Barrier{
			Resource: g.versions[i],
			Name:     r.name,
			Kind:     r.kind,
			From:     state[i],
			To:       r.final,
		})
	}
}

// realize binds a pooled physical resource to every surviving transient
// resource.
func (g *Graph) realize() error {
	log := Logger()
	for i := range g.resources {
		r := &g.resources[i]
		if r.imported || !g.resourceActive(i) {
			continue
		}
		if g.pools == nil {
			g.release()
			return fmt.Errorf("%w: %q: graph has no pools", ErrResourceAllocation, r.name)
		}

		switch r.kind {
		case ResourceBuffer:
			ref, err := g.pools.Buffers.Allocate(r.bufDesc)
			if err != nil {
				g.release()
				return fmt.Errorf("%w: %q %s: %w", ErrResourceAllocation, r.name, r.bufDesc, err)
			}
			r.bufRef, r.buffer = ref, ref.Resource()
			log.Debug("framegraph: realized", "resource", r.name, "desc", r.bufDesc.String(), "reused", ref.Reused())
		case ResourceTexture:
			ref, err := g.pools.Textures.Allocate(r.texDesc)
			if err != nil {
				g.release()
				return fmt.Errorf("%w: %q %s: %w", ErrResourceAllocation, r.name, r.texDesc, err)
			}
			r.texRef, r.texture = ref, ref.Resource()
			log.Debug("framegraph: realized", "resource", r.name, "desc", r.texDesc.String(), "reused", ref.Reused())
		}
	}
	return nil
}

// release drops the graph's pool references. Imported bindings are kept.
func (g *Graph) release() {
	for i := range g.resources {
		r := &g.resources[i]
		if r.bufRef != nil {
			r.bufRef.Release()
			r.bufRef, r.buffer = nil, nil
		}
		if r.texRef != nil {
			r.texRef.Release()
			r.texRef, r.texture = nil, nil
		}
	}
}
