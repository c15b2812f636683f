package framegraph

import (
	"context"
	"log/slog"
)

// Cull computes pass and resource liveness. Compile calls it; it is
// exported so that liveness can be inspected through Passes and
// Resources before compiling.
//
// The sweep is reference counting over the edge list: every node starts
// with one reference per outgoing edge, nodes without references are
// pushed, and popping a node releases one reference from the source of
// each of its incoming edges. Side-effect passes and resources marked
// used are never pushed.
func (g *Graph) Cull() error {
	if g.err != nil {
		return g.err
	}
	g.cull()
	return nil
}

func (g *Graph) cull() {
	for i := range g.passes {
		g.passes[i].refCount = 0
	}
	for i := range g.resources {
		g.resources[i].refCount = 0
	}
	for _, e := range g.edges {
		*g.refCount(e.from)++
	}

	var stack []nodeRef
	for i := range g.passes {
		if g.passes[i].refCount == 0 && !g.passes[i].sideEffect {
			stack = append(stack, nodeRef{nodePass, i})
		}
	}
	for i := range g.resources {
		if g.resources[i].refCount == 0 && !g.resources[i].root {
			stack = append(stack, nodeRef{nodeResource, i})
		}
	}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, ei := range g.incoming(n) {
			src := g.edges[ei].from
			rc := g.refCount(src)
			if *rc == 0 {
				continue
			}
			*rc--
			if *rc == 0 && !g.isRoot(src) {
				stack = append(stack, src)
			}
		}
	}

	g.culled = true

	if log := Logger(); log.Enabled(context.Background(), slog.LevelDebug) {
		for i := range g.passes {
			if !g.passActive(i) {
				log.Debug("framegraph: culled pass", "pass", g.passes[i].name)
			}
		}
	}
}

func (g *Graph) refCount(n nodeRef) *int {
	if n.kind == nodePass {
		return &g.passes[n.index].refCount
	}
	return &g.resources[n.index].refCount
}

func (g *Graph) isRoot(n nodeRef) bool {
	if n.kind == nodePass {
		return g.passes[n.index].sideEffect
	}
	return g.resources[n.index].root
}

func (g *Graph) incoming(n nodeRef) []int {
	if n.kind == nodePass {
		return g.passIn[n.index]
	}
	return g.resIn[n.index]
}
