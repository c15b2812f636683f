package framegraph

import (
	"fmt"

	"github.com/gogpu/framegraph/pool"
	"github.com/gogpu/framegraph/rhi"
)

// nodeKind discriminates the two node arenas an edge can point into.
type nodeKind uint8

const (
	nodePass nodeKind = iota
	nodeResource
)

// nodeRef addresses a node by arena and index.
type nodeRef struct {
	kind  nodeKind
	index int
}

// edge is a read (resource to pass) or write (pass to resource) relation.
type edge struct {
	from, to nodeRef
}

// Graph is the pass and resource graph of one frame.
//
// A Graph is built by adding passes, compiled once and executed once.
// It is not safe for concurrent use.
type Graph struct {
	dev   rhi.Device
	pools *pool.Pools
	opts  graphOptions

	resources []resourceNode
	// versions is the handle table: the current handle of every resource.
	versions []Handle
	passes   []passNode

	edges []edge
	// Incoming-edge adjacency, as indices into edges.
	passIn [][]int
	resIn  [][]int

	culled   bool
	plan     *Plan
	executed bool
	err      error
}

// NewGraph creates an empty graph that allocates through pools and
// records on dev.
func NewGraph(dev rhi.Device, pools *pool.Pools, opts ...GraphOption) *Graph {
	o := defaultGraphOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Graph{dev: dev, pools: pools, opts: o}
}

// Err returns the first build or compile error, if any.
func (g *Graph) Err() error {
	return g.err
}

// Frame returns the frame index the graph was created for.
func (g *Graph) Frame() uint64 {
	return g.opts.frame
}

// AddPass adds p and runs its Setup. Setup failures and builder errors
// are returned and make the graph unusable; whatever the failed Setup
// declared is dropped again.
func (g *Graph) AddPass(p Pass) error {
	if err := g.mutable(); err != nil {
		return err
	}

	m := g.mark()
	idx := len(g.passes)
	g.passes = append(g.passes, passNode{
		name: p.Name(),
		kind: p.Kind(),
		exec: p.Execute,
	})
	g.passIn = append(g.passIn, nil)
	g.culled = false

	b := &Builder{g: g, pass: idx}
	if err := p.Setup(b); err != nil {
		g.fail(fmt.Errorf("framegraph: setup %q: %w", p.Name(), err))
	}
	if g.err != nil {
		g.rollback(m)
	}
	return g.err
}

// mark is the size of the graph's arenas before a pass was added.
type mark struct {
	passes, resources, edges int
	versions                 []Handle
}

func (g *Graph) mark() mark {
	return mark{
		passes:    len(g.passes),
		resources: len(g.resources),
		edges:     len(g.edges),
		versions:  append([]Handle(nil), g.versions...),
	}
}

// rollback truncates the arenas to m, removing the pass added after it
// together with its resources, edges and version bumps.
func (g *Graph) rollback(m mark) {
	g.passes = g.passes[:m.passes]
	g.passIn = g.passIn[:m.passes]
	g.resources = g.resources[:m.resources]
	g.resIn = g.resIn[:m.resources]
	g.edges = g.edges[:m.edges]
	g.versions = append(g.versions[:0], m.versions...)

	for i := range g.passIn {
		g.passIn[i] = trimBelow(g.passIn[i], m.edges)
	}
	for i := range g.resources {
		g.resIn[i] = trimBelow(g.resIn[i], m.edges)
		g.resources[i].writers = trimBelow(g.resources[i].writers, m.passes)
	}
}

// trimBelow drops the trailing entries of s that are >= n. Entries are
// appended in increasing order.
func trimBelow(s []int, n int) []int {
	for len(s) > 0 && s[len(s)-1] >= n {
		s = s[:len(s)-1]
	}
	return s
}

// mutable reports why the graph cannot be changed.
func (g *Graph) mutable() error {
	if g.err != nil {
		return g.err
	}
	if g.plan != nil || g.executed {
		return ErrGraphCompiled
	}
	return nil
}

// fail records err as the graph's error unless one is already set.
func (g *Graph) fail(err error) error {
	if g.err == nil {
		g.err = err
		Logger().Debug("framegraph: graph failed", "label", g.opts.label, "err", err)
	}
	return err
}

// slot validates that h addresses a registered resource, ignoring its
// version.
func (g *Graph) slot(h Handle) (int, error) {
	if h.Invalid() {
		return 0, fmt.Errorf("%w: %v", ErrInvalidHandle, h)
	}
	idx := int(h.Index())
	if idx >= len(g.resources) {
		return 0, fmt.Errorf("%w: %v (graph has %d resources)", ErrInvalidHandle, h, len(g.resources))
	}
	return idx, nil
}

// current validates that h is the latest version of its resource.
func (g *Graph) current(h Handle) (int, error) {
	idx, err := g.slot(h)
	if err != nil {
		return 0, err
	}
	cur := g.versions[idx]
	switch {
	case h.Version() < cur.Version():
		return 0, fmt.Errorf("%w: %v of %q superseded by %v", ErrStaleHandle, h, g.resources[idx].name, cur)
	case h.Version() > cur.Version():
		return 0, fmt.Errorf("%w: %v of %q is newer than %v", ErrInvalidHandle, h, g.resources[idx].name, cur)
	}
	return idx, nil
}

func (g *Graph) addEdge(from, to nodeRef) {
	i := len(g.edges)
	g.edges = append(g.edges, edge{from: from, to: to})
	switch to.kind {
	case nodePass:
		g.passIn[to.index] = append(g.passIn[to.index], i)
	case nodeResource:
		g.resIn[to.index] = append(g.resIn[to.index], i)
	}
}
