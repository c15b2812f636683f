package framegraph

import (
	"bufio"
	"fmt"
	"io"
)

// WriteDOT writes the graph in Graphviz DOT format. Passes are boxes,
// resources ellipses; culled nodes are dashed and side-effect passes
// drawn bold. Write edges are labeled with the version they produce.
func (g *Graph) WriteDOT(w io.Writer) error {
	if !g.culled {
		g.cull()
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "digraph %q {\n", g.opts.label)
	fmt.Fprintln(bw, "  rankdir=LR;")

	for i := range g.passes {
		p := &g.passes[i]
		style := "solid"
		switch {
		case !g.passActive(i):
			style = "dashed"
		case p.sideEffect:
			style = "bold"
		}
		fmt.Fprintf(bw, "  p%d [shape=box, style=%s, label=%q];\n", i, style, p.name+"\n"+p.kind.String())
	}
	for i := range g.resources {
		r := &g.resources[i]
		style := "solid"
		if !g.resourceActive(i) {
			style = "dashed"
		}
		shape := "ellipse"
		if r.imported {
			shape = "doubleoctagon"
		}
		fmt.Fprintf(bw, "  r%d [shape=%s, style=%s, label=%q];\n", i, shape, style, r.name+"\n"+r.descString())
	}

	for i := range g.passes {
		for _, a := range g.passes[i].accesses {
			idx := a.handle.Index()
			if a.write {
				fmt.Fprintf(bw, "  p%d -> r%d [label=\"v%d\"];\n", i, idx, a.produced.Version())
			} else {
				fmt.Fprintf(bw, "  r%d -> p%d;\n", idx, i)
			}
		}
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
