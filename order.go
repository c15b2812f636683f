package framegraph

import (
	"fmt"
	"slices"
)

// order returns the indices of the surviving passes in execution order.
func (g *Graph) order() ([]int, error) {
	active := make([]int, 0, len(g.passes))
	for i := range g.passes {
		if g.passActive(i) {
			active = append(active, i)
		}
	}
	if g.opts.ordering == OrderTopological {
		return g.topoSort(active)
	}
	return active, nil
}

// generation identifies one version of one resource.
type generation struct {
	index   uint16
	version uint16
}

func genOf(h Handle) generation {
	return generation{h.Index(), h.Version()}
}

// dependencies returns, for each pass in active, the passes in active it
// must run after.
func (g *Graph) dependencies(active []int) map[int][]int {
	isActive := make(map[int]bool, len(active))
	for _, p := range active {
		isActive[p] = true
	}

	producer := make(map[generation]int)
	readers := make(map[generation][]int)
	for _, p := range active {
		for _, a := range g.passes[p].accesses {
			if a.write {
				producer[genOf(a.produced)] = p
			} else {
				readers[genOf(a.handle)] = append(readers[genOf(a.handle)], p)
			}
		}
	}

	deps := make(map[int][]int, len(active))
	add := func(p, before int) {
		if before == p || !isActive[before] || slices.Contains(deps[p], before) {
			return
		}
		deps[p] = append(deps[p], before)
	}
	for _, p := range active {
		for _, a := range g.passes[p].accesses {
			in := genOf(a.handle)
			// Read after write, and write after write.
			if w, ok := producer[in]; ok {
				add(p, w)
			}
			if a.write {
				// Write after read.
				for _, r := range readers[in] {
					add(p, r)
				}
			}
		}
	}
	return deps
}

// topoSort orders active with Kahn's algorithm. Among ready passes the
// earliest inserted runs first, so a graph whose insertion order is
// already valid keeps it.
func (g *Graph) topoSort(active []int) ([]int, error) {
	deps := g.dependencies(active)

	indegree := make(map[int]int, len(active))
	dependents := make(map[int][]int, len(active))
	for _, p := range active {
		indegree[p] = len(deps[p])
		for _, d := range deps[p] {
			dependents[d] = append(dependents[d], p)
		}
	}

	var ready []int
	for _, p := range active {
		if indegree[p] == 0 {
			ready = append(ready, p)
		}
	}

	out := make([]int, 0, len(active))
	for len(ready) > 0 {
		p := ready[0]
		ready = ready[1:]
		out = append(out, p)
		for _, d := range dependents[p] {
			indegree[d]--
			if indegree[d] == 0 {
				pos, _ := slices.BinarySearch(ready, d)
				ready = slices.Insert(ready, pos, d)
			}
		}
	}

	if len(out) != len(active) {
		var stuck []string
		for _, p := range active {
			if indegree[p] > 0 {
				stuck = append(stuck, g.passes[p].name)
			}
		}
		return nil, fmt.Errorf("%w among passes %q", ErrCycle, stuck)
	}
	return out, nil
}
