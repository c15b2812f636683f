package framegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDeferred builds a small deferred-shading style graph with one
// dead branch.
func buildDeferred(t *testing.T, g *Graph) {
	t.Helper()

	depth := addProducer(t, g, "depth-prepass")
	gbuf := addProducer(t, g, "gbuffer")
	addProducer(t, g, "unused-ao")

	var lit Handle
	require.NoError(t, g.AddFuncPass("lighting", PassCompute, func(b *Builder) error {
		for _, h := range []Handle{depth, gbuf} {
			if _, err := b.Read(h); err != nil {
				return err
			}
		}
		var err error
		lit, err = b.Write(b.CreateBuffer("lit", testBufferDesc))
		return err
	}, nil))

	var post Handle
	require.NoError(t, g.AddFuncPass("post", PassCompute, func(b *Builder) error {
		if _, err := b.Read(lit); err != nil {
			return err
		}
		var err error
		post, err = b.Write(lit)
		return err
	}, nil))
	addConsumer(t, g, "present", true, post)
}

func isSubsequence(sub, seq []string) bool {
	i := 0
	for _, s := range seq {
		if i < len(sub) && sub[i] == s {
			i++
		}
	}
	return i == len(sub)
}

func TestOrderPreservesInsertion(t *testing.T) {
	for _, ordering := range []Ordering{OrderInsertion, OrderTopological} {
		t.Run(ordering.String(), func(t *testing.T) {
			g, _, _ := newTestGraph(t, WithOrdering(ordering))
			buildDeferred(t, g)

			plan, err := g.Compile()
			require.NoError(t, err)
			defer g.release()

			var inserted []string
			for _, p := range g.Passes() {
				inserted = append(inserted, p.Name)
			}
			assert.True(t, isSubsequence(plan.Order(), inserted),
				"order %v is not a subsequence of %v", plan.Order(), inserted)
			assert.Equal(t, []string{"depth-prepass", "gbuffer", "lighting", "post", "present"}, plan.Order())
			assert.Equal(t, []string{"unused-ao"}, plan.CulledPasses)
		})
	}
}

func TestDependencies(t *testing.T) {
	g, _, _ := newTestGraph(t)
	buildDeferred(t, g)
	g.cull()

	active, err := g.order()
	require.NoError(t, err)
	deps := g.dependencies(active)

	name := func(i int) string { return g.passes[i].name }
	index := map[string]int{}
	for i := range g.passes {
		index[g.passes[i].name] = i
	}
	depNames := func(p string) []string {
		var out []string
		for _, d := range deps[index[p]] {
			out = append(out, name(d))
		}
		return out
	}

	assert.ElementsMatch(t, []string{"depth-prepass", "gbuffer"}, depNames("lighting"))
	// post reads and rewrites lit: read-after-write on the producer only.
	assert.ElementsMatch(t, []string{"lighting"}, depNames("post"))
	assert.ElementsMatch(t, []string{"post"}, depNames("present"))
	assert.Empty(t, depNames("depth-prepass"))
}

func TestWriteAfterReadDependency(t *testing.T) {
	g, _, _ := newTestGraph(t, WithOrdering(OrderTopological))

	v1 := addProducer(t, g, "init")
	addConsumer(t, g, "reader", true, v1)
	require.NoError(t, g.AddFuncPass("overwrite", PassCompute, func(b *Builder) error {
		b.SideEffect()
		_, err := b.Write(v1)
		return err
	}, nil))

	plan, err := g.Compile()
	require.NoError(t, err)
	defer g.release()
	assert.Equal(t, []string{"init", "reader", "overwrite"}, plan.Order())

	deps := g.dependencies([]int{0, 1, 2})
	assert.ElementsMatch(t, []int{0, 1}, deps[2], "overwrite waits for the writer and the reader")
}

// A cycle cannot be built through the Builder, so the arena is
// assembled by hand.
func TestTopologicalCycle(t *testing.T) {
	g, _, _ := newTestGraph(t, WithOrdering(OrderTopological))
	g.resources = []resourceNode{{name: "a"}, {name: "b"}}
	g.versions = []Handle{NewHandle(0, 1), NewHandle(1, 1)}
	g.passes = []passNode{
		{name: "x", sideEffect: true, accesses: []access{
			{handle: NewHandle(1, 1)},
			{handle: NewHandle(0, 0), write: true, produced: NewHandle(0, 1)},
		}},
		{name: "y", sideEffect: true, accesses: []access{
			{handle: NewHandle(0, 1)},
			{handle: NewHandle(1, 0), write: true, produced: NewHandle(1, 1)},
		}},
	}
	g.passIn = make([][]int, 2)
	g.resIn = make([][]int, 2)

	_, err := g.topoSort([]int{0, 1})
	require.ErrorIs(t, err, ErrCycle)
	assert.Contains(t, err.Error(), `"x"`)
}

func TestTopologicalTieBreak(t *testing.T) {
	g, _, _ := newTestGraph(t, WithOrdering(OrderTopological))
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, g.AddFuncPass(name, PassCopy, func(b *Builder) error {
			b.SideEffect()
			return nil
		}, nil))
	}
	plan, err := g.Compile()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, plan.Order(), "independent passes keep insertion order")
}

func TestOrderingString(t *testing.T) {
	assert.Equal(t, "insertion", OrderInsertion.String())
	assert.Equal(t, "topological", OrderTopological.String())
	assert.Equal(t, "unknown", Ordering(7).String())
}
