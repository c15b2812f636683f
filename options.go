package framegraph

import (
	"time"

	"github.com/gogpu/framegraph/pool"
	"github.com/gogpu/framegraph/rhi"
)

// Ordering selects how Compile orders the surviving passes.
type Ordering uint8

const (
	// OrderInsertion keeps surviving passes in the order they were added.
	// The builder rejects stale handles, so insertion order already has
	// every producer before its consumers.
	OrderInsertion Ordering = iota

	// OrderTopological sorts surviving passes with Kahn's algorithm over
	// read-after-write, write-after-read and write-after-write
	// dependencies, breaking ties by insertion order.
	OrderTopological
)

// String returns the ordering name.
func (o Ordering) String() string {
	switch o {
	case OrderInsertion:
		return "insertion"
	case OrderTopological:
		return "topological"
	default:
		return "unknown"
	}
}

// GraphOption configures a Graph.
//
// Example:
//
//	g := framegraph.NewGraph(dev, pools,
//	    framegraph.WithLabel("shadow-frame"),
//	    framegraph.WithOrdering(framegraph.OrderTopological))
type GraphOption func(*graphOptions)

type graphOptions struct {
	ordering Ordering
	label    string
	queue    rhi.QueueType
	frame    uint64
}

func defaultGraphOptions() graphOptions {
	return graphOptions{
		ordering: OrderInsertion,
		label:    "frame",
		queue:    rhi.QueueGraphics,
	}
}

// WithOrdering selects the pass ordering strategy.
func WithOrdering(o Ordering) GraphOption {
	return func(opts *graphOptions) {
		opts.ordering = o
	}
}

// WithLabel sets the label of the frame's command encoder.
func WithLabel(label string) GraphOption {
	return func(opts *graphOptions) {
		opts.label = label
	}
}

// WithQueue selects the queue the frame is submitted to.
func WithQueue(q rhi.QueueType) GraphOption {
	return func(opts *graphOptions) {
		opts.queue = q
	}
}

func withFrame(n uint64) GraphOption {
	return func(opts *graphOptions) {
		opts.frame = n
	}
}

// RendererOption configures a Renderer.
type RendererOption func(*rendererOptions)

type rendererOptions struct {
	graph        []GraphOption
	fenceTimeout time.Duration
	pools        *pool.Pools
}

// DefaultFenceTimeout bounds the per-frame fence wait of a Renderer.
const DefaultFenceTimeout = 5 * time.Second

func defaultRendererOptions() rendererOptions {
	return rendererOptions{
		fenceTimeout: DefaultFenceTimeout,
	}
}

// WithGraphOptions applies opts to every graph the renderer creates.
func WithGraphOptions(opts ...GraphOption) RendererOption {
	return func(o *rendererOptions) {
		o.graph = append(o.graph, opts...)
	}
}

// WithFenceTimeout bounds how long RenderFrame waits for a frame's fence.
// Zero waits until the caller's context is done.
func WithFenceTimeout(d time.Duration) RendererOption {
	return func(o *rendererOptions) {
		o.fenceTimeout = d
	}
}

// WithPools makes the renderer use existing pools instead of creating
// its own. The renderer does not close pools it did not create.
func WithPools(p *pool.Pools) RendererOption {
	return func(o *rendererOptions) {
		o.pools = p
	}
}
