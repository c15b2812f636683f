package framegraph

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/framegraph/pool"
	"github.com/gogpu/framegraph/rhi"
)

// Renderer drives the per-frame loop on one device: it owns the device's
// resource pools and a frame counter, and builds, executes, waits for and
// releases one graph per frame.
//
// Renderer is safe for concurrent use, but frames are rendered one at a
// time.
type Renderer struct {
	mu        sync.Mutex
	dev       rhi.Device
	pools     *pool.Pools
	ownsPools bool
	opts      rendererOptions
	frame     uint64
	closed    bool
	// pending holds frames whose fence wait failed. Their resources stay
	// checked out until the fence signals.
	pending []*Submission
}

// NewRenderer creates a renderer for dev.
//
// Example:
//
//	r := framegraph.NewRenderer(dev, framegraph.WithFenceTimeout(time.Second))
//	defer r.Close()
//
//	err := r.RenderFrame(ctx, func(g *framegraph.Graph) error {
//	    return g.AddFuncPass("clear", framegraph.PassGraphics, setup, nil)
//	})
func NewRenderer(dev rhi.Device, opts ...RendererOption) *Renderer {
	o := defaultRendererOptions()
	for _, opt := range opts {
		opt(&o)
	}
	r := &Renderer{dev: dev, opts: o, pools: o.pools}
	if r.pools == nil {
		r.pools = pool.New(dev)
		r.ownsPools = true
	}
	trackRenderer(r)
	Logger().Info("framegraph: renderer created", "ordering", r.graphOptions().ordering.String())
	return r
}

func (r *Renderer) graphOptions() graphOptions {
	o := defaultGraphOptions()
	for _, opt := range r.opts.graph {
		opt(&o)
	}
	return o
}

// Device returns the renderer's device.
func (r *Renderer) Device() rhi.Device { return r.dev }

// Pools returns the renderer's resource pools.
func (r *Renderer) Pools() *pool.Pools { return r.pools }

// Frame returns the number of frames started so far.
func (r *Renderer) Frame() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

// NewGraph returns an empty graph for the next frame. Most callers use
// RenderFrame instead.
func (r *Renderer) NewGraph() *Graph {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newGraph()
}

func (r *Renderer) newGraph() *Graph {
	opts := append([]GraphOption{withFrame(r.frame)}, r.opts.graph...)
	return NewGraph(r.dev, r.pools, opts...)
}

// RenderFrame renders one frame: build populates a fresh graph, which is
// then executed; RenderFrame waits for the frame's fence and releases its
// resources back to the pools.
//
// A failed frame is logged and its error returned; nothing of a frame
// that fails before submission reaches the GPU. The caller decides
// whether to skip presentation or stop.
//
// If the fence wait times out or ctx is canceled, the frame may still be
// running on the GPU. It is kept in flight and released by a later
// RenderFrame or by Close once its fence signals.
func (r *Renderer) RenderFrame(ctx context.Context, build func(*Graph) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRendererClosed
	}

	r.reap()

	g := r.newGraph()
	r.frame++

	if err := build(g); err != nil {
		return r.failed(g, fmt.Errorf("framegraph: build frame %d: %w", g.Frame(), err))
	}
	sub, err := g.Execute(ctx)
	if err != nil {
		return r.failed(g, err)
	}

	waitCtx := ctx
	if r.opts.fenceTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.opts.fenceTimeout)
		defer cancel()
	}
	if err := sub.Wait(waitCtx); err != nil {
		r.pending = append(r.pending, sub)
		err = fmt.Errorf("framegraph: wait frame %d: %w", g.Frame(), err)
		Logger().Warn("framegraph: frame failed", "frame", g.Frame(), "err", err, "in_flight", len(r.pending))
		return err
	}
	sub.Release()
	return nil
}

// reap releases the frames in flight whose fences have signaled.
func (r *Renderer) reap() {
	live := r.pending[:0]
	for _, sub := range r.pending {
		if sub.Fence().Signaled() {
			sub.Release()
			Logger().Debug("framegraph: late frame released", "frame", sub.g.Frame())
			continue
		}
		live = append(live, sub)
	}
	clear(r.pending[len(live):])
	r.pending = live
}

// InFlight returns the number of frames whose fence wait failed and whose
// fence has not signaled yet.
func (r *Renderer) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reap()
	return len(r.pending)
}

func (r *Renderer) failed(g *Graph, err error) error {
	g.release()
	Logger().Warn("framegraph: frame failed", "frame", g.Frame(), "err", err)
	return err
}

// Close tears down the pools the renderer created. It fails with
// [pool.ErrInUse] if pooled resources are still referenced, including by
// frames still in flight.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.reap()
	if n := len(r.pending); n > 0 {
		err := fmt.Errorf("%w: %d frames in flight", pool.ErrInUse, n)
		Logger().Warn("framegraph: close", "err", err)
		return err
	}
	if r.ownsPools {
		if err := r.pools.Close(); err != nil {
			Logger().Warn("framegraph: pool teardown", "err", err)
			return err
		}
	}
	r.closed = true
	untrackRenderer(r)
	Logger().Info("framegraph: renderer closed", "frames", r.frame)
	return nil
}
