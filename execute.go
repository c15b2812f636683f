package framegraph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/framegraph/rhi"
)

// PassContext is handed to a pass's Execute. It resolves handles to the
// physical resources bound for the frame and exposes the encoder scoped
// to the pass kind.
type PassContext struct {
	ctx  context.Context
	g    *Graph
	pass *passNode

	copy     rhi.CopyPassEncoder
	compute  rhi.ComputePassEncoder
	graphics rhi.GraphicsPassEncoder
}

// Context returns the context passed to Execute.
func (pc *PassContext) Context() context.Context { return pc.ctx }

// Name returns the pass name.
func (pc *PassContext) Name() string { return pc.pass.name }

// Kind returns the pass kind.
func (pc *PassContext) Kind() PassKind { return pc.pass.kind }

// Frame returns the frame index of the graph.
func (pc *PassContext) Frame() uint64 { return pc.g.opts.frame }

// Logger returns the package logger annotated with the pass name.
func (pc *PassContext) Logger() *slog.Logger {
	return Logger().With("pass", pc.pass.name)
}

// CopyEncoder returns the encoder of a copy pass, or nil.
func (pc *PassContext) CopyEncoder() rhi.CopyPassEncoder { return pc.copy }

// ComputeEncoder returns the encoder of a compute pass, or nil.
func (pc *PassContext) ComputeEncoder() rhi.ComputePassEncoder { return pc.compute }

// GraphicsEncoder returns the encoder of a graphics pass, or nil.
func (pc *PassContext) GraphicsEncoder() rhi.GraphicsPassEncoder { return pc.graphics }

// Buffer returns the physical buffer bound to h. Any version of the
// resource resolves to the same buffer.
func (pc *PassContext) Buffer(h Handle) (rhi.Buffer, error) {
	r, err := pc.g.bound(h, ResourceBuffer)
	if err != nil {
		return nil, err
	}
	return r.buffer, nil
}

// Texture returns the physical texture bound to h.
func (pc *PassContext) Texture(h Handle) (rhi.Texture, error) {
	r, err := pc.g.bound(h, ResourceTexture)
	if err != nil {
		return nil, err
	}
	return r.texture, nil
}

func (g *Graph) bound(h Handle, kind ResourceKind) (*resourceNode, error) {
	idx, err := g.slot(h)
	if err != nil {
		return nil, err
	}
	r := &g.resources[idx]
	if r.kind != kind {
		return nil, fmt.Errorf("%w: %q is a %s", ErrWrongResourceKind, r.name, r.kind)
	}
	if (kind == ResourceBuffer && r.buffer == nil) || (kind == ResourceTexture && r.texture == nil) {
		return nil, fmt.Errorf("%w: %q", ErrNotRealized, r.name)
	}
	return r, nil
}

// Submission is an executed frame.
type Submission struct {
	g     *Graph
	fence rhi.Fence
	cmd   rhi.CommandBuffer
	once  sync.Once
}

// Fence returns the fence signaled when the frame completes on the GPU.
func (s *Submission) Fence() rhi.Fence { return s.fence }

// Wait blocks until the frame completes or ctx is done.
func (s *Submission) Wait(ctx context.Context) error {
	return s.fence.Wait(ctx)
}

// Release returns the frame's pooled resources to the pools, frees the
// command buffer and destroys the fence. Call it after Wait; releasing a
// frame still in flight lets the next frame reuse its resources. Release
// is idempotent.
func (s *Submission) Release() {
	s.once.Do(func() {
		s.g.release()
		s.cmd.Release()
		s.fence.Destroy()
	})
}

// Execute compiles the graph if needed, records every surviving pass into
// one command encoder and submits it with a fence.
//
// Each pass gets its planned barriers followed by an encoder scoped to its
// kind; graphics passes begin with their attachments resolved. Queued
// buffer uploads are written through the queue before submission. If any
// step fails the encoder is discarded, pooled resources are released and
// nothing is submitted.
func (g *Graph) Execute(ctx context.Context) (*Submission, error) {
	if g.executed {
		return nil, ErrGraphExecuted
	}
	plan, err := g.Compile()
	if err != nil {
		return nil, err
	}
	g.executed = true

	sub, err := g.submit(ctx, plan)
	if err != nil {
		g.release()
		Logger().Warn("framegraph: frame not submitted", "label", g.opts.label, "err", err)
		return nil, err
	}
	return sub, nil
}

func (g *Graph) submit(ctx context.Context, plan *Plan) (*Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queue, err := g.dev.Queue(g.opts.queue, 0)
	if err != nil {
		return nil, fmt.Errorf("framegraph: queue: %w", err)
	}
	enc, err := g.dev.CreateCommandEncoder(g.opts.label)
	if err != nil {
		return nil, fmt.Errorf("framegraph: create encoder: %w", err)
	}

	for _, pp := range plan.Passes {
		if err := g.record(ctx, enc, pp); err != nil {
			enc.Discard()
			return nil, err
		}
	}
	if len(plan.Final) > 0 {
		enc.ResourceBarrier(g.rhiBarriers(plan.Final))
	}

	cmd, err := enc.Finish()
	if err != nil {
		return nil, fmt.Errorf("framegraph: finish: %w", err)
	}

	if err := g.upload(queue, plan); err != nil {
		cmd.Release()
		return nil, err
	}

	fence, err := g.dev.CreateFence(false)
	if err != nil {
		cmd.Release()
		return nil, fmt.Errorf("framegraph: create fence: %w", err)
	}
	if err := queue.Submit([]rhi.CommandBuffer{cmd}, fence); err != nil {
		cmd.Release()
		fence.Destroy()
		return nil, fmt.Errorf("framegraph: submit: %w", err)
	}

	Logger().Debug("framegraph: submitted", "label", g.opts.label, "frame", g.opts.frame, "passes", len(plan.Passes))
	return &Submission{g: g, fence: fence, cmd: cmd}, nil
}

// record encodes one pass.
func (g *Graph) record(ctx context.Context, enc rhi.CommandEncoder, pp PlannedPass) error {
	p := &g.passes[pp.Index]
	if len(pp.Barriers) > 0 {
		enc.ResourceBarrier(g.rhiBarriers(pp.Barriers))
	}

	pc := &PassContext{ctx: ctx, g: g, pass: p}
	var (
		end func() error
		err error
	)
	switch p.kind {
	case PassCopy:
		pc.copy, err = enc.BeginCopyPass(p.name)
		if err == nil {
			end = pc.copy.End
		}
	case PassCompute:
		pc.compute, err = enc.BeginComputePass(p.name)
		if err == nil {
			end = pc.compute.End
		}
	case PassGraphics:
		var info *rhi.GraphicsPassBeginInfo
		if info, err = g.beginInfo(p); err == nil {
			pc.graphics, err = enc.BeginGraphicsPass(info)
		}
		if err == nil {
			end = pc.graphics.End
		}
	default:
		err = fmt.Errorf("%w: %d", ErrWrongPassKind, p.kind)
	}
	if err != nil {
		return fmt.Errorf("framegraph: begin %s pass %q: %w", p.kind, p.name, err)
	}

	if p.exec != nil {
		if err := p.exec(pc); err != nil {
			_ = end()
			return fmt.Errorf("framegraph: execute %q: %w", p.name, err)
		}
	}
	if err := end(); err != nil {
		return fmt.Errorf("framegraph: end pass %q: %w", p.name, err)
	}
	return nil
}

// beginInfo resolves the attachments of a graphics pass.
func (g *Graph) beginInfo(p *passNode) (*rhi.GraphicsPassBeginInfo, error) {
	info := &rhi.GraphicsPassBeginInfo{Label: p.name}
	for _, c := range p.colors {
		r, err := g.bound(c.handle, ResourceTexture)
		if err != nil {
			return nil, err
		}
		info.Colors = append(info.Colors, rhi.ColorAttachment{Texture: r.texture, Ops: c.ops})
	}
	if p.depth != nil {
		r, err := g.bound(p.depth.handle, ResourceTexture)
		if err != nil {
			return nil, err
		}
		info.DepthStencil = &rhi.DepthStencilAttachment{Texture: r.texture, Ops: p.depth.ops}
	}
	return info, nil
}

// upload performs the queued buffer writes of the surviving passes.
func (g *Graph) upload(queue rhi.Queue, plan *Plan) error {
	for _, pp := range plan.Passes {
		for _, u := range g.passes[pp.Index].uploads {
			r, err := g.bound(u.handle, ResourceBuffer)
			if err != nil {
				return err
			}
			if err := queue.WriteBuffer(r.buffer, u.offset, u.data); err != nil {
				return fmt.Errorf("framegraph: upload to %q: %w", r.name, err)
			}
		}
	}
	return nil
}

func (g *Graph) rhiBarriers(bs []Barrier) []rhi.Barrier {
	out := make([]rhi.Barrier, 0, len(bs))
	for _, b := range bs {
		r := &g.resources[b.Resource.Index()]
		rb := rhi.Barrier{From: b.From, To: b.To}
		if r.kind == ResourceBuffer {
			rb.Buffer = r.buffer
		} else {
			rb.Texture = r.texture
		}
		out = append(out, rb)
		Logger().Debug("framegraph: barrier", "resource", b.Name, "from", b.From.String(), "to", b.To.String())
	}
	return out
}
