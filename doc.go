// Package framegraph schedules the GPU work of one frame.
//
// Render code declares passes (copy, compute, graphics) and the virtual
// buffers and textures they read and write. The graph then
//
//  1. records producer and consumer edges, giving every write a new
//     resource version,
//  2. culls passes and resources whose results nothing consumes,
//  3. orders the surviving passes, realizes virtual resources from a
//     cross-frame [pool.Pools] and plans state transitions,
//  4. records each pass into an encoder scoped to its kind and submits a
//     single command buffer with a fence.
//
// The device is reached only through the [rhi.Device] interface; see
// backend/wgpu for the gogpu/wgpu HAL implementation and
// backend/recording for an in-memory one.
//
// # Quick Start
//
//	dev := recording.NewDevice()
//	r := framegraph.NewRenderer(dev)
//	defer r.Close()
//
//	err := r.RenderFrame(ctx, func(g *framegraph.Graph) error {
//	    var lit framegraph.Handle
//	    err := g.AddFuncPass("lighting", framegraph.PassCompute,
//	        func(b *framegraph.Builder) error {
//	            h := b.CreateTexture("lit", rhi.Texture2D(w, h, format, usage))
//	            var err error
//	            lit, err = b.Write(h)
//	            return err
//	        },
//	        func(pc *framegraph.PassContext) error {
//	            pc.ComputeEncoder().Dispatch(w/8, h/8, 1)
//	            return nil
//	        })
//	    if err != nil {
//	        return err
//	    }
//	    return g.AddFuncPass("present", framegraph.PassGraphics,
//	        func(b *framegraph.Builder) error {
//	            b.SideEffect()
//	            _, err := b.Read(lit)
//	            return err
//	        }, nil)
//	})
//
// # Handles and Versions
//
// A [Handle] packs a 16-bit resource index and a 16-bit version. Read
// returns the handle it was given; Write returns the next version, and
// the previous handle becomes stale. Passes must be added after the
// passes that produce what they read, and using a stale handle fails the
// build with [ErrStaleHandle], so insertion order is always a valid
// execution order. [OrderTopological] additionally sorts passes by their
// data dependencies.
//
// # Culling
//
// Liveness is computed by reference counting: a pass is referenced by the
// resources it writes that are still read, a resource by the passes that
// still read it. Passes marked with [Builder.SideEffect] and imported
// resources marked with [Graph.MarkUsed] are roots.
//
// # Errors
//
// Builder errors fail fast and stick to the graph. Allocation failures
// during Compile wrap [ErrResourceAllocation]. In both cases nothing is
// submitted.
//
// # Logging
//
// The package logs through log/slog; see [SetLogger]. Nothing is logged by
// default.
package framegraph
