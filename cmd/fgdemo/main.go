// Command fgdemo builds a deferred shading frame graph, prints its
// compiled plan and renders a few frames on a headless backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/framegraph"
	_ "github.com/gogpu/framegraph/backend/recording"
	_ "github.com/gogpu/framegraph/backend/wgpu"
	"github.com/gogpu/framegraph/rhi"
)

func main() {
	var (
		backend = flag.String("backend", "recording", "device backend: recording or noop")
		width   = flag.Uint("width", 1280, "frame width")
		height  = flag.Uint("height", 720, "frame height")
		frames  = flag.Int("frames", 3, "frames to render")
		order   = flag.String("order", "insertion", "pass ordering: insertion or topological")
		dotFile = flag.String("dot", "", "write the first frame's graph in DOT format to this file")
		verbose = flag.Bool("v", false, "log debug output to stderr")
	)
	flag.Parse()

	if *verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		framegraph.SetLogger(logger)
	}

	ordering, err := parseOrdering(*order)
	if err != nil {
		log.Fatal(err)
	}

	dev, err := rhi.Open(*backend)
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	if d, ok := dev.(interface{ Close() }); ok {
		defer d.Close()
	}

	sc, err := newSwapchain(dev, uint32(*width), uint32(*height))
	if err != nil {
		log.Fatalf("Failed to create backbuffer: %v", err)
	}
	defer sc.destroy(dev)

	r := framegraph.NewRenderer(dev, framegraph.WithGraphOptions(
		framegraph.WithOrdering(ordering),
		framegraph.WithLabel("deferred"),
	))
	defer func() {
		if err := r.Close(); err != nil {
			log.Printf("Failed to close renderer: %v", err)
		}
	}()

	ctx := context.Background()
	if err := inspect(ctx, r, sc, *dotFile); err != nil {
		log.Fatalf("Frame 0: %v", err)
	}
	for i := 1; i < *frames; i++ {
		if err := r.RenderFrame(ctx, sc.build); err != nil {
			log.Fatalf("Frame %d: %v", i, err)
		}
	}

	log.Printf("Rendered %d frames on %q: %v", max(*frames, 1), *backend, r.Pools().Stats())
}

// inspect renders the first frame by hand so that its plan can be printed
// and its graph written out.
func inspect(ctx context.Context, r *framegraph.Renderer, sc *swapchain, dotFile string) error {
	g := r.NewGraph()
	if err := sc.build(g); err != nil {
		return err
	}
	plan, err := g.Compile()
	if err != nil {
		return err
	}
	fmt.Print(plan)

	if dotFile != "" {
		if err := writeDOT(g, dotFile); err != nil {
			return err
		}
		log.Printf("Graph written to %s", dotFile)
	}

	sub, err := g.Execute(ctx)
	if err != nil {
		return err
	}
	defer sub.Release()
	return sub.Wait(ctx)
}

func writeDOT(g *framegraph.Graph, name string) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := g.WriteDOT(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func parseOrdering(s string) (framegraph.Ordering, error) {
	for _, o := range []framegraph.Ordering{framegraph.OrderInsertion, framegraph.OrderTopological} {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown ordering %q", s)
}
