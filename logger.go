package framegraph

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/framegraph/rhi"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger used by the frame graph.
// By default nothing is logged. Pass nil to restore the silent default.
//
// Log levels:
//   - [slog.LevelDebug]: per-frame detail (culled passes, barriers, pool hits)
//   - [slog.LevelInfo]: lifecycle (renderer created and closed)
//   - [slog.LevelWarn]: failed frames, pool teardown with resources in use
//
// Example:
//
//	framegraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
//
// The logger is also passed to the device of every open [Renderer] that
// has a SetLogger(*slog.Logger) method, such as the wgpu backend.
//
// SetLogger is safe for concurrent use.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	renderersMu.Lock()
	devs := make([]rhi.Device, 0, len(renderers))
	for r := range renderers {
		devs = append(devs, r.dev)
	}
	renderersMu.Unlock()
	for _, dev := range devs {
		propagateLogger(dev, l)
	}
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes l to dev if it implements loggerSetter.
func propagateLogger(dev rhi.Device, l *slog.Logger) {
	if ls, ok := dev.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

// renderers are the open renderers, whose devices follow SetLogger.
var (
	renderersMu sync.Mutex
	renderers   = map[*Renderer]struct{}{}
)

func trackRenderer(r *Renderer) {
	renderersMu.Lock()
	renderers[r] = struct{}{}
	renderersMu.Unlock()
	propagateLogger(r.dev, Logger())
}

func untrackRenderer(r *Renderer) {
	renderersMu.Lock()
	delete(renderers, r)
	renderersMu.Unlock()
}
