package framegraph

import "errors"

// Build errors. They are reported by the builder call that caused them
// and then stick to the graph: every later AddPass, Compile and Execute
// returns the first one.
var (
	// ErrInvalidHandle is returned for a handle whose index is the
	// sentinel or beyond the registered resources.
	ErrInvalidHandle = errors.New("framegraph: invalid handle")

	// ErrStaleHandle is returned for a handle whose version has been
	// superseded by a later write. Downstream passes must use the handle
	// returned by that write.
	ErrStaleHandle = errors.New("framegraph: stale handle")

	// ErrVersionOverflow is returned when a write would wrap the handle
	// version.
	ErrVersionOverflow = errors.New("framegraph: resource version overflow")

	// ErrTooManyResources is returned when a graph runs out of handle
	// indices.
	ErrTooManyResources = errors.New("framegraph: too many resources")

	// ErrWrongPassKind is returned for an operation the pass kind does not
	// support, such as an attachment on a compute pass.
	ErrWrongPassKind = errors.New("framegraph: operation not supported by pass kind")

	// ErrWrongResourceKind is returned when a buffer operation is applied
	// to a texture or the reverse.
	ErrWrongResourceKind = errors.New("framegraph: wrong resource kind")

	// ErrUploadAfterUse is returned by UploadBuffer for a buffer that a
	// pass already reads or writes on the GPU in this frame. Queue writes
	// land before the frame's command buffer, so they must come first.
	ErrUploadAfterUse = errors.New("framegraph: upload after GPU use")

	// ErrGraphCompiled is returned when a compiled graph is mutated.
	ErrGraphCompiled = errors.New("framegraph: graph already compiled")
)

// Compile and execution errors.
var (
	// ErrCycle is returned by topological ordering when the pass
	// dependencies contain a cycle.
	ErrCycle = errors.New("framegraph: dependency cycle")

	// ErrResourceAllocation wraps a pool or device failure while realizing
	// virtual resources. Nothing is recorded or submitted for the frame.
	ErrResourceAllocation = errors.New("framegraph: resource allocation failed")

	// ErrGraphExecuted is returned when a graph is executed twice.
	ErrGraphExecuted = errors.New("framegraph: graph already executed")

	// ErrNotRealized is returned when a pass resolves a resource that has
	// no physical binding.
	ErrNotRealized = errors.New("framegraph: resource not realized")

	// ErrRendererClosed is returned by a closed Renderer.
	ErrRendererClosed = errors.New("framegraph: renderer closed")
)
