package rhi

import "github.com/gogpu/gputypes"

// ResourceState is the usage state a resource must be in for an access.
// A transition barrier is required whenever consecutive accesses to the
// same resource require different states.
type ResourceState uint8

const (
	StateUndefined ResourceState = iota
	StateCopySrc
	StateCopyDst
	StateShaderRead
	StateStorage
	StateRenderTarget
	StateDepthStencilWrite
	StateDepthStencilRead
	StateVertex
	StatePresent
)

var resourceStateNames = [...]string{
	StateUndefined:         "Undefined",
	StateCopySrc:           "CopySrc",
	StateCopyDst:           "CopyDst",
	StateShaderRead:        "ShaderRead",
	StateStorage:           "Storage",
	StateRenderTarget:      "RenderTarget",
	StateDepthStencilWrite: "DepthStencilWrite",
	StateDepthStencilRead:  "DepthStencilRead",
	StateVertex:            "Vertex",
	StatePresent:           "Present",
}

// String returns the state name.
func (s ResourceState) String() string {
	if int(s) < len(resourceStateNames) {
		return resourceStateNames[s]
	}
	return "Unknown"
}

// IsWrite reports whether an access in this state modifies the resource.
func (s ResourceState) IsWrite() bool {
	switch s {
	case StateCopyDst, StateStorage, StateRenderTarget, StateDepthStencilWrite:
		return true
	default:
		return false
	}
}

// TextureUsage maps the state to the WebGPU texture usage that a
// backend must transition to.
func (s ResourceState) TextureUsage() gputypes.TextureUsage {
	switch s {
	case StateCopySrc:
		return gputypes.TextureUsageCopySrc
	case StateCopyDst:
		return gputypes.TextureUsageCopyDst
	case StateShaderRead:
		return gputypes.TextureUsageTextureBinding
	case StateStorage:
		return gputypes.TextureUsageStorageBinding
	case StateRenderTarget, StateDepthStencilWrite, StateDepthStencilRead, StatePresent:
		return gputypes.TextureUsageRenderAttachment
	default:
		return 0
	}
}

// BufferUsage maps the state to the WebGPU buffer usage.
func (s ResourceState) BufferUsage() gputypes.BufferUsage {
	switch s {
	case StateCopySrc:
		return gputypes.BufferUsageCopySrc
	case StateCopyDst:
		return gputypes.BufferUsageCopyDst
	case StateShaderRead:
		return gputypes.BufferUsageUniform
	case StateStorage:
		return gputypes.BufferUsageStorage
	case StateVertex:
		return gputypes.BufferUsageVertex
	default:
		return 0
	}
}

// QueueType selects a device queue family.
type QueueType uint8

const (
	QueueGraphics QueueType = iota
	QueueCompute
	QueueTransfer
)

// String returns the queue type name.
func (q QueueType) String() string {
	switch q {
	case QueueGraphics:
		return "Graphics"
	case QueueCompute:
		return "Compute"
	case QueueTransfer:
		return "Transfer"
	default:
		return "Unknown"
	}
}
