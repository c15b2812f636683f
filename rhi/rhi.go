package rhi

import (
	"context"
	"errors"

	"github.com/gogpu/gputypes"
)

// Errors returned by devices and the backend registry.
var (
	// ErrInvalidDescriptor is returned when a descriptor cannot describe a
	// real resource (zero size, undefined format).
	ErrInvalidDescriptor = errors.New("rhi: invalid descriptor")

	// ErrUnknownBackend is returned by Open for an unregistered name.
	ErrUnknownBackend = errors.New("rhi: unknown backend")

	// ErrNoQueue is returned when a device has no queue of the requested
	// type or index.
	ErrNoQueue = errors.New("rhi: no such queue")

	// ErrPassOpen is returned when a pass encoder is begun while another
	// pass encoder on the same command encoder has not been ended.
	ErrPassOpen = errors.New("rhi: pass encoder still open")

	// ErrFenceTimeout is returned by Fence.Wait when the context expires
	// before the fence is signaled.
	ErrFenceTimeout = errors.New("rhi: fence wait timed out")
)

// Device creates GPU objects. It is the only way the frame graph reaches
// the platform graphics API.
type Device interface {
	// CreateBuffer allocates a buffer.
	CreateBuffer(desc BufferDesc) (Buffer, error)

	// CreateTexture allocates a texture.
	CreateTexture(desc TextureDesc) (Texture, error)

	// DestroyBuffer releases a buffer created by this device.
	DestroyBuffer(b Buffer)

	// DestroyTexture releases a texture created by this device.
	DestroyTexture(t Texture)

	// CreateCommandEncoder returns a command encoder ready for recording.
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// Queue returns the queue of the given type and index.
	Queue(typ QueueType, index int) (Queue, error)

	// CreateFence creates a fence, optionally already signaled.
	CreateFence(signaled bool) (Fence, error)
}

// Buffer is a physical GPU buffer.
type Buffer interface {
	Desc() BufferDesc
	Label() string
}

// Texture is a physical GPU texture.
type Texture interface {
	Desc() TextureDesc
	Label() string
}

// Barrier transitions one resource between usage states.
// Exactly one of Buffer and Texture is set.
type Barrier struct {
	Buffer  Buffer
	Texture Texture
	From    ResourceState
	To      ResourceState
}

// CommandEncoder records the commands of one frame. Pass encoders are
// strictly scoped: at most one is open at a time and it must be ended
// before the next is begun or the encoder is finished.
type CommandEncoder interface {
	// ResourceBarrier records state transitions. It must not be called
	// while a pass encoder is open.
	ResourceBarrier(barriers []Barrier)

	BeginCopyPass(label string) (CopyPassEncoder, error)
	BeginComputePass(label string) (ComputePassEncoder, error)
	BeginGraphicsPass(info *GraphicsPassBeginInfo) (GraphicsPassEncoder, error)

	// Finish ends recording and returns the command buffer.
	Finish() (CommandBuffer, error)

	// Discard abandons recording. The encoder must not be used afterwards.
	Discard()
}

// CopyPassEncoder records transfer commands.
type CopyPassEncoder interface {
	CopyBufferToBuffer(src, dst Buffer, srcOffset, dstOffset, size uint64)
	CopyTextureToBuffer(src Texture, dst Buffer, bytesPerRow uint32)
	End() error
}

// ComputePassEncoder records compute dispatches.
type ComputePassEncoder interface {
	Dispatch(x, y, z uint32)
	End() error
}

// GraphicsPassEncoder records draw commands inside a render pass.
type GraphicsPassEncoder interface {
	SetVertexBuffer(slot uint32, b Buffer, offset uint64)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	End() error
}

// CommandBuffer is a finished, submittable recording.
type CommandBuffer interface {
	// Release frees the command buffer. It is safe to call more than once.
	Release()
}

// Queue submits command buffers.
type Queue interface {
	// Submit submits command buffers and signals fence on completion.
	// fence may be nil.
	Submit(buffers []CommandBuffer, fence Fence) error

	// WriteBuffer schedules a CPU to GPU write that completes before any
	// later submission on this queue executes.
	WriteBuffer(b Buffer, offset uint64, data []byte) error
}

// Fence is a CPU-visible completion signal.
type Fence interface {
	// Wait blocks until the fence is signaled or ctx is done.
	Wait(ctx context.Context) error

	// Signaled reports whether the fence has been signaled.
	Signaled() bool

	// Destroy releases the fence.
	Destroy()
}

// ColorAttachmentOps are the load/store operations of a color attachment.
type ColorAttachmentOps struct {
	Load       gputypes.LoadOp
	Store      gputypes.StoreOp
	ClearValue gputypes.Color
}

// DepthStencilOps are the load/store operations of a depth-stencil
// attachment. ReadOnly attachments are bound for depth testing only.
type DepthStencilOps struct {
	DepthLoad         gputypes.LoadOp
	DepthStore        gputypes.StoreOp
	DepthClearValue   float32
	StencilLoad       gputypes.LoadOp
	StencilStore      gputypes.StoreOp
	StencilClearValue uint32
	ReadOnly          bool
}

// ColorAttachment binds a texture as a render target.
type ColorAttachment struct {
	Texture Texture
	Ops     ColorAttachmentOps
}

// DepthStencilAttachment binds a texture as the depth-stencil target.
type DepthStencilAttachment struct {
	Texture Texture
	Ops     DepthStencilOps
}

// GraphicsPassBeginInfo describes the attachments of a graphics pass.
type GraphicsPassBeginInfo struct {
	Label        string
	Colors       []ColorAttachment
	DepthStencil *DepthStencilAttachment
}

// DefaultColorOps clears to transparent black and stores the result.
func DefaultColorOps() ColorAttachmentOps {
	return ColorAttachmentOps{
		Load:  gputypes.LoadOpClear,
		Store: gputypes.StoreOpStore,
	}
}

// DefaultDepthStencilOps clears depth to 1 and stencil to 0 and stores both.
func DefaultDepthStencilOps() DepthStencilOps {
	return DepthStencilOps{
		DepthLoad:       gputypes.LoadOpClear,
		DepthStore:      gputypes.StoreOpStore,
		DepthClearValue: 1,
		StencilLoad:     gputypes.LoadOpClear,
		StencilStore:    gputypes.StoreOpStore,
	}
}
