// Package recording provides an in-memory rhi.Device that records every
// command it receives as a typed value.
//
// Nothing is sent to a GPU. Buffers and textures are plain Go values,
// command encoders append typed commands to their command buffer, and
// queue submission appends those commands to the device's [Recording].
// Commands of discarded encoders never reach the recording, which makes
// the device suitable for asserting that a failed frame submitted nothing.
//
// # Example
//
//	dev := recording.NewDevice(recording.WithAllocationBudget(8))
//	r := framegraph.NewRenderer(dev)
//	...
//	for _, cmd := range dev.Recording().Commands() {
//	    fmt.Println(cmd.Type())
//	}
//
// The device registers itself as the "recording" backend.
package recording

import "github.com/gogpu/framegraph/rhi"

// CommandType identifies the type of a command.
type CommandType uint8

const (
	// Encoder commands
	CmdBarrier            CommandType = iota // Resource state transitions
	CmdBeginCopyPass                         // Open a copy pass
	CmdBeginComputePass                      // Open a compute pass
	CmdBeginGraphicsPass                     // Open a graphics pass
	CmdEndPass                               // Close the open pass
	CmdCopyBufferToBuffer                    // Buffer to buffer copy
	CmdCopyTextureToBuffer                   // Texture readback
	CmdDispatch                              // Compute dispatch
	CmdSetVertexBuffer                       // Bind a vertex buffer
	CmdDraw                                  // Draw call

	// Queue commands
	CmdWriteBuffer // CPU to GPU buffer write
	CmdSubmit      // Command buffer submission
)

var commandTypeNames = [...]string{
	CmdBarrier:             "Barrier",
	CmdBeginCopyPass:       "BeginCopyPass",
	CmdBeginComputePass:    "BeginComputePass",
	CmdBeginGraphicsPass:   "BeginGraphicsPass",
	CmdEndPass:             "EndPass",
	CmdCopyBufferToBuffer:  "CopyBufferToBuffer",
	CmdCopyTextureToBuffer: "CopyTextureToBuffer",
	CmdDispatch:            "Dispatch",
	CmdSetVertexBuffer:     "SetVertexBuffer",
	CmdDraw:                "Draw",
	CmdWriteBuffer:         "WriteBuffer",
	CmdSubmit:              "Submit",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is implemented by all recorded command types.
type Command interface {
	Type() CommandType
}

// BarrierCommand records a batch of state transitions.
type BarrierCommand struct {
	Barriers []rhi.Barrier
}

// Type implements Command.
func (BarrierCommand) Type() CommandType { return CmdBarrier }

// BeginCopyPassCommand opens a copy pass.
type BeginCopyPassCommand struct {
	Label string
}

// Type implements Command.
func (BeginCopyPassCommand) Type() CommandType { return CmdBeginCopyPass }

// BeginComputePassCommand opens a compute pass.
type BeginComputePassCommand struct {
	Label string
}

// Type implements Command.
func (BeginComputePassCommand) Type() CommandType { return CmdBeginComputePass }

// BeginGraphicsPassCommand opens a graphics pass with its attachments.
type BeginGraphicsPassCommand struct {
	Info rhi.GraphicsPassBeginInfo
}

// Type implements Command.
func (BeginGraphicsPassCommand) Type() CommandType { return CmdBeginGraphicsPass }

// EndPassCommand closes the pass opened with the same label.
type EndPassCommand struct {
	Label string
}

// Type implements Command.
func (EndPassCommand) Type() CommandType { return CmdEndPass }

// CopyBufferToBufferCommand copies a byte range between buffers.
type CopyBufferToBufferCommand struct {
	Src, Dst             rhi.Buffer
	SrcOffset, DstOffset uint64
	Size                 uint64
}

// Type implements Command.
func (CopyBufferToBufferCommand) Type() CommandType { return CmdCopyBufferToBuffer }

// CopyTextureToBufferCommand copies mip 0 of a texture into a buffer.
type CopyTextureToBufferCommand struct {
	Src         rhi.Texture
	Dst         rhi.Buffer
	BytesPerRow uint32
}

// Type implements Command.
func (CopyTextureToBufferCommand) Type() CommandType { return CmdCopyTextureToBuffer }

// DispatchCommand dispatches compute workgroups.
type DispatchCommand struct {
	X, Y, Z uint32
}

// Type implements Command.
func (DispatchCommand) Type() CommandType { return CmdDispatch }

// SetVertexBufferCommand binds a vertex buffer to a slot.
type SetVertexBufferCommand struct {
	Slot   uint32
	Buffer rhi.Buffer
	Offset uint64
}

// Type implements Command.
func (SetVertexBufferCommand) Type() CommandType { return CmdSetVertexBuffer }

// DrawCommand records a non-indexed draw.
type DrawCommand struct {
	VertexCount, InstanceCount uint32
	FirstVertex, FirstInstance uint32
}

// Type implements Command.
func (DrawCommand) Type() CommandType { return CmdDraw }

// WriteBufferCommand records a queue buffer write.
type WriteBufferCommand struct {
	Buffer rhi.Buffer
	Offset uint64
	Data   []byte
}

// Type implements Command.
func (WriteBufferCommand) Type() CommandType { return CmdWriteBuffer }

// SubmitCommand marks the end of a submitted command buffer.
type SubmitCommand struct {
	Label    string
	Commands int
	Fenced   bool
}

// Type implements Command.
func (SubmitCommand) Type() CommandType { return CmdSubmit }
