package recording

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/framegraph/rhi"
)

// Errors returned by the recording device.
var (
	// ErrOutOfMemory is returned when an allocation exceeds the configured
	// budget or is rejected by a WithFailOn predicate.
	ErrOutOfMemory = errors.New("recording: out of device memory")

	// ErrEncoderClosed is returned when an encoder is used after Finish
	// or Discard.
	ErrEncoderClosed = errors.New("recording: encoder already finished")

	// ErrPassEnded is returned when End is called twice on a pass encoder.
	ErrPassEnded = errors.New("recording: pass already ended")

	// ErrForeignResource is returned when a resource created by another
	// device is passed to this one.
	ErrForeignResource = errors.New("recording: resource not created by a recording device")
)

func init() {
	rhi.Register("recording", func() (rhi.Device, error) {
		return NewDevice(), nil
	})
}

// Option configures a Device.
type Option func(*options)

type options struct {
	budget int // -1 means unlimited
	failOn func(desc any) bool
}

func defaultOptions() options {
	return options{budget: -1}
}

// WithAllocationBudget makes every allocation after the first n fail with
// ErrOutOfMemory. Buffers and textures share the budget.
func WithAllocationBudget(n int) Option {
	return func(o *options) {
		o.budget = n
	}
}

// WithFailOn makes allocations fail with ErrOutOfMemory when fn returns
// true. desc is an rhi.BufferDesc or an rhi.TextureDesc.
func WithFailOn(fn func(desc any) bool) Option {
	return func(o *options) {
		o.failOn = fn
	}
}

// Stats counts the objects a Device has created and destroyed.
type Stats struct {
	BuffersCreated    int
	BuffersDestroyed  int
	TexturesCreated   int
	TexturesDestroyed int
	EncodersCreated   int
	EncodersDiscarded int
	FencesCreated     int
	Submissions       int
}

// LiveBuffers returns the number of buffers not yet destroyed.
func (s Stats) LiveBuffers() int { return s.BuffersCreated - s.BuffersDestroyed }

// LiveTextures returns the number of textures not yet destroyed.
func (s Stats) LiveTextures() int { return s.TexturesCreated - s.TexturesDestroyed }

// Device is an in-memory rhi.Device.
//
// Device is safe for concurrent use.
type Device struct {
	mu     sync.Mutex
	opts   options
	nextID int
	stats  Stats
	cmds   []Command
	queues map[rhi.QueueType]*Queue
}

// NewDevice creates a recording device.
func NewDevice(opts ...Option) *Device {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := &Device{opts: o}
	d.queues = map[rhi.QueueType]*Queue{
		rhi.QueueGraphics: {dev: d, typ: rhi.QueueGraphics},
		rhi.QueueCompute:  {dev: d, typ: rhi.QueueCompute},
		rhi.QueueTransfer: {dev: d, typ: rhi.QueueTransfer},
	}
	return d
}

// Buffer is a recorded buffer. Queue writes land in its contents.
type Buffer struct {
	id        int
	desc      rhi.BufferDesc
	label     string
	data      []byte
	destroyed bool
}

// Desc implements rhi.Buffer.
func (b *Buffer) Desc() rhi.BufferDesc { return b.desc }

// Label implements rhi.Buffer.
func (b *Buffer) Label() string { return b.label }

// ID returns the creation sequence number of the buffer.
func (b *Buffer) ID() int { return b.id }

// Bytes returns a copy of the data written to the buffer through the queue.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Destroyed reports whether the device destroyed the buffer.
func (b *Buffer) Destroyed() bool { return b.destroyed }

// Texture is a recorded texture.
type Texture struct {
	id        int
	desc      rhi.TextureDesc
	label     string
	destroyed bool
}

// Desc implements rhi.Texture.
func (t *Texture) Desc() rhi.TextureDesc { return t.desc }

// Label implements rhi.Texture.
func (t *Texture) Label() string { return t.label }

// ID returns the creation sequence number of the texture.
func (t *Texture) ID() int { return t.id }

// Destroyed reports whether the device destroyed the texture.
func (t *Texture) Destroyed() bool { return t.destroyed }

// NewExternalTexture creates a texture that the device did not allocate,
// standing in for a swap chain image. It does not count against the
// allocation budget.
func NewExternalTexture(label string, desc rhi.TextureDesc) *Texture {
	return &Texture{id: -1, desc: desc, label: label}
}

// NewExternalBuffer creates a buffer that the device did not allocate.
func NewExternalBuffer(label string, desc rhi.BufferDesc) *Buffer {
	return &Buffer{id: -1, desc: desc, label: label}
}

// allocate checks the budget and failure predicate. d.mu must be held.
func (d *Device) allocate(desc any) error {
	if d.opts.failOn != nil && d.opts.failOn(desc) {
		return fmt.Errorf("%w: %v", ErrOutOfMemory, desc)
	}
	if d.opts.budget >= 0 {
		if d.opts.budget == 0 {
			return fmt.Errorf("%w: budget exhausted allocating %v", ErrOutOfMemory, desc)
		}
		d.opts.budget--
	}
	d.nextID++
	return nil
}

// CreateBuffer implements rhi.Device.
func (d *Device) CreateBuffer(desc rhi.BufferDesc) (rhi.Buffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.allocate(desc); err != nil {
		return nil, err
	}
	d.stats.BuffersCreated++
	return &Buffer{id: d.nextID, desc: desc, label: fmt.Sprintf("buffer#%d", d.nextID)}, nil
}

// CreateTexture implements rhi.Device.
func (d *Device) CreateTexture(desc rhi.TextureDesc) (rhi.Texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.allocate(desc); err != nil {
		return nil, err
	}
	d.stats.TexturesCreated++
	return &Texture{id: d.nextID, desc: desc, label: fmt.Sprintf("texture#%d", d.nextID)}, nil
}

// DestroyBuffer implements rhi.Device.
func (d *Device) DestroyBuffer(b rhi.Buffer) {
	buf, ok := b.(*Buffer)
	if !ok || buf.id < 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if buf.destroyed {
		return
	}
	buf.destroyed = true
	d.stats.BuffersDestroyed++
}

// DestroyTexture implements rhi.Device.
func (d *Device) DestroyTexture(t rhi.Texture) {
	tex, ok := t.(*Texture)
	if !ok || tex.id < 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if tex.destroyed {
		return
	}
	tex.destroyed = true
	d.stats.TexturesDestroyed++
}

// CreateCommandEncoder implements rhi.Device.
func (d *Device) CreateCommandEncoder(label string) (rhi.CommandEncoder, error) {
	d.mu.Lock()
	d.stats.EncodersCreated++
	d.mu.Unlock()
	return &CommandEncoder{dev: d, label: label}, nil
}

// Queue implements rhi.Device. Every queue type has exactly one queue.
func (d *Device) Queue(typ rhi.QueueType, index int) (rhi.Queue, error) {
	q, ok := d.queues[typ]
	if !ok || index != 0 {
		return nil, fmt.Errorf("%w: %v[%d]", rhi.ErrNoQueue, typ, index)
	}
	return q, nil
}

// CreateFence implements rhi.Device.
func (d *Device) CreateFence(signaled bool) (rhi.Fence, error) {
	d.mu.Lock()
	d.stats.FencesCreated++
	d.mu.Unlock()
	f := &Fence{done: make(chan struct{})}
	if signaled {
		f.signal()
	}
	return f, nil
}

// Stats returns the object counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Recording returns a snapshot of every submitted command.
func (d *Device) Recording() *Recording {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &Recording{commands: append([]Command(nil), d.cmds...)}
}

// Reset clears the recorded commands. Counters are kept.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cmds = nil
}

func (d *Device) appendCommands(cmds ...Command) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cmds = append(d.cmds, cmds...)
}

// Recording is an immutable list of submitted commands.
type Recording struct {
	commands []Command
}

// Commands returns the recorded commands in submission order.
func (r *Recording) Commands() []Command {
	return r.commands
}

// Len returns the number of recorded commands.
func (r *Recording) Len() int {
	return len(r.commands)
}

// Types returns the type of every recorded command.
func (r *Recording) Types() []CommandType {
	types := make([]CommandType, len(r.commands))
	for i, c := range r.commands {
		types[i] = c.Type()
	}
	return types
}

// OfType returns the commands of the given type.
func (r *Recording) OfType(t CommandType) []Command {
	var out []Command
	for _, c := range r.commands {
		if c.Type() == t {
			out = append(out, c)
		}
	}
	return out
}
