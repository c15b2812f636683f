package recording

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/framegraph/rhi"
)

// Queue appends submitted command buffers to the device recording.
// Submissions complete immediately.
type Queue struct {
	dev *Device
	typ rhi.QueueType
}

// Type returns the queue family.
func (q *Queue) Type() rhi.QueueType { return q.typ }

// Submit implements rhi.Queue. The fence, if any, is signaled before
// Submit returns.
func (q *Queue) Submit(buffers []rhi.CommandBuffer, fence rhi.Fence) error {
	var cmds []Command
	for _, b := range buffers {
		cb, ok := b.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("%w: command buffer %T", ErrForeignResource, b)
		}
		if cb.released {
			return fmt.Errorf("recording: submit of released command buffer %q", cb.label)
		}
		cmds = append(cmds, cb.cmds...)
		cmds = append(cmds, SubmitCommand{Label: cb.label, Commands: len(cb.cmds), Fenced: fence != nil})
	}

	var f *Fence
	if fence != nil {
		var ok bool
		if f, ok = fence.(*Fence); !ok {
			return fmt.Errorf("%w: fence %T", ErrForeignResource, fence)
		}
	}

	q.dev.appendCommands(cmds...)
	q.dev.mu.Lock()
	q.dev.stats.Submissions++
	q.dev.mu.Unlock()

	if f != nil {
		f.signal()
	}
	return nil
}

// WriteBuffer implements rhi.Queue.
func (q *Queue) WriteBuffer(b rhi.Buffer, offset uint64, data []byte) error {
	buf, ok := b.(*Buffer)
	if !ok {
		return fmt.Errorf("%w: buffer %T", ErrForeignResource, b)
	}
	if offset > buf.desc.Size || uint64(len(data)) > buf.desc.Size-offset {
		return fmt.Errorf("recording: write of %d bytes at %d overflows %s", len(data), offset, buf.desc)
	}

	end := offset + uint64(len(data))
	q.dev.mu.Lock()
	if uint64(len(buf.data)) < end {
		grown := make([]byte, end)
		copy(grown, buf.data)
		buf.data = grown
	}
	copy(buf.data[offset:], data)
	q.dev.mu.Unlock()

	q.dev.appendCommands(WriteBufferCommand{Buffer: b, Offset: offset, Data: append([]byte(nil), data...)})
	return nil
}

// Fence is signaled when the submission it was passed to completes.
type Fence struct {
	once      sync.Once
	done      chan struct{}
	destroyed atomic.Bool
}

func (f *Fence) signal() {
	f.once.Do(func() { close(f.done) })
}

// Signal signals the fence directly, as if the work it guards completed.
func (f *Fence) Signal() { f.signal() }

// Wait implements rhi.Fence.
func (f *Fence) Wait(ctx context.Context) error {
	if f.Signaled() {
		return nil
	}
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", rhi.ErrFenceTimeout, ctx.Err())
	}
}

// Signaled implements rhi.Fence.
func (f *Fence) Signaled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Destroy implements rhi.Fence.
func (f *Fence) Destroy() {
	f.destroyed.Store(true)
}

// Destroyed reports whether Destroy was called.
func (f *Fence) Destroyed() bool { return f.destroyed.Load() }
