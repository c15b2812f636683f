// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/rhi"
)

// fenceValue is the value every fence is signaled to. Fences are not
// reused across submissions.
const fenceValue = 1

// waitSlice bounds each hal wait so that context cancellation is noticed.
const waitSlice = 10 * time.Millisecond

// Queue implements rhi.Queue over the device's hal queue.
type Queue struct {
	dev *Device
	raw hal.Queue
}

// Submit implements rhi.Queue.
func (q *Queue) Submit(buffers []rhi.CommandBuffer, fence rhi.Fence) error {
	raws := make([]hal.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		cb, ok := b.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("%w: command buffer %T", ErrForeignResource, b)
		}
		raws = append(raws, cb.raw)
	}

	if fence == nil {
		if err := q.raw.Submit(raws, nil, 0); err != nil {
			return fmt.Errorf("wgpu: submit: %w", err)
		}
		return nil
	}

	f, ok := fence.(*Fence)
	if !ok {
		return fmt.Errorf("%w: fence %T", ErrForeignResource, fence)
	}
	if err := q.raw.Submit(raws, f.raw, fenceValue); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	slogger().Debug("wgpu: submitted", "command_buffers", len(raws))
	return nil
}

// WriteBuffer implements rhi.Queue.
func (q *Queue) WriteBuffer(b rhi.Buffer, offset uint64, data []byte) error {
	buf, ok := b.(*Buffer)
	if !ok || buf.raw == nil {
		return fmt.Errorf("%w: buffer %T", ErrForeignResource, b)
	}
	if offset > buf.desc.Size || uint64(len(data)) > buf.desc.Size-offset {
		return fmt.Errorf("wgpu: write of %d bytes at %d overflows %s", len(data), offset, buf.desc)
	}
	if len(data) == 0 {
		return nil
	}
	q.raw.WriteBuffer(buf.raw, offset, data)
	return nil
}

// Fence wraps a hal fence.
type Fence struct {
	dev      *Device
	raw      hal.Fence
	signaled atomic.Bool
	once     sync.Once
}

// Wait implements rhi.Fence.
func (f *Fence) Wait(ctx context.Context) error {
	for {
		if f.signaled.Load() {
			return nil
		}
		ok, err := f.dev.device.Wait(f.raw, fenceValue, waitSlice)
		if err != nil {
			return fmt.Errorf("wgpu: wait fence: %w", err)
		}
		if ok {
			f.signaled.Store(true)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", rhi.ErrFenceTimeout, err)
		}
	}
}

// Signaled implements rhi.Fence.
func (f *Fence) Signaled() bool {
	if f.signaled.Load() {
		return true
	}
	ok, err := f.dev.device.Wait(f.raw, fenceValue, 0)
	if err == nil && ok {
		f.signaled.Store(true)
	}
	return f.signaled.Load()
}

// Destroy implements rhi.Fence.
func (f *Fence) Destroy() {
	f.once.Do(func() {
		f.dev.device.DestroyFence(f.raw)
	})
}
