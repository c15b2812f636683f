// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements the rhi device interfaces on top of the
// gogpu/wgpu hardware abstraction layer (hal).
//
// The backend wraps a hal.Device and hal.Queue that the caller already
// owns, or one obtained from a host application through a provider that
// exposes HalDevice() and HalQueue():
//
//	dev := wgpu.New(halDevice, halQueue)
//	r := framegraph.NewRenderer(dev)
//
// For tests and headless tools [OpenNoop] opens the hal noop adapter,
// which accepts every call and performs no GPU work. Importing the package
// registers it with rhi under the name "noop":
//
//	import _ "github.com/gogpu/framegraph/backend/wgpu"
//
//	dev, err := rhi.Open("noop")
//
// # State Transitions
//
// Texture barriers are recorded with hal.CommandEncoder.TransitionTextures,
// mapping each rhi.ResourceState to its WebGPU texture usage. Buffer state
// is tracked by the hal backends themselves, so buffer barriers are not
// recorded.
//
// # Passes
//
// hal has no copy pass; copies of a copy pass are recorded directly on the
// command encoder between its Begin and End. Compute and graphics passes
// map to hal compute and render passes. Every texture gets one default
// view, used for render attachments.
//
// # Queues
//
// WebGPU exposes a single queue, so every rhi.QueueType resolves to it.
//
// # Build Tags
//
// Building with the nogpu tag leaves the package empty, so nothing is
// registered under "noop".
//
// # Logging
//
// The backend logs through [SetLogger]; nothing is logged by default. A
// device used by a framegraph.Renderer follows framegraph.SetLogger.
package wgpu
