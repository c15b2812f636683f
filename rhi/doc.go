// Package rhi defines the render hardware interface consumed by the frame
// graph.
//
// The frame graph never talks to a platform graphics API. It creates
// buffers, textures, command encoders and fences only through the [Device]
// interface defined here, and records work only through the pass-scoped
// encoders returned by a [CommandEncoder]. Backends implement these
// interfaces:
//
//   - backend/wgpu: gogpu/wgpu HAL (Vulkan, Metal, DX12, GLES, noop)
//   - backend/recording: in-memory device that records typed commands
//
// # Descriptors
//
// [BufferDesc] and [TextureDesc] are plain comparable structs built on
// github.com/gogpu/gputypes. Equality of descriptors is what the resource
// pool uses to decide whether a physical resource can be reused, so they
// deliberately carry no labels or pointers.
//
// # Backend Registration
//
// Backends register a factory in init() following the database/sql driver
// pattern:
//
//	func init() {
//	    rhi.Register("recording", func() (rhi.Device, error) {
//	        return recording.NewDevice(), nil
//	    })
//	}
//
//	dev, err := rhi.Open("recording")
package rhi
