package rhi

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// BufferDesc describes a GPU buffer.
// Two buffers with equal descriptors are interchangeable.
type BufferDesc struct {
	// Size is the buffer size in bytes.
	Size uint64

	// Usage is the set of allowed buffer usages.
	Usage gputypes.BufferUsage
}

// Validate reports whether the descriptor can be created.
func (d BufferDesc) Validate() error {
	if d.Size == 0 {
		return fmt.Errorf("%w: buffer size is zero", ErrInvalidDescriptor)
	}
	return nil
}

// SizeBytes returns the memory footprint of the buffer.
func (d BufferDesc) SizeBytes() uint64 {
	return d.Size
}

// String returns a compact description, e.g. "buffer[4096 usage=0x88]".
func (d BufferDesc) String() string {
	return fmt.Sprintf("buffer[%d usage=%#x]", d.Size, uint32(d.Usage))
}

// TextureDesc describes a GPU texture.
// Two textures with equal descriptors are interchangeable.
type TextureDesc struct {
	Dimension          gputypes.TextureDimension
	Width              uint32
	Height             uint32
	DepthOrArrayLayers uint32
	MipLevelCount      uint32
	SampleCount        uint32
	Format             gputypes.TextureFormat
	Usage              gputypes.TextureUsage
}

// Texture2D returns a descriptor for a single-mip, single-sample 2D texture.
func Texture2D(width, height uint32, format gputypes.TextureFormat, usage gputypes.TextureUsage) TextureDesc {
	return TextureDesc{
		Dimension:          gputypes.TextureDimension2D,
		Width:              width,
		Height:             height,
		DepthOrArrayLayers: 1,
		MipLevelCount:      1,
		SampleCount:        1,
		Format:             format,
		Usage:              usage,
	}
}

// Validate reports whether the descriptor can be created.
func (d TextureDesc) Validate() error {
	if d.Width == 0 || d.Height == 0 {
		return fmt.Errorf("%w: texture extent %dx%d", ErrInvalidDescriptor, d.Width, d.Height)
	}
	if d.Format == gputypes.TextureFormatUndefined {
		return fmt.Errorf("%w: texture format undefined", ErrInvalidDescriptor)
	}
	return nil
}

// SizeBytes estimates the memory footprint of the texture, including
// all mip levels, layers and samples.
func (d TextureDesc) SizeBytes() uint64 {
	bpp := uint64(bytesPerTexel(d.Format))
	layers := uint64(max(d.DepthOrArrayLayers, 1))
	samples := uint64(max(d.SampleCount, 1))
	mips := max(d.MipLevelCount, 1)

	var total uint64
	w, h := uint64(d.Width), uint64(d.Height)
	for range mips {
		total += w * h * bpp
		w = max(w/2, 1)
		h = max(h/2, 1)
	}
	return total * layers * samples
}

// String returns a compact description, e.g. "texture[1024x1024x1 fmt=18 mips=1]".
func (d TextureDesc) String() string {
	return fmt.Sprintf("texture[%dx%dx%d fmt=%d mips=%d]",
		d.Width, d.Height, d.DepthOrArrayLayers, uint32(d.Format), d.MipLevelCount)
}

// bytesPerTexel returns the texel size of the formats the engine
// allocates. Unknown formats fall back to 4 bytes.
func bytesPerTexel(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatDepth24PlusStencil8:
		return 4
	default:
		return 4
	}
}
