package pool

import (
	"errors"

	"github.com/gogpu/framegraph/rhi"
)

type (
	// BufferPool caches buffers by descriptor.
	BufferPool = Pool[rhi.BufferDesc, rhi.Buffer]

	// TexturePool caches textures by descriptor.
	TexturePool = Pool[rhi.TextureDesc, rhi.Texture]

	// BufferRef is a reference to a pooled buffer.
	BufferRef = Ref[rhi.BufferDesc, rhi.Buffer]

	// TextureRef is a reference to a pooled texture.
	TextureRef = Ref[rhi.TextureDesc, rhi.Texture]
)

// Pools bundles the buffer and texture pools of one device.
type Pools struct {
	Buffers  *BufferPool
	Textures *TexturePool
}

// New creates the pools for dev. Resources are created through dev on a
// miss and destroyed through dev when the pools are closed.
func New(dev rhi.Device) *Pools {
	return &Pools{
		Buffers:  NewPool(dev.CreateBuffer, dev.DestroyBuffer, rhi.BufferDesc.SizeBytes),
		Textures: NewPool(dev.CreateTexture, dev.DestroyTexture, rhi.TextureDesc.SizeBytes),
	}
}

// Stats returns the combined statistics of both pools.
func (p *Pools) Stats() Stats {
	return p.Buffers.Stats().add(p.Textures.Stats())
}

// Close closes both pools.
func (p *Pools) Close() error {
	return errors.Join(p.Buffers.Close(), p.Textures.Close())
}
