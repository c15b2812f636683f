package framegraph

import "fmt"

// Handle is a versioned reference to a virtual resource of one graph.
//
// The low 16 bits hold the resource index, the high 16 bits the version.
// Every write to a resource produces a handle with the next version; reads
// hand the same handle back. A handle is a lookup key only and owns
// nothing.
type Handle uint32

const (
	handleIndexBits = 16
	handleIndexMask = 1<<handleIndexBits - 1

	// InvalidIndex is the index sentinel of an invalid Handle.
	InvalidIndex = handleIndexMask

	// MaxVersion is the largest version a Handle can carry.
	MaxVersion = 1<<16 - 1
)

// InvalidHandle is the handle that refers to no resource.
const InvalidHandle = Handle(InvalidIndex)

// NewHandle packs an index and a version.
func NewHandle(index, version uint16) Handle {
	return Handle(uint32(version)<<handleIndexBits | uint32(index))
}

// Index returns the resource index.
func (h Handle) Index() uint16 { return uint16(h & handleIndexMask) }

// Version returns the write generation.
func (h Handle) Version() uint16 { return uint16(h >> handleIndexBits) }

// Reset makes h the invalid handle.
func (h *Handle) Reset() { *h = InvalidHandle }

// Next returns h with the version incremented. The index is preserved and
// the version wraps to zero after MaxVersion.
func (h Handle) Next() Handle {
	return NewHandle(h.Index(), h.Version()+1)
}

// Valid reports whether h refers to a resource slot.
func (h Handle) Valid() bool { return h.Index() != InvalidIndex }

// Invalid reports whether h is the sentinel.
func (h Handle) Invalid() bool { return !h.Valid() }

// SameGeneration reports whether h and o refer to the same index and
// version.
func (h Handle) SameGeneration(o Handle) bool {
	return h.Index() == o.Index() && h.Version() == o.Version()
}

// String returns "#<index>v<version>" or "invalid".
func (h Handle) String() string {
	if h.Invalid() {
		return "invalid"
	}
	return fmt.Sprintf("#%dv%d", h.Index(), h.Version())
}

// Handle64 is the wide form of Handle with a 32-bit index and a 32-bit
// version, for graphs that outlive a 16-bit version space.
type Handle64 uint64

const (
	handle64IndexBits = 32
	handle64IndexMask = 1<<handle64IndexBits - 1

	// InvalidIndex64 is the index sentinel of an invalid Handle64.
	InvalidIndex64 = handle64IndexMask
)

// InvalidHandle64 is the wide handle that refers to no resource.
const InvalidHandle64 = Handle64(InvalidIndex64)

// NewHandle64 packs an index and a version.
func NewHandle64(index, version uint32) Handle64 {
	return Handle64(uint64(version)<<handle64IndexBits | uint64(index))
}

// Index returns the resource index.
func (h Handle64) Index() uint32 { return uint32(h & handle64IndexMask) }

// Version returns the write generation.
func (h Handle64) Version() uint32 { return uint32(h >> handle64IndexBits) }

// Reset makes h the invalid handle.
func (h *Handle64) Reset() { *h = InvalidHandle64 }

// Next returns h with the version incremented, wrapping after the maximum
// uint32.
func (h Handle64) Next() Handle64 {
	return NewHandle64(h.Index(), h.Version()+1)
}

// Valid reports whether h refers to a resource slot.
func (h Handle64) Valid() bool { return h.Index() != InvalidIndex64 }

// Invalid reports whether h is the sentinel.
func (h Handle64) Invalid() bool { return !h.Valid() }

// SameGeneration reports whether h and o refer to the same index and
// version.
func (h Handle64) SameGeneration(o Handle64) bool {
	return h.Index() == o.Index() && h.Version() == o.Version()
}

// String returns "#<index>v<version>" or "invalid".
func (h Handle64) String() string {
	if h.Invalid() {
		return "invalid"
	}
	return fmt.Sprintf("#%dv%d", h.Index(), h.Version())
}
