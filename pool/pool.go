// Package pool caches physical GPU resources across frames.
//
// A pooled resource is handed out as a reference-counted [Ref]. The pool
// itself always holds one reference, so an entry whose count has dropped
// back to exactly one is idle and may be handed out again to any request
// with an equal descriptor. Entries are created lazily on a miss and are
// destroyed only when the pool is closed.
//
// A [Pools] value is created once per device and passed explicitly to
// whoever needs it; there is no process-wide registry of pools.
package pool

import (
	"errors"
	"fmt"
	"sync"
)

// Pool errors.
var (
	// ErrClosed is returned when allocating from a closed pool.
	ErrClosed = errors.New("pool: closed")

	// ErrInUse is returned by Close while entries are still checked out.
	ErrInUse = errors.New("pool: resources still in use")
)

// Stats contains pool usage statistics.
type Stats struct {
	// Entries is the number of physical resources owned by the pool.
	Entries int

	// CheckedOut is the number of entries referenced outside the pool.
	CheckedOut int

	// Hits is the number of allocations served by an idle entry.
	Hits uint64

	// Misses is the number of allocations that created a new entry.
	Misses uint64

	// Bytes is the estimated memory held by all entries.
	Bytes uint64
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Pool[%d entries, %d in use, %d hits, %d misses, %.1f MB]",
		s.Entries, s.CheckedOut, s.Hits, s.Misses, float64(s.Bytes)/(1024*1024))
}

func (s Stats) add(o Stats) Stats {
	return Stats{
		Entries:    s.Entries + o.Entries,
		CheckedOut: s.CheckedOut + o.CheckedOut,
		Hits:       s.Hits + o.Hits,
		Misses:     s.Misses + o.Misses,
		Bytes:      s.Bytes + o.Bytes,
	}
}

type entry[D comparable, R any] struct {
	desc     D
	resource R
	refs     int // 1 means idle: only the pool holds it
}

// Ref is one reference to a pooled resource.
type Ref[D comparable, R any] struct {
	pool     *Pool[D, R]
	entry    *entry[D, R]
	reused   bool
	released bool
}

// Resource returns the physical resource.
func (r *Ref[D, R]) Resource() R {
	return r.entry.resource
}

// Desc returns the descriptor the resource was created with.
func (r *Ref[D, R]) Desc() D {
	return r.entry.desc
}

// Reused reports whether the allocation was served by an idle entry.
func (r *Ref[D, R]) Reused() bool {
	return r.reused
}

// RefCount returns the number of references to the entry, including the
// one held by the pool.
func (r *Ref[D, R]) RefCount() int {
	r.pool.mu.Lock()
	defer r.pool.mu.Unlock()
	return r.entry.refs
}

// Release drops this reference. Calling Release more than once has no
// further effect.
func (r *Ref[D, R]) Release() {
	r.pool.mu.Lock()
	defer r.pool.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	if r.entry.refs > 1 {
		r.entry.refs--
	}
}

// Clone returns an additional reference to the same entry.
func (r *Ref[D, R]) Clone() *Ref[D, R] {
	r.pool.mu.Lock()
	defer r.pool.mu.Unlock()
	r.entry.refs++
	return &Ref[D, R]{pool: r.pool, entry: r.entry, reused: r.reused}
}

// Pool caches resources of one kind keyed by descriptor equality.
//
// Pool is safe for concurrent use.
type Pool[D comparable, R any] struct {
	mu sync.Mutex

	create  func(D) (R, error)
	destroy func(R)
	size    func(D) uint64

	// entries keeps creation order so that lookups are deterministic.
	entries []*entry[D, R]
	byDesc  map[D][]*entry[D, R]

	hits   uint64
	misses uint64
	closed bool
}

// NewPool creates a pool. create is called on a miss, destroy only from
// Close. size may be nil.
func NewPool[D comparable, R any](create func(D) (R, error), destroy func(R), size func(D) uint64) *Pool[D, R] {
	return &Pool[D, R]{
		create:  create,
		destroy: destroy,
		size:    size,
		byDesc:  make(map[D][]*entry[D, R]),
	}
}

// Allocate returns a reference to a resource matching desc. An idle entry
// with an equal descriptor is reused; otherwise a new resource is created.
func (p *Pool[D, R]) Allocate(desc D) (*Ref[D, R], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	for _, e := range p.byDesc[desc] {
		if e.refs == 1 {
			e.refs++
			p.hits++
			return &Ref[D, R]{pool: p, entry: e, reused: true}, nil
		}
	}

	res, err := p.create(desc)
	if err != nil {
		return nil, err
	}
	e := &entry[D, R]{desc: desc, resource: res, refs: 2}
	p.entries = append(p.entries, e)
	p.byDesc[desc] = append(p.byDesc[desc], e)
	p.misses++
	return &Ref[D, R]{pool: p, entry: e}, nil
}

// Len returns the number of entries owned by the pool.
func (p *Pool[D, R]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Stats returns current usage statistics.
func (p *Pool[D, R]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		Entries: len(p.entries),
		Hits:    p.hits,
		Misses:  p.misses,
	}
	for _, e := range p.entries {
		if e.refs > 1 {
			s.CheckedOut++
		}
		if p.size != nil {
			s.Bytes += p.size(e.desc)
		}
	}
	return s
}

// Close destroys every entry. It fails with ErrInUse, leaving the pool
// untouched, while any entry is still checked out. Close on a closed pool
// is a no-op.
func (p *Pool[D, R]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	inUse := 0
	for _, e := range p.entries {
		if e.refs > 1 {
			inUse++
		}
	}
	if inUse > 0 {
		return fmt.Errorf("%w: %d of %d entries", ErrInUse, inUse, len(p.entries))
	}

	for _, e := range p.entries {
		p.destroy(e.resource)
	}
	p.entries = nil
	p.byDesc = nil
	p.closed = true
	return nil
}
