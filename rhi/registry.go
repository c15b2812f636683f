package rhi

import (
	"fmt"
	"sort"
	"sync"
)

// Factory opens a new device. Factories are registered via Register and
// called by Open.
type Factory func() (Device, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register makes a backend available by name. It is typically called from
// init() in backend packages.
//
// Register panics if factory is nil or if name is already registered.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("rhi: Register factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("rhi: Register called twice for " + name)
	}
	factories[name] = factory
}

// Unregister removes a backend. Unknown names are ignored.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Open opens a device on the named backend.
//
//	import _ "github.com/gogpu/framegraph/backend/recording"
//
//	dev, err := rhi.Open("recording")
func Open(name string) (Device, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w %q (forgotten import?)", ErrUnknownBackend, name)
	}
	dev, err := factory()
	if err != nil {
		return nil, fmt.Errorf("rhi: open %q: %w", name, err)
	}
	return dev, nil
}

// MustOpen is like Open but panics on error.
func MustOpen(name string) Device {
	dev, err := Open(name)
	if err != nil {
		panic(err)
	}
	return dev
}

// Backends returns the registered backend names in sorted order.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}
