// Package registry provides name-keyed registries with register-if-absent
// semantics, so packages can define components from init functions without
// clobbering each other.
package registry

import (
	"sort"
	"sync"
)

// Registry maps names to values of type T. The zero value is not usable;
// call New.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
}

func New[T any]() *Registry[T] {
	return &Registry[T]{entries: make(map[string]T)}
}

// DefineIfAbsent stores value under name unless the name is taken. It
// reports whether value was stored.
func (r *Registry[T]) DefineIfAbsent(name string, value T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return false
	}
	r.entries[name] = value
	return true
}

// Get returns the value registered under name.
func (r *Registry[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[name]
	return v, ok
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
