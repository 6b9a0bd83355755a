package hostenv

import (
	"context"
	"sort"
)

// StubFunc implements a recognized host import. Results not set through
// Call.Return stay zero.
type StubFunc func(ctx context.Context, c *Call)

// Registry maps (module, name) pairs to stub behavior. Function imports
// without an entry receive a stub that returns zero.
type Registry struct {
	stubs map[string]StubFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{stubs: make(map[string]StubFunc)}
}

// DefaultRegistry returns a new registry holding the built-in stubs.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	registerBuiltins(r)
	return r
}

func registryKey(module, name string) string {
	return module + "#" + name
}

// Register installs fn for module.name, replacing any previous entry.
func (r *Registry) Register(module, name string, fn StubFunc) {
	r.stubs[registryKey(module, name)] = fn
}

// Lookup returns the stub for module.name.
func (r *Registry) Lookup(module, name string) (StubFunc, bool) {
	fn, ok := r.stubs[registryKey(module, name)]
	return fn, ok
}

// Names lists registered imports as "module#name", sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.stubs))
	for k := range r.stubs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
