package adapter

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maps adapter names to implementations. Registration happens at
// process startup only; afterwards the registry is a read-only lookup table.
// Lookup misses return ok=false rather than an error so callers can treat
// "adapter not configured" as a recoverable condition.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: map[string]Adapter{}}
}

// Register adds an adapter under its canonical name. Registering the same
// name twice is a programmer error and is rejected.
func (r *Registry) Register(a Adapter) error {
	if a == nil {
		return fmt.Errorf("adapter is nil")
	}
	name := strings.ToLower(strings.TrimSpace(a.Name()))
	if name == "" {
		return fmt.Errorf("adapter has empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("adapter already registered: %s", name)
	}
	r.adapters[name] = a
	return nil
}

// Get looks up an adapter by name.
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// Names returns the registered adapter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// All returns all registered adapters ordered by name.
func (r *Registry) All() []Adapter {
	names := r.Names()
	out := make([]Adapter, 0, len(names))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		out = append(out, r.adapters[name])
	}
	return out
}
