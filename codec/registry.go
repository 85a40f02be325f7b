package codec

import (
	"sync"

	"github.com/dailyyoga/savekit/save"
)

// Registry maps type names to record types.
type Registry struct {
	mu    sync.RWMutex
	types map[string]save.Type
	order []save.Type
}

// NewRegistry creates a registry holding types.
func NewRegistry(types ...save.Type) (*Registry, error) {
	r := &Registry{types: make(map[string]save.Type)}
	if err := r.Register(types...); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds types. Names must be unique.
func (r *Registry) Register(types ...save.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range types {
		if t == nil || t.Name() == "" {
			return ErrInvalidType
		}
		if _, ok := r.types[t.Name()]; ok {
			return ErrDuplicateType(t.Name())
		}
		r.types[t.Name()] = t
		r.order = append(r.order, t)
	}
	return nil
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (save.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// TypeOf returns the first registered type that recognizes rec.
func (r *Registry) TypeOf(rec any) (save.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.order {
		if t.Is(rec) {
			return t, true
		}
	}
	return nil, false
}

// Names lists registered type names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	for i, t := range r.order {
		names[i] = t.Name()
	}
	return names
}
