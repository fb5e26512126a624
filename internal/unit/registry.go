package unit

import (
	"fmt"
	"sort"
)

// Registry maps unit type names to their handlers.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler under its metadata type. Registering the same
// type twice is a programming error and fails loudly.
func (r *Registry) Register(h Handler) error {
	meta := h.Metadata()
	if meta.Type == "" {
		return fmt.Errorf("handler has empty type")
	}
	if _, exists := r.handlers[meta.Type]; exists {
		return fmt.Errorf("handler for type %q already registered", meta.Type)
	}
	r.handlers[meta.Type] = h
	return nil
}

// Get returns the handler for a unit type.
func (r *Registry) Get(unitType string) (Handler, error) {
	h, ok := r.handlers[unitType]
	if !ok {
		return nil, fmt.Errorf("no handler registered for unit type %q", unitType)
	}
	return h, nil
}

// Types returns the registered type names in stable order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
