package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds compiled schemas by name.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Register compiles def and adds it under def.Name.
// A name can be registered once; a second registration is a *ConfigError
// wrapping ErrDuplicateSchema.
func (r *Registry) Register(def Definition, opts ...Option) (*Schema, error) {
	s, err := Compile(def, opts...)
	if err != nil {
		return nil, err
	}
	if err := r.Add(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Add registers an already compiled schema.
func (r *Registry) Add(s *Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schemas[s.name]; ok {
		return &ConfigError{Schema: s.name, Err: ErrDuplicateSchema}
	}
	r.schemas[s.name] = s
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(def Definition, opts ...Option) *Schema {
	s, err := r.Register(def, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Get returns the schema registered under name.
func (r *Registry) Get(name string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}
	return s, nil
}

// Names returns all registered names (sorted).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all registered schemas sorted by name.
func (r *Registry) List() []*Schema {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Schema, 0, len(names))
	for _, n := range names {
		if s, ok := r.schemas[n]; ok {
			out = append(out, s)
		}
	}
	return out
}

var defaultRegistry = NewRegistry()

// Register adds a schema to the process-wide registry.
func Register(def Definition, opts ...Option) (*Schema, error) {
	return defaultRegistry.Register(def, opts...)
}

// MustRegister adds a schema to the process-wide registry or panics.
// Intended for package-level declarations.
func MustRegister(def Definition, opts ...Option) *Schema {
	return defaultRegistry.MustRegister(def, opts...)
}

// Get returns a schema from the process-wide registry.
func Get(name string) (*Schema, error) {
	return defaultRegistry.Get(name)
}

// List returns the schemas of the process-wide registry.
func List() []*Schema {
	return defaultRegistry.List()
}
