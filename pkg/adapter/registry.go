package adapter

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/leapstack-labs/leapqa/pkg/core"
)

// Factory builds an unconnected adapter. The logger is never nil.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register makes a source type available to targets by name.
// Adapters call it from init. Registering a name twice, or a nil factory,
// panics.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("adapter: Register factory is nil for " + name)
	}
	if _, dup := factories[name]; dup {
		panic("adapter: Register called twice for " + name)
	}
	factories[name] = factory
}

// Get returns the factory registered under name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// NewAdapter creates an unconnected adapter for cfg.Type.
// A nil logger discards output.
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(logger.With("source", cfg.Type)), nil
}

// ListAdapters returns the registered source types, sorted.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered reports whether a source type can be used as a target.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownAdapterError is returned for a target type no adapter registered.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown target type %q (available: %v); check target.type in leapqa.yaml", e.Type, e.Available)
}
