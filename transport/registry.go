package transport

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs an idle Handle from configuration. Factories must not
// perform I/O; connections open in Handle.Start.
type Factory func(cfg Config) (Handle, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a transport constructor available under the given name.
// Implementations register themselves from init functions. Registering a
// duplicate name or a nil factory is a programming error and panics.
func Register(name string, factory Factory) {
	if name == "" {
		panic("transport: Register with empty name")
	}
	if factory == nil {
		panic(fmt.Sprintf("transport: Register %q with nil factory", name))
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("transport: %q already registered", name))
	}
	registry[name] = factory
}

// New constructs an idle Handle for the configured transport type.
func New(cfg Config) (Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	registryMu.RLock()
	factory, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("transport: unknown type %q (registered: %v)", cfg.Type, Names())
	}
	return factory(cfg)
}

// Names returns the registered transport types, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
