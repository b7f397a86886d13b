package vehicle

import (
	"fmt"
	"sort"
	"sync"

	"github.com/c360/canlink/protocol"
)

// Factory bundles the two constructors of one vehicle integration. Both must
// be pure: the controller initializes in Controller.Init, the table carries
// no state beyond its registered messages.
type Factory struct {
	// NewController builds an uninitialized controller.
	NewController func() Controller
	// NewTable builds the vehicle's protocol table with every send and
	// recv message registered.
	NewTable func() (*protocol.Table, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a vehicle available under the given name. Integrations
// register themselves from init functions. Registering a duplicate name or
// an incomplete factory is a programming error and panics.
func Register(name string, factory Factory) {
	if name == "" {
		panic("vehicle: Register with empty name")
	}
	if factory.NewController == nil || factory.NewTable == nil {
		panic(fmt.Sprintf("vehicle: Register %q with incomplete factory", name))
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("vehicle: %q already registered", name))
	}
	registry[name] = factory
}

// New returns the factory for a registered vehicle name.
func New(name string) (Factory, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return Factory{}, fmt.Errorf("vehicle: unknown vehicle %q (registered: %v)", name, Names())
	}
	return factory, nil
}

// Names returns the registered vehicle names, sorted.
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
